// internal/store/instrumented.go
package store

import (
	"context"
	"time"

	"github.com/FairForge/kvbench/internal/models"
	"github.com/FairForge/kvbench/internal/timing"
)

// Recorder receives one observation per store request
type Recorder interface {
	ObserveStoreRequest(op string, elapsed time.Duration, err error)
}

// InstrumentedStore reports every request of the wrapped store to a Recorder
type InstrumentedStore struct {
	backend  Store
	recorder Recorder
}

// NewInstrumentedStore wraps backend
func NewInstrumentedStore(backend Store, recorder Recorder) *InstrumentedStore {
	return &InstrumentedStore{backend: backend, recorder: recorder}
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (models.BenchmarkItem, bool, error) {
	var (
		item  models.BenchmarkItem
		found bool
	)
	elapsed, err := timing.Measure(func() error {
		var err error
		item, found, err = s.backend.Get(ctx, key)
		return err
	})
	s.recorder.ObserveStoreRequest(OpGet, elapsed, err)
	return item, found, err
}

func (s *InstrumentedStore) Put(ctx context.Context, item models.BenchmarkItem) error {
	elapsed, err := timing.Measure(func() error { return s.backend.Put(ctx, item) })
	s.recorder.ObserveStoreRequest(OpPut, elapsed, err)
	return err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key string) error {
	elapsed, err := timing.Measure(func() error { return s.backend.Delete(ctx, key) })
	s.recorder.ObserveStoreRequest(OpDelete, elapsed, err)
	return err
}

func (s *InstrumentedStore) ScanKeys(ctx context.Context, limit int) ([]string, error) {
	elapsed, keys, err := timing.MeasureValue(func() ([]string, error) {
		return s.backend.ScanKeys(ctx, limit)
	})
	s.recorder.ObserveStoreRequest(OpScan, elapsed, err)
	return keys, err
}
