// internal/store/throttle.go
package store

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/FairForge/kvbench/internal/models"
)

// ThrottledStore caps the request rate of every worker sharing it
type ThrottledStore struct {
	backend Store
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewThrottledStore creates a store limited to requestsPerSecond
func NewThrottledStore(backend Store, requestsPerSecond, burst int, logger *zap.Logger) *ThrottledStore {
	if burst < 1 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThrottledStore{
		backend: backend,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		logger:  logger,
	}
}

func (t *ThrottledStore) wait(ctx context.Context, op, key string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		t.logger.Debug("rate limiter wait aborted", zap.String("op", op), zap.Error(err))
		return &StoreError{Op: op, Key: key, Err: err}
	}
	return nil
}

func (t *ThrottledStore) Get(ctx context.Context, key string) (models.BenchmarkItem, bool, error) {
	if err := t.wait(ctx, OpGet, key); err != nil {
		return models.BenchmarkItem{}, false, err
	}
	return t.backend.Get(ctx, key)
}

func (t *ThrottledStore) Put(ctx context.Context, item models.BenchmarkItem) error {
	if err := t.wait(ctx, OpPut, item.ID); err != nil {
		return err
	}
	return t.backend.Put(ctx, item)
}

func (t *ThrottledStore) Delete(ctx context.Context, key string) error {
	if err := t.wait(ctx, OpDelete, key); err != nil {
		return err
	}
	return t.backend.Delete(ctx, key)
}

func (t *ThrottledStore) ScanKeys(ctx context.Context, limit int) ([]string, error) {
	if err := t.wait(ctx, OpScan, ""); err != nil {
		return nil, err
	}
	return t.backend.ScanKeys(ctx, limit)
}
