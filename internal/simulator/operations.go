// internal/simulator/operations.go
package simulator

import (
	"context"

	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/models"
	"github.com/FairForge/kvbench/internal/timing"
)

// ReadItem fetches key. The read time is written to metrics only when record
// is set; polling reads leave it alone. A missing item is not an error.
func (s *Simulator) ReadItem(ctx context.Context, key string, metrics *models.SimulationMetrics, record bool) (models.BenchmarkItem, bool, error) {
	var (
		item  models.BenchmarkItem
		found bool
	)
	elapsed, err := timing.Measure(func() error {
		var err error
		item, found, err = s.store.Get(ctx, key)
		return err
	})

	if record && metrics != nil {
		metrics.ReadTime = timing.Millis(elapsed)
	}

	if err != nil {
		s.logger.Error("could not fetch item",
			zap.String("partition_key", key),
			zap.Error(err))
		return models.BenchmarkItem{}, false, err
	}
	if !found {
		s.logger.Debug("no item found", zap.String("partition_key", key))
	}
	return item, found, nil
}

// PutItem writes a freshly generated item and returns it
func (s *Simulator) PutItem(ctx context.Context, metrics *models.SimulationMetrics) (models.BenchmarkItem, error) {
	item := s.factory.NewItem(s.attributes)

	elapsed, err := timing.Measure(func() error { return s.store.Put(ctx, item) })
	metrics.WriteTime = timing.Millis(elapsed)

	if err != nil {
		s.logger.Error("could not put new item",
			zap.String("partition_key", item.ID),
			zap.Error(err))
		return models.BenchmarkItem{}, err
	}

	s.logger.Debug("put new item", zap.String("partition_key", item.ID))
	return item, nil
}

// UpdateItem overwrites key with freshly generated attribute values
func (s *Simulator) UpdateItem(ctx context.Context, key string, metrics *models.SimulationMetrics) (models.BenchmarkItem, error) {
	item := s.factory.NewItem(s.attributes)
	item.ID = key

	elapsed, err := timing.Measure(func() error { return s.store.Put(ctx, item) })
	metrics.UpdateTime = timing.Millis(elapsed)

	if err != nil {
		s.logger.Error("could not update item",
			zap.String("partition_key", key),
			zap.Error(err))
		return models.BenchmarkItem{}, err
	}

	s.logger.Debug("updated item", zap.String("partition_key", key))
	return item, nil
}

// DeleteItem removes key
func (s *Simulator) DeleteItem(ctx context.Context, key string, metrics *models.SimulationMetrics) error {
	elapsed, err := timing.Measure(func() error { return s.store.Delete(ctx, key) })
	metrics.DeleteTime = timing.Millis(elapsed)

	if err != nil {
		s.logger.Error("could not delete item",
			zap.String("partition_key", key),
			zap.Error(err))
		return err
	}

	s.logger.Debug("deleted item", zap.String("partition_key", key))
	return nil
}
