// internal/store/seed.go
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/models"
)

// ItemFactory creates the items written by Seed
type ItemFactory interface {
	NewItem(attributes int) models.BenchmarkItem
}

// Seed writes count fresh items so a new table has keys to read. It returns
// how many items were written before the first failure.
func Seed(ctx context.Context, s Store, factory ItemFactory, count, attributes int, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for i := 0; i < count; i++ {
		item := factory.NewItem(attributes)
		if err := s.Put(ctx, item); err != nil {
			return i, fmt.Errorf("seed item %d of %d: %w", i+1, count, err)
		}
		if (i+1)%1000 == 0 {
			logger.Info("seeding table", zap.Int("written", i+1), zap.Int("total", count))
		}
	}

	logger.Info("seeded table", zap.Int("items", count))
	return count, nil
}
