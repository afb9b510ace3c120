// internal/simulator/confirm.go
package simulator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/models"
	"github.com/FairForge/kvbench/internal/timing"
)

// poll reads key until done accepts the result or the policy runs out of
// attempts. It returns the time from the first attempt to acceptance and
// whether acceptance happened. Only read failures are errors.
func (s *Simulator) poll(ctx context.Context, key string, done func(item models.BenchmarkItem, found bool) bool) (time.Duration, bool, error) {
	start := time.Now()
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		item, found, err := s.ReadItem(ctx, key, nil, false)
		if err != nil {
			return 0, false, err
		}
		if done(item, found) {
			return time.Since(start), true, nil
		}

		s.logger.Debug("item not in expected state yet",
			zap.String("partition_key", key),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", s.policy.MaxAttempts))

		if attempt < s.policy.MaxAttempts {
			if err := pause(ctx, s.policy.Delay); err != nil {
				return 0, false, err
			}
		}
	}
	return time.Since(start), false, nil
}

// ConfirmCreated polls until key is visible. Exhaustion leaves the write
// confirmation time unset.
func (s *Simulator) ConfirmCreated(ctx context.Context, key string, metrics *models.SimulationMetrics) error {
	elapsed, ok, err := s.poll(ctx, key, func(_ models.BenchmarkItem, found bool) bool {
		return found
	})
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("exhausted attempts to confirm new item",
			zap.String("partition_key", key),
			zap.Int("attempts", s.policy.MaxAttempts))
		return nil
	}

	metrics.WriteItemConfirmationTime = timing.Millis(elapsed)
	return nil
}

// ConfirmDeleted polls until key is no longer visible
func (s *Simulator) ConfirmDeleted(ctx context.Context, key string, metrics *models.SimulationMetrics) error {
	elapsed, ok, err := s.poll(ctx, key, func(_ models.BenchmarkItem, found bool) bool {
		return !found
	})
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("exhausted attempts to confirm deletion",
			zap.String("partition_key", key),
			zap.Int("attempts", s.policy.MaxAttempts))
		return nil
	}

	metrics.DeleteItemConfirmationTime = timing.Millis(elapsed)
	return nil
}

// ConfirmUpdated polls until the attribute at position differs from the
// value in original. A read that finds no item counts as not updated yet.
func (s *Simulator) ConfirmUpdated(ctx context.Context, original models.BenchmarkItem, position int, metrics *models.SimulationMetrics) error {
	before, _ := original.Attribute(position)

	elapsed, ok, err := s.poll(ctx, original.ID, func(item models.BenchmarkItem, found bool) bool {
		if !found {
			return false
		}
		current, _ := item.Attribute(position)
		return !current.Equal(before)
	})
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("exhausted attempts to confirm update",
			zap.String("partition_key", original.ID),
			zap.Int("attribute", position),
			zap.Int("attempts", s.policy.MaxAttempts))
		return nil
	}

	metrics.UpdateItemConfirmationTime = timing.Millis(elapsed)
	return nil
}

// watchedAttribute is the position ConfirmUpdated compares: the first
// numeric attribute, or the only attribute of single-attribute items
func watchedAttribute(item models.BenchmarkItem) int {
	for i, a := range item.Attributes {
		if a.Kind == models.AttributeNumber {
			return i
		}
	}
	return 0
}
