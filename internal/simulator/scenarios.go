// internal/simulator/scenarios.go
package simulator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/models"
	"github.com/FairForge/kvbench/internal/timing"
)

// Run executes one scenario and returns its metrics record. The record is
// successful only when no store request failed; confirmation exhaustion does
// not count as a failure. The returned error is the failure that aborted the
// scenario, already reflected in the record.
func (s *Simulator) Run(ctx context.Context, scenario models.Scenario) (*models.SimulationMetrics, error) {
	metrics := models.NewSimulationMetrics(scenario)

	elapsed, err := timing.Measure(func() error {
		switch scenario {
		case models.ScenarioReadOnly:
			return s.RunReadOnly(ctx, metrics)
		case models.ScenarioCrud:
			return s.RunCrud(ctx, metrics)
		default:
			return fmt.Errorf("unknown scenario %d", int(scenario))
		}
	})

	metrics.SimulationTime = timing.Millis(elapsed)
	metrics.Successful = err == nil

	if err != nil {
		s.logger.Error("simulation did not complete",
			zap.Stringer("scenario", scenario),
			zap.Stringer("operation", metrics.Operation),
			zap.Error(err))
	} else {
		s.logger.Debug("simulation completed",
			zap.Stringer("scenario", scenario),
			zap.Stringer("operation", metrics.Operation),
			zap.Float64("simulationTimeMs", *metrics.SimulationTime))
	}
	return metrics, err
}

// RunReadOnly sleeps a random jitter and then reads an existing key
func (s *Simulator) RunReadOnly(ctx context.Context, metrics *models.SimulationMetrics) error {
	metrics.Operation = models.OperationRead
	if err := pause(ctx, s.jitter()); err != nil {
		return err
	}
	return s.SimulateRead(ctx, metrics)
}

// RunCrud draws one of read, write and update and runs it
func (s *Simulator) RunCrud(ctx context.Context, metrics *models.SimulationMetrics) error {
	op := s.choose(s.rng)
	metrics.Operation = op

	switch op {
	case models.OperationRead:
		return s.SimulateRead(ctx, metrics)
	case models.OperationWrite:
		return s.SimulateWrite(ctx, metrics)
	case models.OperationUpdate:
		return s.SimulateUpdate(ctx, metrics)
	default:
		return fmt.Errorf("operation %s is not a crud scenario", op)
	}
}

// SimulateRead reads a random catalog key, retrying while it is missing.
// A key that never shows up is tolerated since other runs may have removed it.
func (s *Simulator) SimulateRead(ctx context.Context, metrics *models.SimulationMetrics) error {
	key := s.catalog.Random(s.rng)

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		_, found, err := s.ReadItem(ctx, key, metrics, true)
		if err != nil {
			return err
		}
		if found {
			s.logger.Debug("read existing item", zap.String("partition_key", key), zap.Int("attempt", attempt))
			return nil
		}
		if attempt < s.policy.MaxAttempts {
			if err := pause(ctx, s.policy.Delay); err != nil {
				return err
			}
		}
	}

	s.logger.Warn("all attempts to fetch existing item failed",
		zap.String("partition_key", key),
		zap.Int("attempts", s.policy.MaxAttempts))
	return nil
}

// SimulateWrite writes a new item, confirms it, deletes it and confirms the
// deletion
func (s *Simulator) SimulateWrite(ctx context.Context, metrics *models.SimulationMetrics) error {
	item, err := s.PutItem(ctx, metrics)
	if err != nil {
		return fmt.Errorf("write simulation: %w", err)
	}

	if err := s.ConfirmCreated(ctx, item.ID, metrics); err != nil {
		return fmt.Errorf("write simulation: %w", err)
	}
	if err := s.DeleteItem(ctx, item.ID, metrics); err != nil {
		return fmt.Errorf("write simulation: %w", err)
	}
	if err := s.ConfirmDeleted(ctx, item.ID, metrics); err != nil {
		return fmt.Errorf("write simulation: %w", err)
	}
	return nil
}

// SimulateUpdate writes a new item, overwrites it, confirms the new values
// are visible and finally removes it
func (s *Simulator) SimulateUpdate(ctx context.Context, metrics *models.SimulationMetrics) error {
	item, err := s.PutItem(ctx, metrics)
	if err != nil {
		return fmt.Errorf("update simulation: %w", err)
	}

	if err := s.ConfirmCreated(ctx, item.ID, metrics); err != nil {
		return fmt.Errorf("update simulation: %w", err)
	}
	if _, err := s.UpdateItem(ctx, item.ID, metrics); err != nil {
		return fmt.Errorf("update simulation: %w", err)
	}
	if err := s.ConfirmUpdated(ctx, item, watchedAttribute(item), metrics); err != nil {
		return fmt.Errorf("update simulation: %w", err)
	}
	if err := s.DeleteItem(ctx, item.ID, metrics); err != nil {
		return fmt.Errorf("update simulation: %w", err)
	}
	if err := s.ConfirmDeleted(ctx, item.ID, metrics); err != nil {
		return fmt.Errorf("update simulation: %w", err)
	}
	return nil
}
