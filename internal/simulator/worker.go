// internal/simulator/worker.go
package simulator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/models"
)

// ErrWorkerPanic is returned by a worker whose scenario panicked
var ErrWorkerPanic = errors.New("worker panicked")

// Worker repeatedly runs one scenario kind and forwards every record
type Worker struct {
	id         int
	sim        *Simulator
	scenario   models.Scenario
	out        chan<- models.SimulationMetrics
	signal     *Signal
	logger     *zap.Logger
	iterations int
}

// NewWorker creates a worker that sends records on out until signal fires
func NewWorker(id int, sim *Simulator, scenario models.Scenario, out chan<- models.SimulationMetrics, signal *Signal, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		id:       id,
		sim:      sim,
		scenario: scenario,
		out:      out,
		signal:   signal,
		logger:   logger.With(zap.Int("worker", id)),
	}
}

// Run loops until the signal fires. The signal is only observed between
// iterations, so a scenario in flight always completes and its record is
// always sent. A full channel blocks the worker; only ctx releases it.
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker panicked",
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = fmt.Errorf("%w: worker %d: %v", ErrWorkerPanic, w.id, r)
		}
	}()

	w.logger.Debug("worker started", zap.Stringer("scenario", w.scenario))
	for !w.signal.Cancelled() {
		if err := ctx.Err(); err != nil {
			return err
		}

		metrics, _ := w.sim.Run(ctx, w.scenario)
		w.iterations++

		select {
		case w.out <- *metrics:
		case <-ctx.Done():
			w.logger.Warn("dropping metrics record, run aborted", zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}
	w.logger.Debug("worker stopped", zap.Int("iterations", w.iterations))
	return nil
}

// Iterations returns how many scenarios the worker completed
func (w *Worker) Iterations() int {
	return w.iterations
}
