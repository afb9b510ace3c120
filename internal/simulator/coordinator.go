// internal/simulator/coordinator.go
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/items"
	"github.com/FairForge/kvbench/internal/models"
	"github.com/FairForge/kvbench/internal/store"
)

// Config describes one load run
type Config struct {
	Workers      int
	Duration     time.Duration
	Scenario     models.Scenario
	Attributes   int
	CatalogLimit int
	Policy       RetryPolicy
	MaxJitter    time.Duration
}

// Observer is told when workers come and go
type Observer interface {
	WorkerStarted()
	WorkerStopped()
}

// FactoryFunc builds the item factory of one worker from its seed
type FactoryFunc func(seed int64) items.Factory

// Result summarizes a finished run
type Result struct {
	Workers    int
	Failed     int
	Iterations int
}

// Coordinator fetches the key catalog, starts the workers and stops them
// when the run duration elapses or ctx ends
type Coordinator struct {
	store    store.Store
	cfg      Config
	logger   *zap.Logger
	factory  FactoryFunc
	seed     int64
	observer Observer
	signal   *Signal
}

// CoordinatorOption configures a Coordinator
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger adds logging
func WithCoordinatorLogger(logger *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithFactory replaces the item generator used by workers
func WithFactory(fn FactoryFunc) CoordinatorOption {
	return func(c *Coordinator) {
		c.factory = fn
	}
}

// WithSeed sets the base seed; worker i uses seed+i
func WithSeed(seed int64) CoordinatorOption {
	return func(c *Coordinator) {
		c.seed = seed
	}
}

// WithObserver reports worker lifecycle events
func WithObserver(o Observer) CoordinatorOption {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// NewCoordinator creates a coordinator for cfg
func NewCoordinator(st store.Store, cfg Config, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:   st,
		cfg:     cfg,
		logger:  zap.NewNop(),
		factory: func(seed int64) items.Factory { return items.NewGenerator(seed) },
		seed:    time.Now().UnixNano(),
		signal:  NewSignal(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stop ends the run early. Workers finish their current scenario first.
func (c *Coordinator) Stop() {
	c.signal.Cancel()
}

// Run executes the load run and closes out when every worker has returned.
// Only a catalog failure is returned as an error; worker failures are logged
// and counted in the result.
func (c *Coordinator) Run(ctx context.Context, out chan<- models.SimulationMetrics) (Result, error) {
	defer close(out)

	if c.cfg.Workers < 1 {
		return Result{}, fmt.Errorf("simulator: at least one worker required, got %d", c.cfg.Workers)
	}

	catalog, err := FetchCatalog(ctx, c.store, c.cfg.CatalogLimit, c.logger)
	if err != nil {
		return Result{}, err
	}

	stopDeadline := func() bool { return false }
	if c.cfg.Duration > 0 {
		t := time.AfterFunc(c.cfg.Duration, c.signal.Cancel)
		stopDeadline = t.Stop
	}
	defer stopDeadline()
	stopInterrupt := context.AfterFunc(ctx, c.signal.Cancel)
	defer stopInterrupt()

	c.logger.Info("starting simulations",
		zap.Int("workers", c.cfg.Workers),
		zap.Stringer("scenario", c.cfg.Scenario),
		zap.Duration("duration", c.cfg.Duration),
		zap.Int("attributes", c.cfg.Attributes))

	workers := make([]*Worker, c.cfg.Workers)
	errs := make([]error, c.cfg.Workers)

	var wg sync.WaitGroup
	for i := range workers {
		seed := c.seed + int64(i)
		sim := New(c.store, c.factory(seed), catalog, c.cfg.Attributes,
			WithRand(newRand(seed)),
			WithRetryPolicy(c.cfg.Policy),
			WithMaxJitter(c.cfg.MaxJitter),
			WithLogger(c.logger.With(zap.Int("worker", i))))
		workers[i] = NewWorker(i, sim, c.cfg.Scenario, out, c.signal, c.logger)

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if c.observer != nil {
				c.observer.WorkerStarted()
				defer c.observer.WorkerStopped()
			}
			errs[i] = workers[i].Run(ctx)
		}(i)
	}
	wg.Wait()

	result := Result{Workers: len(workers)}
	for i, w := range workers {
		result.Iterations += w.Iterations()
		if errs[i] == nil {
			continue
		}
		result.Failed++
		if errors.Is(errs[i], context.Canceled) || errors.Is(errs[i], context.DeadlineExceeded) {
			c.logger.Warn("worker aborted", zap.Int("worker", i), zap.Error(errs[i]))
			continue
		}
		c.logger.Error("worker failed", zap.Int("worker", i), zap.Error(errs[i]))
	}

	c.logger.Info("all simulations finished",
		zap.Int("workers", result.Workers),
		zap.Int("failed", result.Failed),
		zap.Int("iterations", result.Iterations))
	return result, nil
}
