// cmd/kvbench/run.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/config"
	"github.com/FairForge/kvbench/internal/items"
	"github.com/FairForge/kvbench/internal/loadtest"
	"github.com/FairForge/kvbench/internal/logger"
	"github.com/FairForge/kvbench/internal/metrics"
	"github.com/FairForge/kvbench/internal/models"
	"github.com/FairForge/kvbench/internal/publisher"
	"github.com/FairForge/kvbench/internal/simulator"
	"github.com/FairForge/kvbench/internal/store"
)

// memorySeedItems fills an in-memory table that was given no seed count
const memorySeedItems = 1000

func runBenchmark(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	collector := metrics.NewCollector()
	if cfg.Metrics.Addr != "" {
		server := metrics.NewServer(cfg.Metrics.Addr, collector, log)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("metrics server shutdown", zap.Error(err))
			}
		}()
	}

	backend, err := openStore(sigCtx, cfg, log)
	if err != nil {
		return err
	}
	if n := seedCount(cfg); n > 0 {
		if _, err := store.Seed(sigCtx, backend, items.NewGenerator(time.Now().UnixNano()), n, cfg.Simulation.Attributes, log); err != nil {
			return fmt.Errorf("failed to seed table: %w", err)
		}
	}
	backend = wrapStore(backend, cfg, collector, log)

	sink, err := openSink(sigCtx, cfg, log)
	if err != nil {
		return err
	}
	aggregator := loadtest.NewAggregator()
	sinks := publisher.MultiSink{aggregator, collector}
	if sink != nil {
		sinks = append(sinks, sink)
	}

	scenario := models.ScenarioCrud
	if cfg.Simulation.ReadOnly {
		scenario = models.ScenarioReadOnly
	}
	coordinator := simulator.NewCoordinator(backend, simulator.Config{
		Workers:      cfg.Simulation.ConcurrentSimulations,
		Duration:     cfg.Simulation.Duration,
		Scenario:     scenario,
		Attributes:   cfg.Simulation.Attributes,
		CatalogLimit: cfg.Simulation.CatalogLimit,
		Policy: simulator.RetryPolicy{
			MaxAttempts: cfg.Simulation.ConfirmAttempts,
			Delay:       cfg.Simulation.ConfirmDelay,
		},
		MaxJitter: cfg.Simulation.MaxJitter,
	},
		simulator.WithCoordinatorLogger(log),
		simulator.WithObserver(collector))

	// An interrupt ends the run like the deadline does. Work still blocked
	// once the drain timeout passes is aborted.
	runCtx, abort := context.WithCancel(context.WithoutCancel(ctx))
	defer abort()
	stopInterrupt := context.AfterFunc(sigCtx, func() {
		log.Warn("interrupted, finishing in-flight simulations",
			zap.Duration("drainTimeout", cfg.Simulation.DrainTimeout))
		coordinator.Stop()
		time.AfterFunc(cfg.Simulation.DrainTimeout, abort)
	})
	defer stopInterrupt()

	out := make(chan models.SimulationMetrics, cfg.Simulation.Buffer)
	published := make(chan publisher.Stats, 1)
	go func() {
		published <- publisher.New(sinks, log).Run(runCtx, out)
	}()

	result, runErr := coordinator.Run(runCtx, out)

	var stats publisher.Stats
	select {
	case stats = <-published:
	case <-time.After(cfg.Simulation.DrainTimeout):
		log.Warn("publisher did not drain in time, dropping remaining metrics")
		abort()
		stats = <-published
	}

	if runErr != nil {
		return fmt.Errorf("simulation failed: %w", runErr)
	}

	log.Info("run finished",
		zap.Int("workers", result.Workers),
		zap.Int("failedWorkers", result.Failed),
		zap.Int("scenarios", result.Iterations),
		zap.Int("published", stats.Published),
		zap.Int("dropped", stats.Dropped))

	summary := aggregator.Summary()
	if err := loadtest.WriteReport(stdout, summary); err != nil {
		return err
	}
	if objectives := thresholds(cfg.Thresholds); len(objectives) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprint(stdout, loadtest.Validate(summary, objectives...).GenerateReport())
	}
	return nil
}

// openStore connects the configured backend, creating the table on request
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.Store.Type {
	case config.StoreMemory:
		log.Info("using in-memory store", zap.Duration("consistencyLag", cfg.Store.ConsistencyLag))
		return store.NewMemoryStore(store.WithLag(cfg.Store.ConsistencyLag)), nil

	case config.StoreDynamoDB:
		dynamo, err := store.NewDynamoStore(ctx, store.DynamoConfig{
			Table:     cfg.Store.Table,
			Region:    cfg.Store.Region,
			Endpoint:  cfg.Store.Endpoint,
			AccessKey: cfg.Store.AccessKey,
			SecretKey: cfg.Store.SecretKey,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create dynamodb store: %w", err)
		}
		if cfg.Store.CreateTable {
			if err := dynamo.EnsureTable(ctx, 5*time.Minute); err != nil {
				return nil, err
			}
		}
		log.Info("using dynamodb store",
			zap.String("table", cfg.Store.Table),
			zap.String("region", cfg.Store.Region),
			zap.String("endpoint", cfg.Store.Endpoint))
		return dynamo, nil

	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func seedCount(cfg *config.Config) int {
	if cfg.Store.SeedItems == 0 && cfg.Store.Type == config.StoreMemory {
		return memorySeedItems
	}
	return cfg.Store.SeedItems
}

// wrapStore adds throttling and instrumentation around the backend
func wrapStore(backend store.Store, cfg *config.Config, recorder store.Recorder, log *zap.Logger) store.Store {
	if cfg.Store.RateLimit > 0 {
		rps := int(cfg.Store.RateLimit + 0.5)
		if rps < 1 {
			rps = 1
		}
		log.Info("throttling store requests", zap.Int("requestsPerSecond", rps))
		backend = store.NewThrottledStore(backend, rps, rps, log)
	}
	return store.NewInstrumentedStore(backend, recorder)
}

// openSink returns the external sink, or nil when none is configured
func openSink(ctx context.Context, cfg *config.Config, log *zap.Logger) (publisher.Sink, error) {
	switch cfg.Sink.Type {
	case config.SinkElasticsearch:
		es, err := publisher.NewElasticsearchSink(publisher.ElasticsearchConfig{
			Addresses: cfg.Sink.Addresses,
			Username:  cfg.Sink.Username,
			Password:  cfg.Sink.Password,
			Index:     cfg.Sink.Index,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := es.Setup(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare elasticsearch index: %w", err)
		}
		return es, nil
	case config.SinkLog:
		return publisher.NewLogSink(log), nil
	case config.SinkNone:
		return nil, nil
	default:
		return nil, errors.New("unknown sink type " + cfg.Sink.Type)
	}
}

func thresholds(t config.ThresholdsConfig) []loadtest.SLO {
	var objectives []loadtest.SLO
	if t.MaxP99 > 0 {
		objectives = append(objectives, loadtest.NewLatencySLO(loadtest.MetricLatencyP99, float64(t.MaxP99)/float64(time.Millisecond)))
	}
	if t.MaxErrorRate > 0 {
		objectives = append(objectives, loadtest.NewErrorRateSLO(t.MaxErrorRate))
	}
	if t.MinThroughput > 0 {
		objectives = append(objectives, loadtest.NewThroughputSLO(t.MinThroughput))
	}
	return objectives
}
