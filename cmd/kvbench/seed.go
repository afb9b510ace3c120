// cmd/kvbench/seed.go
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/items"
	"github.com/FairForge/kvbench/internal/logger"
	"github.com/FairForge/kvbench/internal/store"
)

func newSeedCommand(opts *options) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the table with synthetic items so simulations have keys to read",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}

			log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			backend, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			collector := newSeedRecorder(log)
			backend = wrapStore(backend, cfg, collector, log)

			written, err := store.Seed(cmd.Context(), backend, items.NewGenerator(time.Now().UnixNano()), count, cfg.Simulation.Attributes, log)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d items into %s\n", written, cfg.Store.Table)
			return err
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10000, "Number of items to write")
	return cmd
}

// seedRecorder logs failed seed writes
type seedRecorder struct {
	log *zap.Logger
}

func newSeedRecorder(log *zap.Logger) *seedRecorder {
	return &seedRecorder{log: log}
}

func (r *seedRecorder) ObserveStoreRequest(op string, elapsed time.Duration, err error) {
	if err != nil {
		r.log.Warn("store request failed", zap.String("op", op), zap.Duration("elapsed", elapsed), zap.Error(err))
	}
}
