package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/kvbench/internal/config"
)

// configFrom parses args and returns the layered configuration without
// running anything
func configFrom(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var cfg *config.Config
	root := newRootCommand(func(_ *cobra.Command, c *config.Config) error {
		cfg = c
		return nil
	})
	root.SetArgs(args)
	err := root.Execute()
	return cfg, err
}

func runCommand(args ...string) *cobra.Command {
	root := newRootCommand(func(cmd *cobra.Command, cfg *config.Config) error {
		return runBenchmark(cmd.Context(), cfg, cmd.OutOrStdout())
	})
	root.SetArgs(args)
	return root
}

func TestLoadConfig_ShortFlags(t *testing.T) {
	cfg, err := configFrom(t, "-c", "8", "-a", "3", "-d", "60", "-b", "16", "-r",
		"-u", "admin", "-p", "secret", "-i", "bench", "-t", "orders", "-e", "http://localhost:8000")
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Simulation.ConcurrentSimulations)
	assert.Equal(t, 3, cfg.Simulation.Attributes)
	assert.Equal(t, time.Minute, cfg.Simulation.Duration)
	assert.Equal(t, 16, cfg.Simulation.Buffer)
	assert.True(t, cfg.Simulation.ReadOnly)
	assert.Equal(t, "admin", cfg.Sink.Username)
	assert.Equal(t, "secret", cfg.Sink.Password)
	assert.Equal(t, "bench", cfg.Sink.Index)
	assert.Equal(t, "orders", cfg.Store.Table)
	assert.Equal(t, "http://localhost:8000", cfg.Store.Endpoint)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
simulation:
  concurrent_simulations: 20
  attributes: 7
  buffer: 64
`), 0o600))
	t.Setenv("KVBENCH_ATTRIBUTES", "9")

	cfg, err := configFrom(t, "--config", path, "-b", "32")
	require.NoError(t, err)

	// file over default, env over file, flag over everything
	assert.Equal(t, 20, cfg.Simulation.ConcurrentSimulations)
	assert.Equal(t, 9, cfg.Simulation.Attributes)
	assert.Equal(t, 32, cfg.Simulation.Buffer)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	_, err := configFrom(t, "-a", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRun_InMemory(t *testing.T) {
	root := runCommand(
		"--store", "memory",
		"--sink", "none",
		"--seed-items", "50",
		"--log-level", "error",
		"-c", "4",
		"-d", "1",
		"--max-jitter", "0s",
	)
	var out bytes.Buffer
	root.SetOut(&out)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, root.ExecuteContext(ctx))

	report := out.String()
	assert.Contains(t, report, "Scenarios:")
	assert.Contains(t, report, "crud")
}

func TestRun_SinkSetupFailureExitsWithError(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Type = config.StoreMemory
	cfg.Sink.Addresses = []string{"http://127.0.0.1:1"}
	cfg.Simulation.ConcurrentSimulations = 1
	cfg.Simulation.Duration = time.Second
	cfg.Log.Level = "error"

	err := runBenchmark(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elasticsearch")
}

func TestThresholds(t *testing.T) {
	assert.Empty(t, thresholds(config.ThresholdsConfig{}))
	objectives := thresholds(config.ThresholdsConfig{MaxP99: 250 * time.Millisecond, MaxErrorRate: 1})
	require.Len(t, objectives, 2)
	assert.Equal(t, 250.0, objectives[0].Target)
}

func TestVersionCommand(t *testing.T) {
	root := runCommand("version")
	var out bytes.Buffer
	root.SetOut(&out)
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "kvbench")
}
