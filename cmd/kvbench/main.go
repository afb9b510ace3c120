// cmd/kvbench/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FairForge/kvbench/internal/config"
)

var version = "dev"

type options struct {
	configPath string

	concurrentSimulations int
	attributes            int
	durationSeconds       int
	buffer                int
	readOnly              bool
	maxJitter             time.Duration
	confirmAttempts       int
	confirmDelay          time.Duration
	drainTimeout          time.Duration

	storeType      string
	table          string
	endpoint       string
	rateLimit      float64
	createTable    bool
	seedItems      int
	consistencyLag time.Duration

	sinkType string
	username string
	password string
	index    string

	metricsAddr string
	logLevel    string
}

func main() {
	root := newRootCommand(func(cmd *cobra.Command, cfg *config.Config) error {
		return runBenchmark(cmd.Context(), cfg, cmd.OutOrStdout())
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "kvbench: %v\n", err)
		os.Exit(1)
	}
}

// runFunc executes a benchmark with the fully layered configuration
type runFunc func(cmd *cobra.Command, cfg *config.Config) error

func newRootCommand(run runFunc) *cobra.Command {
	opts := &options{}
	defaults := config.Default()

	root := &cobra.Command{
		Use:   "kvbench",
		Short: "Simulate heavy traffic against a key-value table and publish per-scenario latency metrics",
		Long: `kvbench runs many concurrent simulations against a DynamoDB table (or an
in-memory table), measures every read, write, update and delete along with the
time until each change becomes visible, and publishes one metrics record per
scenario to Elasticsearch, the log and Prometheus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")

	f.IntVarP(&opts.concurrentSimulations, "concurrent-simulations", "c", defaults.Simulation.ConcurrentSimulations, "The number of concurrent simulations to run")
	f.IntVarP(&opts.attributes, "attributes", "a", defaults.Simulation.Attributes, "The number of attributes to use when populating and querying the table; minimum value of 1")
	f.IntVarP(&opts.durationSeconds, "duration", "d", int(defaults.Simulation.Duration/time.Second), "The length of time (in seconds) to run the benchmark for")
	f.IntVarP(&opts.buffer, "buffer", "b", defaults.Simulation.Buffer, "The buffer size of the metrics channel")
	f.BoolVarP(&opts.readOnly, "read-only", "r", defaults.Simulation.ReadOnly, "Whether to run a read-only scenario for benchmarking")
	f.DurationVar(&opts.maxJitter, "max-jitter", defaults.Simulation.MaxJitter, "Upper bound of the random delay before each read-only scenario")
	f.IntVar(&opts.confirmAttempts, "confirm-attempts", defaults.Simulation.ConfirmAttempts, "Reads used to confirm a write, update or delete became visible")
	f.DurationVar(&opts.confirmDelay, "confirm-delay", defaults.Simulation.ConfirmDelay, "Pause between confirmation reads")
	f.DurationVar(&opts.drainTimeout, "drain-timeout", defaults.Simulation.DrainTimeout, "How long to wait for in-flight work and unpublished metrics after the run ends")

	f.StringVar(&opts.storeType, "store", defaults.Store.Type, "Store backend: dynamodb or memory")
	f.StringVarP(&opts.table, "table", "t", defaults.Store.Table, "The table to perform operations against")
	f.StringVarP(&opts.endpoint, "endpoint", "e", defaults.Store.Endpoint, "Custom store endpoint, e.g. a DAX proxy or DynamoDB Local (also DAX_ENDPOINT)")
	f.Float64Var(&opts.rateLimit, "rate-limit", defaults.Store.RateLimit, "Maximum store requests per second across all simulations; 0 disables")
	f.BoolVar(&opts.createTable, "create-table", defaults.Store.CreateTable, "Create the table if it does not exist")
	f.IntVar(&opts.seedItems, "seed-items", defaults.Store.SeedItems, "Write this many items before the run starts")
	f.DurationVar(&opts.consistencyLag, "consistency-lag", defaults.Store.ConsistencyLag, "Visibility delay of the in-memory store")

	f.StringVar(&opts.sinkType, "sink", defaults.Sink.Type, "Metrics sink: elasticsearch, log or none")
	f.StringVarP(&opts.username, "username", "u", defaults.Sink.Username, "Elasticsearch cluster username")
	f.StringVarP(&opts.password, "password", "p", defaults.Sink.Password, "Elasticsearch cluster password")
	f.StringVarP(&opts.index, "index", "i", defaults.Sink.Index, "The Elasticsearch index to insert data into")

	f.StringVar(&opts.metricsAddr, "metrics-addr", defaults.Metrics.Addr, "Serve Prometheus metrics on this address, e.g. :9090")
	f.StringVar(&opts.logLevel, "log-level", defaults.Log.Level, "Log level: debug, info, warn or error")

	root.AddCommand(newSeedCommand(opts), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kvbench version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "kvbench", version)
		},
	}
}

// loadConfig layers defaults, the config file, the environment and the
// flags the user actually set
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	config.LoadFromEnv(cfg)

	changed := cmd.Flags().Changed
	set := func(name string, apply func()) {
		if changed(name) {
			apply()
		}
	}

	set("concurrent-simulations", func() { cfg.Simulation.ConcurrentSimulations = opts.concurrentSimulations })
	set("attributes", func() { cfg.Simulation.Attributes = opts.attributes })
	set("duration", func() { cfg.Simulation.Duration = time.Duration(opts.durationSeconds) * time.Second })
	set("buffer", func() { cfg.Simulation.Buffer = opts.buffer })
	set("read-only", func() { cfg.Simulation.ReadOnly = opts.readOnly })
	set("max-jitter", func() { cfg.Simulation.MaxJitter = opts.maxJitter })
	set("confirm-attempts", func() { cfg.Simulation.ConfirmAttempts = opts.confirmAttempts })
	set("confirm-delay", func() { cfg.Simulation.ConfirmDelay = opts.confirmDelay })
	set("drain-timeout", func() { cfg.Simulation.DrainTimeout = opts.drainTimeout })

	set("store", func() { cfg.Store.Type = opts.storeType })
	set("table", func() { cfg.Store.Table = opts.table })
	set("endpoint", func() { cfg.Store.Endpoint = opts.endpoint })
	set("rate-limit", func() { cfg.Store.RateLimit = opts.rateLimit })
	set("create-table", func() { cfg.Store.CreateTable = opts.createTable })
	set("seed-items", func() { cfg.Store.SeedItems = opts.seedItems })
	set("consistency-lag", func() { cfg.Store.ConsistencyLag = opts.consistencyLag })

	set("sink", func() { cfg.Sink.Type = opts.sinkType })
	set("username", func() { cfg.Sink.Username = opts.username })
	set("password", func() { cfg.Sink.Password = opts.password })
	set("index", func() { cfg.Sink.Index = opts.index })

	set("metrics-addr", func() { cfg.Metrics.Addr = opts.metricsAddr })
	set("log-level", func() { cfg.Log.Level = opts.logLevel })

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
