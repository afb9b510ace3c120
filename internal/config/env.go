package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv applies environment overrides. Unparseable values are ignored.
func LoadFromEnv(cfg *Config) {
	envInt("KVBENCH_CONCURRENT_SIMULATIONS", &cfg.Simulation.ConcurrentSimulations)
	envInt("KVBENCH_ATTRIBUTES", &cfg.Simulation.Attributes)
	envDuration("KVBENCH_DURATION", &cfg.Simulation.Duration)
	envInt("KVBENCH_BUFFER", &cfg.Simulation.Buffer)
	envBool("KVBENCH_READ_ONLY", &cfg.Simulation.ReadOnly)
	envDuration("KVBENCH_MAX_JITTER", &cfg.Simulation.MaxJitter)
	envInt("KVBENCH_CONFIRM_ATTEMPTS", &cfg.Simulation.ConfirmAttempts)
	envDuration("KVBENCH_CONFIRM_DELAY", &cfg.Simulation.ConfirmDelay)
	envInt("KVBENCH_CATALOG_LIMIT", &cfg.Simulation.CatalogLimit)
	envDuration("KVBENCH_DRAIN_TIMEOUT", &cfg.Simulation.DrainTimeout)

	envString("KVBENCH_STORE_TYPE", &cfg.Store.Type)
	envString("KVBENCH_TABLE", &cfg.Store.Table)
	envString("AWS_REGION", &cfg.Store.Region)
	envString("DAX_ENDPOINT", &cfg.Store.Endpoint)
	envString("KVBENCH_STORE_ENDPOINT", &cfg.Store.Endpoint)
	envString("KVBENCH_ACCESS_KEY", &cfg.Store.AccessKey)
	envString("KVBENCH_SECRET_KEY", &cfg.Store.SecretKey)
	if v := os.Getenv("KVBENCH_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Store.RateLimit = f
		}
	}
	envBool("KVBENCH_CREATE_TABLE", &cfg.Store.CreateTable)
	envInt("KVBENCH_SEED_ITEMS", &cfg.Store.SeedItems)
	envDuration("KVBENCH_CONSISTENCY_LAG", &cfg.Store.ConsistencyLag)

	envString("KVBENCH_SINK", &cfg.Sink.Type)
	if v := os.Getenv("KVBENCH_ES_ADDRESSES"); v != "" {
		cfg.Sink.Addresses = strings.Split(v, ",")
	}
	envString("KVBENCH_ES_USERNAME", &cfg.Sink.Username)
	envString("KVBENCH_ES_PASSWORD", &cfg.Sink.Password)
	envString("KVBENCH_ES_INDEX", &cfg.Sink.Index)

	envString("KVBENCH_METRICS_ADDR", &cfg.Metrics.Addr)
	envString("KVBENCH_LOG_LEVEL", &cfg.Log.Level)
	envBool("KVBENCH_LOG_DEVELOPMENT", &cfg.Log.Development)
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// envDuration accepts a Go duration ("30m") or, like the -d flag, a bare
// number of seconds ("1800")
func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
