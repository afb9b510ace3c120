// Package config holds the run configuration. Values come from defaults, an
// optional YAML file, KVBENCH_* environment variables and finally CLI flags,
// each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Store types
const (
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

// Sink types
const (
	SinkElasticsearch = "elasticsearch"
	SinkLog           = "log"
	SinkNone          = "none"
)

type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Store      StoreConfig      `yaml:"store"`
	Sink       SinkConfig       `yaml:"sink"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

type SimulationConfig struct {
	ConcurrentSimulations int           `yaml:"concurrent_simulations"`
	Attributes            int           `yaml:"attributes"`
	Duration              time.Duration `yaml:"duration"`
	Buffer                int           `yaml:"buffer"`
	ReadOnly              bool          `yaml:"read_only"`
	MaxJitter             time.Duration `yaml:"max_jitter"`
	ConfirmAttempts       int           `yaml:"confirm_attempts"`
	ConfirmDelay          time.Duration `yaml:"confirm_delay"`
	CatalogLimit          int           `yaml:"catalog_limit"`
	DrainTimeout          time.Duration `yaml:"drain_timeout"`
}

type StoreConfig struct {
	Type           string        `yaml:"type"`
	Table          string        `yaml:"table"`
	Region         string        `yaml:"region"`
	Endpoint       string        `yaml:"endpoint"`
	AccessKey      string        `yaml:"access_key"`
	SecretKey      string        `yaml:"secret_key"`
	RateLimit      float64       `yaml:"rate_limit"`
	CreateTable    bool          `yaml:"create_table"`
	SeedItems      int           `yaml:"seed_items"`
	ConsistencyLag time.Duration `yaml:"consistency_lag"`
}

type SinkConfig struct {
	Type      string   `yaml:"type"`
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

type MetricsConfig struct {
	// Addr enables the Prometheus endpoint when set, e.g. ":9090"
	Addr string `yaml:"addr"`
}

// ThresholdsConfig lists run objectives reported after the summary. Zero
// values are not checked.
type ThresholdsConfig struct {
	MaxErrorRate  float64       `yaml:"max_error_rate"`
	MaxP99        time.Duration `yaml:"max_p99"`
	MinThroughput float64       `yaml:"min_throughput"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			ConcurrentSimulations: 1000,
			Attributes:            5,
			Duration:              30 * time.Minute,
			Buffer:                500,
			MaxJitter:             15 * time.Second,
			ConfirmAttempts:       10,
			CatalogLimit:          10000,
			DrainTimeout:          30 * time.Second,
		},
		Store: StoreConfig{
			Type:   StoreDynamoDB,
			Table:  DefaultTable(),
			Region: os.Getenv("AWS_REGION"),
		},
		Sink: SinkConfig{
			Type:      SinkElasticsearch,
			Addresses: []string{"http://localhost:9200"},
			Username:  "elastic",
			Password:  "changeme",
			Index:     "dynamodb",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultTable is named after the current user
func DefaultTable() string {
	return GetEnvOrDefault("USER", "kvbench") + "-high-velocity-table"
}

// Load reads a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	var problems []string

	s := c.Simulation
	if s.ConcurrentSimulations < 1 {
		problems = append(problems, "concurrent_simulations must be at least 1")
	}
	if s.Attributes < 1 {
		problems = append(problems, "attributes must be at least 1")
	}
	if s.Duration <= 0 {
		problems = append(problems, "duration must be positive")
	}
	if s.Buffer < 0 {
		problems = append(problems, "buffer must not be negative")
	}
	if s.MaxJitter < 0 {
		problems = append(problems, "max_jitter must not be negative")
	}
	if s.ConfirmAttempts < 1 {
		problems = append(problems, "confirm_attempts must be at least 1")
	}
	if s.ConfirmDelay < 0 {
		problems = append(problems, "confirm_delay must not be negative")
	}
	if s.DrainTimeout < 0 {
		problems = append(problems, "drain_timeout must not be negative")
	}
	if s.CatalogLimit < 1 {
		problems = append(problems, "catalog_limit must be at least 1")
	}

	switch c.Store.Type {
	case StoreDynamoDB:
		if c.Store.Table == "" {
			problems = append(problems, "store.table is required")
		}
		if (c.Store.AccessKey == "") != (c.Store.SecretKey == "") {
			problems = append(problems, "store.access_key and store.secret_key must be set together")
		}
	case StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown store type %q", c.Store.Type))
	}
	if c.Store.RateLimit < 0 {
		problems = append(problems, "store.rate_limit must not be negative")
	}
	if c.Store.SeedItems < 0 {
		problems = append(problems, "store.seed_items must not be negative")
	}
	if c.Store.ConsistencyLag < 0 {
		problems = append(problems, "store.consistency_lag must not be negative")
	}

	switch c.Sink.Type {
	case SinkElasticsearch:
		if len(c.Sink.Addresses) == 0 {
			problems = append(problems, "sink.addresses is required")
		}
		if c.Sink.Index == "" {
			problems = append(problems, "sink.index is required")
		}
	case SinkLog, SinkNone:
	default:
		problems = append(problems, fmt.Sprintf("unknown sink type %q", c.Sink.Type))
	}

	if c.Thresholds.MaxErrorRate < 0 || c.Thresholds.MaxP99 < 0 || c.Thresholds.MinThroughput < 0 {
		problems = append(problems, "thresholds must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
