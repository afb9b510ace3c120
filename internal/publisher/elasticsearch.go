// internal/publisher/elasticsearch.go
package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/models"
)

// DefaultIndex receives the records unless configured otherwise
const DefaultIndex = "dynamodb"

// timestamp must be a date for time-based dashboards
const indexMapping = `{
  "properties": {
    "timestamp": {
      "type": "date"
    }
  }
}`

// ElasticsearchConfig points the sink at a cluster
type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	// Transport overrides the HTTP transport, mostly for tests
	Transport http.RoundTripper
}

// ElasticsearchSink indexes every record as a document
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

// NewElasticsearchSink creates a client for cfg. Call Setup before
// publishing to a fresh cluster.
func NewElasticsearchSink(cfg ElasticsearchConfig, logger *zap.Logger) (*ElasticsearchSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchSink{
		client: client,
		index:  cfg.Index,
		logger: logger.With(zap.String("index", cfg.Index)),
	}, nil
}

// Index returns the target index name
func (s *ElasticsearchSink) Index() string {
	return s.index
}

// Setup creates the index when missing and applies the explicit mapping
func (s *ElasticsearchSink) Setup(ctx context.Context) error {
	exists, err := s.client.Indices.Exists([]string{s.index},
		s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", s.index, err)
	}
	_ = exists.Body.Close()

	switch exists.StatusCode {
	case http.StatusOK:
		s.logger.Debug("index already exists")
	case http.StatusNotFound:
		s.logger.Info("creating index")
		res, err := s.client.Indices.Create(s.index, s.client.Indices.Create.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", s.index, err)
		}
		if err := responseError(res); err != nil {
			return fmt.Errorf("failed to create index %s: %w", s.index, err)
		}
	default:
		return fmt.Errorf("failed to check index %s: unexpected status %d", s.index, exists.StatusCode)
	}

	s.logger.Info("setting explicit mappings")
	res, err := s.client.Indices.PutMapping([]string{s.index}, strings.NewReader(indexMapping),
		s.client.Indices.PutMapping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to put mapping on %s: %w", s.index, err)
	}
	if err := responseError(res); err != nil {
		return fmt.Errorf("failed to put mapping on %s: %w", s.index, err)
	}
	return nil
}

// Publish indexes m. A non-2xx response is an error.
func (s *ElasticsearchSink) Publish(ctx context.Context, m models.SimulationMetrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	res, err := s.client.Index(s.index, bytes.NewReader(data), s.client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to index metrics: %w", err)
	}
	if err := responseError(res); err != nil {
		return fmt.Errorf("failed to index metrics: %w", err)
	}
	return nil
}

// responseError closes res and turns an error status into an error
func responseError(res *esapi.Response) error {
	defer func() { _ = res.Body.Close() }()
	if !res.IsError() {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("elasticsearch responded %s: %s", res.Status(), strings.TrimSpace(string(body)))
}
