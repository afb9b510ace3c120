// internal/metrics/collector.go
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FairForge/kvbench/internal/models"
)

const namespace = "kvbench"

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector exports simulation records, store requests and worker counts as
// Prometheus metrics. Each collector owns its registry so several can coexist
// in one process.
type Collector struct {
	registry *prometheus.Registry

	scenariosTotal *prometheus.CounterVec
	phaseDuration  *prometheus.HistogramVec

	storeRequests *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec

	workersActive prometheus.Gauge
	startTime     time.Time
}

// NewCollector creates a collector with a fresh registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		scenariosTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scenarios_total",
				Help:      "Total number of completed simulation scenarios",
			},
			[]string{"scenario", "operation", "outcome"},
		),

		phaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Duration of each simulation phase in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
			},
			[]string{"scenario", "operation", "phase"},
		),

		storeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_requests_total",
				Help:      "Total number of key-value store requests",
			},
			[]string{"op", "outcome"},
		),

		storeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_request_duration_seconds",
				Help:      "Key-value store request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),

		workersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workers_active",
				Help:      "Number of running simulation workers",
			},
		),

		startTime: time.Now(),
	}
}

// Publish records one finished scenario. It never fails.
func (c *Collector) Publish(_ context.Context, m models.SimulationMetrics) error {
	scenario, operation := m.Scenario.String(), m.Operation.String()

	c.scenariosTotal.WithLabelValues(scenario, operation, outcome(m.Successful)).Inc()
	for _, p := range m.Phases() {
		c.phaseDuration.WithLabelValues(scenario, operation, string(p.Phase)).Observe(p.Millis / 1000)
	}
	return nil
}

// ObserveStoreRequest records one store request
func (c *Collector) ObserveStoreRequest(op string, elapsed time.Duration, err error) {
	c.storeRequests.WithLabelValues(op, outcome(err == nil)).Inc()
	c.storeDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// WorkerStarted increments the active worker gauge
func (c *Collector) WorkerStarted() {
	c.workersActive.Inc()
}

// WorkerStopped decrements the active worker gauge
func (c *Collector) WorkerStopped() {
	c.workersActive.Dec()
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Uptime returns how long the collector has existed
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
