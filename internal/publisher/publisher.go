// Package publisher drains simulation records from the workers and hands
// them to one or more sinks.
package publisher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/models"
)

// Sink receives finished simulation records
type Sink interface {
	Publish(ctx context.Context, m models.SimulationMetrics) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, m models.SimulationMetrics) error

// Publish calls f
func (f SinkFunc) Publish(ctx context.Context, m models.SimulationMetrics) error {
	return f(ctx, m)
}

// Stats counts what happened to the records a publisher received
type Stats struct {
	Published int
	Dropped   int
}

// Publisher is the single consumer of the metrics channel
type Publisher struct {
	sink   Sink
	logger *zap.Logger
}

// New creates a publisher writing to sink
func New(sink Sink, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{sink: sink, logger: logger}
}

// Run publishes records until in is closed or ctx ends. A record the sink
// rejects is logged and dropped; it is never retried.
func (p *Publisher) Run(ctx context.Context, in <-chan models.SimulationMetrics) Stats {
	var stats Stats
	for {
		select {
		case m, ok := <-in:
			if !ok {
				p.logger.Info("metrics channel closed",
					zap.Int("published", stats.Published),
					zap.Int("dropped", stats.Dropped))
				return stats
			}
			p.publish(ctx, m, &stats)
		case <-ctx.Done():
			p.logger.Warn("publisher aborted before channel closed",
				zap.Int("published", stats.Published),
				zap.Int("dropped", stats.Dropped),
				zap.Error(ctx.Err()))
			return stats
		}
	}
}

func (p *Publisher) publish(ctx context.Context, m models.SimulationMetrics, stats *Stats) {
	if err := p.sink.Publish(ctx, m); err != nil {
		stats.Dropped++
		p.logger.Error("unable to publish metrics",
			zap.Stringer("scenario", m.Scenario),
			zap.Stringer("operation", m.Operation),
			zap.Error(err))
		return
	}
	stats.Published++
	p.logger.Debug("published metrics",
		zap.Stringer("scenario", m.Scenario),
		zap.Stringer("operation", m.Operation))
}

// MultiSink fans every record out to all of its sinks. The record counts as
// published only if every sink accepted it.
type MultiSink []Sink

// Publish sends m to every sink and joins their errors
func (ms MultiSink) Publish(ctx context.Context, m models.SimulationMetrics) error {
	var errs []error
	for _, s := range ms {
		if err := s.Publish(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard accepts and forgets every record
var Discard Sink = SinkFunc(func(context.Context, models.SimulationMetrics) error { return nil })
