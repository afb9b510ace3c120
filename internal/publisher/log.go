// internal/publisher/log.go
package publisher

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LogSink writes every record as a structured log line
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging at info level
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("metrics")}
}

// Publish logs m
func (s *LogSink) Publish(_ context.Context, m models.SimulationMetrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.logger.Info("simulation metrics", zap.ByteString("record", data))
	return nil
}
