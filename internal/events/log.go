package events

import (
	"context"

	"go.uber.org/zap"
)

// Compile-time interface check.
var _ Publisher = (*LogPublisher)(nil)

// LogPublisher writes events to the structured log. It stands in for a real
// pub/sub transport in deployments that only need an audit trail.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher writing to the given logger.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event at Info level.
func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.Info("event published",
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
		zap.Time("event_timestamp", ev.Timestamp),
		zap.String("correlation_id", ev.CorrelationID),
		zap.Any("data", ev.Data),
	)
	return nil
}
