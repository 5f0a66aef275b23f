package events

import (
	"context"
	"time"
)

// Event types published by the resource manager.
const (
	TypeResourceUsage = "RESOURCE_USAGE"
	TypeResourceAlert = "RESOURCE_ALERT"
)

// Event is the envelope handed to the external pub/sub mechanism.
type Event struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Timestamp     time.Time         `json:"timestamp"`
	Data          interface{}       `json:"data"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Publisher delivers events best effort. Delivery is fire-and-forget:
// at-least-once is not guaranteed and failures never block the caller.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NoopPublisher discards every event.
var NoopPublisher Publisher = noopPublisher{}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error {
	return nil
}
