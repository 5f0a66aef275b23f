package events

import "context"

// Compile-time interface check.
var _ Publisher = (*FanoutPublisher)(nil)

// FanoutPublisher forwards each event to every wrapped publisher. The first
// failure is returned but does not stop delivery to the remaining sinks.
type FanoutPublisher struct {
	sinks []Publisher
}

// Fanout combines several publishers into one.
func Fanout(sinks ...Publisher) *FanoutPublisher {
	return &FanoutPublisher{sinks: sinks}
}

// Publish forwards the event to every sink.
func (p *FanoutPublisher) Publish(ctx context.Context, ev Event) error {
	var firstErr error
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
