package events

import (
	"context"
	"sync"
)

// Compile-time interface check.
var _ Publisher = (*MemoryPublisher)(nil)

// MemoryPublisher records events in memory so tests can assert on them.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher creates an empty recording publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish appends the event to the recorded list.
func (p *MemoryPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// Events returns a snapshot of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshot := make([]Event, len(p.events))
	copy(snapshot, p.events)
	return snapshot
}

// ByType returns recorded events matching the given type.
func (p *MemoryPublisher) ByType(eventType string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []Event
	for _, ev := range p.events {
		if ev.Type == eventType {
			matched = append(matched, ev)
		}
	}
	return matched
}
