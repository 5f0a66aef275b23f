package manager

import (
	"context"

	"go.uber.org/zap"

	"resman/internal/events"
	"resman/pkg/resman"
)

// historyRing is the bounded in-memory buffer of usage events, oldest
// evicted first.
type historyRing struct {
	buf []resman.ResourceUsageEvent
	max int
}

func newHistoryRing(max int) *historyRing {
	return &historyRing{max: max}
}

func (r *historyRing) append(ev resman.ResourceUsageEvent) {
	if len(r.buf) == r.max {
		copy(r.buf, r.buf[1:])
		r.buf = r.buf[:len(r.buf)-1]
	}
	r.buf = append(r.buf, ev)
}

func (r *historyRing) snapshot() []resman.ResourceUsageEvent {
	out := make([]resman.ResourceUsageEvent, len(r.buf))
	copy(out, r.buf)
	return out
}

// recordUsageLocked appends a usage event to the rolling buffer and returns
// it for external publication. The caller holds mu.
func (m *Manager) recordUsageLocked(op resman.UsageOperation, allocationID string, rt resman.ResourceType, amount float64, ac resman.AllocationContext) resman.ResourceUsageEvent {
	ev := resman.ResourceUsageEvent{
		ID:           m.newID(),
		Timestamp:    m.clock.Now(),
		AllocationID: allocationID,
		ResourceType: rt,
		Amount:       amount,
		Operation:    op,
		Context:      ac,
	}
	m.history.append(ev)
	return ev
}

// publishUsage hands a usage event to the publisher on a detached goroutine.
// Failures are logged, never propagated.
func (m *Manager) publishUsage(ev resman.ResourceUsageEvent) {
	m.publishEvent(events.Event{
		ID:            ev.ID,
		Type:          events.TypeResourceUsage,
		Timestamp:     ev.Timestamp,
		Data:          ev,
		CorrelationID: ev.AllocationID,
	})
}

// publishAlert emits a RESOURCE_ALERT event, best effort.
func (m *Manager) publishAlert(alertType, severity, allocationID string, rt resman.ResourceType, threshold float64) {
	m.publishEvent(events.Event{
		ID:            m.newID(),
		Type:          events.TypeResourceAlert,
		Timestamp:     m.clock.Now(),
		CorrelationID: allocationID,
		Data: map[string]interface{}{
			"alert_type":    alertType,
			"severity":      severity,
			"allocation_id": allocationID,
			"resource_type": rt,
			"threshold":     threshold,
		},
	})
}

func (m *Manager) publishEvent(ev events.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := m.pub.Publish(ctx, ev); err != nil {
			m.logger.Warn("event publish failed",
				zap.String("event_id", ev.ID),
				zap.String("event_type", ev.Type),
				zap.Error(err),
			)
		}
	}()
}
