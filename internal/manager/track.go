package manager

import (
	"context"

	"go.uber.org/zap"

	"resman/internal/tier"
	"resman/pkg/resman"
)

// TrackUsage reconciles reported consumption against a tracked line item.
// Unknown allocation IDs are a warning-level no-op: the allocation was
// already released or never existed. Consumption above the allocated amount
// triggers overage handling per the scope's enforcement policy.
func (m *Manager) TrackUsage(ctx context.Context, allocationID string, usage resman.Usage) error {
	m.mu.Lock()
	t, ok := m.selectTrackingLocked(allocationID, usage.ResourceType)
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("usage reported for unknown allocation",
			zap.String("allocation_id", allocationID),
			zap.String("resource_type", string(usage.ResourceType)),
		)
		return nil
	}

	now := m.clock.Now()
	t.Used = usage.Consumed
	t.LastUpdate = now

	if usage.Consumed > t.Allocated {
		m.handleOverageLocked(t, usage.Consumed)
	}

	snapshot := *t
	ev := m.recordUsageLocked(resman.OperationUse, allocationID, t.ResourceType, usage.Consumed, t.Metadata.Context)
	m.mu.Unlock()

	m.forwardUsage(ctx, snapshot, usage)
	m.publishUsage(ev)
	m.persistTrackings([]resman.ResourceTracking{snapshot})
	return nil
}

// selectTrackingLocked resolves which line item a usage report targets.
// An explicit resource type wins; otherwise the allocation's single entry is
// used, or its first entry by resource type with a warning. The caller
// holds mu.
func (m *Manager) selectTrackingLocked(allocationID string, rt resman.ResourceType) (*resman.ResourceTracking, bool) {
	if rt != "" {
		t, ok := m.allocs[trackingKey(allocationID, rt)]
		return t, ok
	}
	entries := m.trackingByAllocationLocked(allocationID)
	if len(entries) == 0 {
		return nil, false
	}
	if len(entries) > 1 {
		m.logger.Warn("usage report without resource type on multi-resource allocation",
			zap.String("allocation_id", allocationID),
			zap.Int("entries", len(entries)),
		)
	}
	return entries[0], true
}

// handleOverageLocked applies the scope's enforcement policy when consumption
// exceeds the allocated amount. The caller holds mu.
func (m *Manager) handleOverageLocked(t *resman.ResourceTracking, consumed float64) {
	cfg, ok := m.limits.Get(t.Scope, t.ScopeID)
	if ok && cfg.Enforcement.OverageAllowed {
		multiplier := cfg.Enforcement.OverageMultiplier
		if multiplier <= 0 {
			multiplier = defaultOverageMultiplier
		}
		costPerUnit := 0.0
		if pool, ok := m.pools[t.ResourceType]; ok {
			costPerUnit = pool.CostPerUnit
		}
		t.Metadata.OverageCost = (consumed - t.Allocated) * costPerUnit * multiplier
		return
	}
	m.publishAlert("overage", "high", t.ID, t.ResourceType, t.Allocated*alertThresholdRatio)
}

// forwardUsage pushes usage to the tier-specific collaborators. Tier 2 has
// no forwarding hook.
func (m *Manager) forwardUsage(ctx context.Context, t resman.ResourceTracking, usage resman.Usage) {
	switch t.Metadata.Tier {
	case 1:
		if _, err := m.tier1.GetResourceStatus(ctx, t.ScopeID); err != nil {
			m.logger.Warn("tier-1 status refresh failed",
				zap.String("scope_id", t.ScopeID),
				zap.Error(err),
			)
		}
	case 3:
		if err := m.tier3.TrackUsage(ctx, t.ScopeID, tier.Usage{Cost: usage.Cost, Tokens: usage.Consumed}); err != nil {
			m.logger.Warn("tier-3 usage forwarding failed",
				zap.String("scope_id", t.ScopeID),
				zap.Error(err),
			)
		}
	}
}
