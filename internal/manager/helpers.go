package manager

import (
	"sort"
	"time"

	"resman/pkg/resman"
)

// secondsToDuration converts a whole-second count to a time.Duration.
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// trackingKey builds the composite tracker key for one line item.
func trackingKey(allocationID string, rt resman.ResourceType) string {
	return allocationID + ":" + string(rt)
}

// trackingByAllocationLocked returns every line item of an allocation,
// sorted by resource type for deterministic iteration. The caller holds mu.
func (m *Manager) trackingByAllocationLocked(allocationID string) []*resman.ResourceTracking {
	var entries []*resman.ResourceTracking
	for _, t := range m.allocs {
		if t.ID == allocationID {
			entries = append(entries, t)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ResourceType < entries[j].ResourceType
	})
	return entries
}

// matchesScope reports whether a tracking entry belongs to the given scope
// pair, matching on the context field for that level. GLOBAL matches all.
func matchesScope(t *resman.ResourceTracking, scope resman.Scope, scopeID string) bool {
	c := t.Metadata.Context
	switch scope {
	case resman.ScopeGlobal:
		return true
	case resman.ScopeUser:
		return c.UserID == scopeID
	case resman.ScopeSwarm:
		return c.SwarmID == scopeID
	case resman.ScopeRun:
		return c.RunID == scopeID
	case resman.ScopeStep:
		return c.StepID == scopeID
	default:
		return false
	}
}

// usedAtScopeLocked sums consumed usage for one (scope, resource type) pair
// across all tracked allocations. The caller holds mu.
func (m *Manager) usedAtScopeLocked(scope resman.Scope, scopeID string, rt resman.ResourceType) float64 {
	total := 0.0
	for _, t := range m.allocs {
		if t.ResourceType == rt && matchesScope(t, scope, scopeID) {
			total += t.Used
		}
	}
	return total
}
