package manager

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"resman/pkg/resman"
)

// AllocateResources runs one allocation request end to end: hierarchical
// limit check, pool availability check, reservation, tracking, event
// emission. Denials are structured results, never errors; an unexpected
// panic is converted into a denied result so the caller-facing path cannot
// crash the process.
func (m *Manager) AllocateResources(_ context.Context, req resman.AllocationRequest, ac resman.AllocationContext) (result resman.AllocationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("allocation panicked", zap.Any("panic", r))
			result = resman.AllocationResult{
				Status: resman.StatusDenied,
				DeniedResources: []resman.DeniedResource{
					{Reason: fmt.Sprintf("%v", r)},
				},
			}
			err = nil
		}
	}()

	allocationID := m.newID()
	now := m.clock.Now()
	durationSeconds := req.DurationSeconds
	if durationSeconds <= 0 {
		durationSeconds = defaultDurationSeconds
	}
	expiresAt := now.Add(secondsToDuration(durationSeconds))

	m.mu.Lock()

	// Limit violations are collected across every scope level and every
	// line item before anything mutates, so the caller sees the complete
	// set in one response.
	if violations := m.checkLimitsLocked(req.Resources, ac); len(violations) > 0 {
		m.mu.Unlock()
		return resman.AllocationResult{
			AllocationID:    allocationID,
			Status:          resman.StatusDenied,
			DeniedResources: violations,
			ExpiresAt:       expiresAt,
		}, nil
	}

	var accepted []resman.ResourceAmount
	var denied []resman.DeniedResource
	for _, item := range req.Resources {
		pool, ok := m.pools[item.ResourceType]
		if !ok {
			denied = append(denied, resman.DeniedResource{
				ResourceID:      item.ResourceType,
				RequestedAmount: item.Amount,
				AvailableAmount: 0,
				Reason:          "Resource type not found",
			})
			continue
		}
		if pool.Available < item.Amount {
			denied = append(denied, resman.DeniedResource{
				ResourceID:      item.ResourceType,
				RequestedAmount: item.Amount,
				AvailableAmount: pool.Available,
				Reason:          "Insufficient resources",
			})
			continue
		}
		accepted = append(accepted, item)
	}

	status := resman.StatusAllocated
	switch {
	case len(accepted) == 0 && len(denied) > 0:
		status = resman.StatusDenied
	case len(denied) > 0:
		status = resman.StatusPartial
	}

	scope := ac.PrimaryScope()
	totalAmount := 0.0
	totalCost := 0.0
	tracked := make([]resman.ResourceTracking, 0, len(accepted))
	for _, item := range accepted {
		// Every accepted item was validated as available above, so the
		// reservation loop itself cannot fail partway.
		m.reserveLocked(item.ResourceType, item.Amount)
		totalAmount += item.Amount
		totalCost += item.Amount * m.pools[item.ResourceType].CostPerUnit

		t := &resman.ResourceTracking{
			ID:           allocationID,
			Scope:        scope.Scope,
			ScopeID:      scope.ID,
			ResourceType: item.ResourceType,
			Allocated:    item.Amount,
			Used:         0,
			Reserved:     item.Amount,
			StartTime:    now,
			LastUpdate:   now,
			Metadata: resman.TrackingMetadata{
				Context: ac,
				Tier:    ac.Tier(),
			},
		}
		m.allocs[trackingKey(allocationID, item.ResourceType)] = t
		tracked = append(tracked, *t)
	}

	var ev resman.ResourceUsageEvent
	var pools []resman.ResourcePool
	if len(accepted) > 0 {
		ev = m.recordUsageLocked(resman.OperationAllocate, allocationID, accepted[0].ResourceType, totalAmount, ac)
		pools = m.poolSnapshotLocked()
	}
	m.mu.Unlock()

	result = resman.AllocationResult{
		AllocationID:       allocationID,
		Status:             status,
		AllocatedResources: accepted,
		DeniedResources:    denied,
		ExpiresAt:          expiresAt,
	}
	if len(accepted) > 0 {
		result.Token = resman.NewAllocationToken(allocationID, now)
		m.publishUsage(ev)
		m.persistTrackings(tracked)
		m.persistPools(pools)
		m.logger.Debug("allocation committed",
			zap.String("allocation_id", allocationID),
			zap.String("status", string(status)),
			zap.Float64("total_amount", totalAmount),
			zap.Float64("total_cost", totalCost),
		)
	}
	return result, nil
}

// checkLimitsLocked walks the context's scope chain outermost first and
// collects one violation per line item whose consumed usage would exceed a
// configured ceiling. Read-only. The caller holds mu.
func (m *Manager) checkLimitsLocked(items []resman.ResourceAmount, ac resman.AllocationContext) []resman.DeniedResource {
	var violations []resman.DeniedResource
	chain := ac.ScopeChain()
	for _, item := range items {
		for _, level := range chain {
			limit, ok := m.limits.LimitFor(level.Scope, level.ID, item.ResourceType)
			if !ok {
				continue
			}
			current := m.usedAtScopeLocked(level.Scope, level.ID, item.ResourceType)
			if current+item.Amount > limit {
				violations = append(violations, resman.DeniedResource{
					ResourceID:      item.ResourceType,
					RequestedAmount: item.Amount,
					AvailableAmount: math.Max(0, limit-current),
					Reason:          fmt.Sprintf("Exceeds %s limit", level.Scope),
				})
				break
			}
		}
	}
	return violations
}
