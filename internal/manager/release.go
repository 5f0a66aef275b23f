package manager

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"resman/pkg/resman"
)

// ErrInvalidToken is returned when a supplied release token does not bind
// the allocation ID.
var ErrInvalidToken = errors.New("invalid allocation token")

// ReleaseResources returns an allocation's unused capacity to its pools and
// deletes its tracking entries. Releasing an unknown allocation ID is a
// silent no-op, which makes release idempotent.
func (m *Manager) ReleaseResources(_ context.Context, allocationID, token string) error {
	m.mu.Lock()
	entries := m.trackingByAllocationLocked(allocationID)
	if len(entries) == 0 {
		m.mu.Unlock()
		return nil
	}
	if token != "" && !resman.VerifyAllocationToken(token, allocationID) {
		m.mu.Unlock()
		m.logger.Error("release rejected: token does not match allocation",
			zap.String("allocation_id", allocationID),
		)
		return ErrInvalidToken
	}
	m.releaseEntriesLocked(allocationID, entries, resman.OperationRelease)
	return nil
}

// releaseAllocation is the tokenless release path used by the expiry sweep.
// It reports whether anything was released.
func (m *Manager) releaseAllocation(allocationID string, op resman.UsageOperation) bool {
	m.mu.Lock()
	entries := m.trackingByAllocationLocked(allocationID)
	if len(entries) == 0 {
		m.mu.Unlock()
		return false
	}
	m.releaseEntriesLocked(allocationID, entries, op)
	return true
}

// releaseEntriesLocked releases every line item of an allocation. It is
// entered holding mu and releases the lock itself before notifying
// collaborators and mirrors.
func (m *Manager) releaseEntriesLocked(allocationID string, entries []*resman.ResourceTracking, op resman.UsageOperation) {
	totalAllocated := 0.0
	notifyTier1 := false
	ac := entries[0].Metadata.Context
	keys := make([]string, 0, len(entries))
	for _, t := range entries {
		unused := math.Max(0, t.Allocated-t.Used)
		m.releaseLocked(t.ResourceType, unused, t.Reserved)
		totalAllocated += t.Allocated
		if t.Metadata.Tier == 1 {
			notifyTier1 = true
		}
		key := trackingKey(allocationID, t.ResourceType)
		delete(m.allocs, key)
		keys = append(keys, key)
	}

	// The release event records the total allocated amount, not the unused
	// remainder: it closes the allocation's lifecycle for audit purposes.
	ev := m.recordUsageLocked(op, allocationID, entries[0].ResourceType, totalAllocated, ac)
	pools := m.poolSnapshotLocked()
	m.mu.Unlock()

	if notifyTier1 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := m.tier1.ReleaseResources(ctx, allocationID); err != nil {
				m.logger.Warn("tier-1 release notification failed",
					zap.String("allocation_id", allocationID),
					zap.Error(err),
				)
			}
		}()
	}
	m.publishUsage(ev)
	for _, key := range keys {
		m.deleteTracking(key)
	}
	m.persistPools(pools)
}
