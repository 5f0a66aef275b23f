package manager

import (
	"time"

	"go.uber.org/zap"

	"resman/pkg/resman"
)

// runMaintenance drives the two periodic sweeps until Stop is called.
func (m *Manager) runMaintenance() {
	defer close(m.doneCh)
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweepExpired()
			m.sweepReplenish()
		}
	}
}

// sweepExpired force-releases allocations that outlived their estimated
// duration by the grace factor. A failure on one allocation is logged and
// does not stop the sweep.
func (m *Manager) sweepExpired() {
	now := m.clock.Now()

	m.mu.Lock()
	var expired []string
	seen := map[string]bool{}
	for _, t := range m.allocs {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		estimated := time.Duration(t.Metadata.Context.EstimatedDurationMs) * time.Millisecond
		if estimated <= 0 {
			estimated = defaultEstimatedDuration
		}
		grace := time.Duration(float64(estimated) * expiryGraceFactor)
		if now.Sub(t.StartTime) > grace {
			expired = append(expired, t.ID)
		}
	}
	m.mu.Unlock()

	released := 0
	for _, id := range expired {
		if m.expireOne(id) {
			released++
		}
	}
	if released > 0 {
		m.logger.Info("expired stale allocations", zap.Int("released", released))
	}
}

// expireOne releases a single stale allocation, containing any failure to
// that allocation.
func (m *Manager) expireOne(allocationID string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("expiry failed",
				zap.String("allocation_id", allocationID),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	return m.releaseAllocation(allocationID, resman.OperationExpire)
}

// sweepReplenish tops up every pool with a configured replenishment rate.
func (m *Manager) sweepReplenish() {
	m.mu.Lock()
	replenished := m.replenishLocked(m.clock.Now())
	var pools []resman.ResourcePool
	if replenished > 0 {
		pools = m.poolSnapshotLocked()
	}
	m.mu.Unlock()

	if replenished > 0 {
		m.persistPools(pools)
		m.logger.Debug("replenished pools", zap.Int("pools", replenished))
	}
}

// SweepOnce runs both sweeps immediately. It exists for deterministic tests
// and operational tooling; the periodic loop calls the same code.
func (m *Manager) SweepOnce() {
	m.sweepExpired()
	m.sweepReplenish()
}
