package manager

import (
	"math"
	"time"

	"resman/pkg/resman"
)

// DefaultPools returns the fixed pool seeding applied at startup when no
// override or persisted snapshot exists.
func DefaultPools(now time.Time) []resman.ResourcePool {
	return []resman.ResourcePool{
		{Type: resman.ResourceCredits, Capacity: 1_000_000, Available: 1_000_000, CostPerUnit: 0.0001, ReplenishRate: 1000, LastReplenish: now},
		{Type: resman.ResourceTokens, Capacity: 10_000_000, Available: 10_000_000, CostPerUnit: 0.00002, ReplenishRate: 10_000, LastReplenish: now},
		{Type: resman.ResourceAPICalls, Capacity: 100_000, Available: 100_000, CostPerUnit: 0.001, ReplenishRate: 100, LastReplenish: now},
		{Type: resman.ResourceTime, Capacity: 3_600_000, Available: 3_600_000, CostPerUnit: 0.0001, LastReplenish: now},
		{Type: resman.ResourceMemory, Capacity: 8_589_934_592, Available: 8_589_934_592, CostPerUnit: 1e-8, LastReplenish: now},
	}
}

// reserveLocked moves amount from available to reserved. The caller holds mu.
func (m *Manager) reserveLocked(rt resman.ResourceType, amount float64) bool {
	pool, ok := m.pools[rt]
	if !ok || amount > pool.Available {
		return false
	}
	pool.Available -= amount
	pool.Reserved += amount
	return true
}

// releaseLocked returns the unused remainder to available and removes the
// originally reserved amount from reserved. The caller holds mu.
func (m *Manager) releaseLocked(rt resman.ResourceType, unused, reserved float64) {
	pool, ok := m.pools[rt]
	if !ok {
		return
	}
	pool.Available = math.Min(pool.Capacity, pool.Available+unused)
	pool.Reserved = math.Max(0, pool.Reserved-reserved)
}

// replenishLocked tops up every pool with a configured rate toward capacity.
// It returns the number of pools that gained capacity. The caller holds mu.
func (m *Manager) replenishLocked(now time.Time) int {
	replenished := 0
	for _, pool := range m.pools {
		if pool.ReplenishRate <= 0 {
			continue
		}
		minutes := math.Floor(now.Sub(pool.LastReplenish).Minutes())
		if minutes < 1 {
			continue
		}
		added := math.Floor(pool.ReplenishRate * minutes)
		if added <= 0 {
			continue
		}
		next := math.Min(pool.Capacity, pool.Available+added)
		if next == pool.Available {
			continue
		}
		pool.Available = next
		pool.LastReplenish = now
		replenished++
	}
	return replenished
}

// poolSnapshotLocked copies every pool by value. The caller holds mu.
func (m *Manager) poolSnapshotLocked() []resman.ResourcePool {
	snapshot := make([]resman.ResourcePool, 0, len(m.pools))
	for _, pool := range m.pools {
		snapshot = append(snapshot, *pool)
	}
	return snapshot
}
