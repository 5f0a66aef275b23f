package manager

import (
	"context"
	"sync"
	"time"

	"resman/internal/events"
	"resman/internal/store"
	"resman/internal/testutil"
	"resman/internal/tier"
	"resman/pkg/resman"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeTier1 struct {
	mu           sync.Mutex
	statusCalls  []string
	releaseCalls []string
	suggestions  []resman.OptimizationSuggestion
	err          error
}

func (f *fakeTier1) GetResourceStatus(_ context.Context, scopeID string) (tier.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, scopeID)
	return tier.Status{ScopeID: scopeID, Healthy: true}, f.err
}

func (f *fakeTier1) ReleaseResources(_ context.Context, allocationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls = append(f.releaseCalls, allocationID)
	return f.err
}

func (f *fakeTier1) OptimizeAllocations(context.Context) ([]resman.OptimizationSuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestions, f.err
}

func (f *fakeTier1) released() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.releaseCalls))
	copy(out, f.releaseCalls)
	return out
}

type tier3Call struct {
	scopeID string
	usage   tier.Usage
}

type fakeTier3 struct {
	mu    sync.Mutex
	calls []tier3Call
}

func (f *fakeTier3) TrackUsage(_ context.Context, scopeID string, usage tier.Usage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tier3Call{scopeID: scopeID, usage: usage})
	return nil
}

func (f *fakeTier3) tracked() []tier3Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]tier3Call, len(f.calls))
	copy(out, f.calls)
	return out
}

type testEnv struct {
	clock *testutil.FakeClock
	pub   *events.MemoryPublisher
	store *store.MemoryStore
	tier1 *fakeTier1
	tier3 *fakeTier3
	mgr   *Manager
}

// newTestEnv builds a manager with a fake clock, recording publisher, and
// maintenance disabled. Pool overrides replace the default seeding.
func newTestEnv(pools ...resman.ResourcePool) *testEnv {
	env := &testEnv{
		clock: testutil.NewFakeClock(testStart),
		pub:   events.NewMemoryPublisher(),
		store: store.NewMemoryStore(),
		tier1: &fakeTier1{},
		tier3: &fakeTier3{},
	}
	env.mgr = New(Config{
		Clock:              env.clock,
		Store:              env.store,
		Publisher:          env.pub,
		Tier1:              env.tier1,
		Tier3:              env.tier3,
		Pools:              pools,
		DisableMaintenance: true,
	})
	return env
}

// creditPool builds a CREDITS pool seed for tests.
func creditPool(capacity, available float64) resman.ResourcePool {
	return resman.ResourcePool{
		Type:          resman.ResourceCredits,
		Capacity:      capacity,
		Available:     available,
		CostPerUnit:   0.0001,
		LastReplenish: testStart,
	}
}

// pool returns the current snapshot of one pool type.
func (env *testEnv) pool(rt resman.ResourceType) resman.ResourcePool {
	for _, pool := range env.mgr.Pools() {
		if pool.Type == rt {
			return pool
		}
	}
	return resman.ResourcePool{}
}

// allocate runs a single-resource allocation for a user.
func (env *testEnv) allocate(userID string, rt resman.ResourceType, amount float64) resman.AllocationResult {
	result, _ := env.mgr.AllocateResources(context.Background(),
		resman.AllocationRequest{Resources: []resman.ResourceAmount{{ResourceType: rt, Amount: amount}}},
		resman.AllocationContext{UserID: userID},
	)
	return result
}
