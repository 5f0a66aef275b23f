// Package manager implements the unified resource manager: hierarchical
// limit checks, pool reservations, allocation tracking, windowed accounting,
// and background maintenance. One Manager instance is the single logical
// owner of its in-memory state; the durable store is a best-effort mirror
// used for restart recovery only.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resman/internal/events"
	"resman/internal/limits"
	"resman/internal/store"
	"resman/internal/tier"
	"resman/pkg/resman"
)

const (
	defaultDurationSeconds   = 3600
	defaultEstimatedDuration = time.Hour
	defaultSweepInterval     = 60 * time.Second
	defaultOverageMultiplier = 2.0
	expiryGraceFactor        = 1.5
	alertThresholdRatio      = 0.8
	historyCapacity          = 1000
	trackingTTL              = 24 * time.Hour
	persistTimeout           = 5 * time.Second
)

// Compile-time interface check.
var _ resman.Manager = (*Manager)(nil)

// Config wires dependencies for a Manager.
type Config struct {
	Clock     Clock
	Logger    *zap.Logger
	Store     store.Store
	Publisher events.Publisher
	Tier1     tier.Tier1
	Tier3     tier.Tier3
	NewID     func() string

	// Pools overrides the default pool seeding when non-empty.
	Pools []resman.ResourcePool

	// SweepInterval tunes the maintenance loops; DisableMaintenance turns
	// them off entirely for deterministic tests.
	SweepInterval      time.Duration
	DisableMaintenance bool
}

// Manager owns pools, limits, trackers, and usage history for one deployment.
type Manager struct {
	mu      sync.Mutex
	pools   map[resman.ResourceType]*resman.ResourcePool
	allocs  map[string]*resman.ResourceTracking
	history *historyRing

	limits *limits.Registry

	clock  Clock
	logger *zap.Logger
	store  store.Store
	pub    events.Publisher
	tier1  tier.Tier1
	tier3  tier.Tier3
	newID  func() string

	sweepInterval time.Duration
	maintenance   bool

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  bool
}

// New creates a Manager with defaults filled in for any unset dependency.
func New(cfg Config) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NoopPublisher
	}
	if cfg.Tier1 == nil {
		cfg.Tier1 = tier.NoopTier1{}
	}
	if cfg.Tier3 == nil {
		cfg.Tier3 = tier.NoopTier3{}
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	m := &Manager{
		pools:         map[resman.ResourceType]*resman.ResourcePool{},
		allocs:        map[string]*resman.ResourceTracking{},
		history:       newHistoryRing(historyCapacity),
		limits:        limits.New(),
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		store:         cfg.Store,
		pub:           cfg.Publisher,
		tier1:         cfg.Tier1,
		tier3:         cfg.Tier3,
		newID:         cfg.NewID,
		sweepInterval: cfg.SweepInterval,
		maintenance:   !cfg.DisableMaintenance,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}

	seeds := cfg.Pools
	if len(seeds) == 0 {
		seeds = DefaultPools(m.clock.Now())
	}
	for _, seed := range seeds {
		pool := seed
		m.pools[pool.Type] = &pool
	}
	return m
}

// Start loads persisted state and begins the background maintenance loops.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	m.loadState(ctx)

	if m.maintenance {
		go m.runMaintenance()
	} else {
		close(m.doneCh)
	}
	m.logger.Info("resource manager started",
		zap.Bool("maintenance", m.maintenance),
		zap.Duration("sweep_interval", m.sweepInterval),
	)
	return nil
}

// Stop cancels the maintenance loops and flushes current pool state. Calling
// Stop on a manager that never started is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return nil
	}
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	select {
	case <-m.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.flushPools(ctx)
	m.logger.Info("resource manager stopped")
	return nil
}

// SetResourceLimits installs the ceilings for one (scope, scope ID) pair,
// replacing any previous configuration.
func (m *Manager) SetResourceLimits(ctx context.Context, cfg resman.LimitConfig) error {
	m.limits.Set(cfg)
	m.persistLimit(cfg)
	m.logger.Info("resource limits set",
		zap.String("scope", string(cfg.Scope)),
		zap.String("scope_id", cfg.ScopeID),
		zap.Int("limits", len(cfg.Limits)),
	)
	return nil
}

// Limits exposes the limit registry for the admin API.
func (m *Manager) Limits() *limits.Registry {
	return m.limits
}

// Pools returns a snapshot of every pool, for operational introspection.
func (m *Manager) Pools() []resman.ResourcePool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poolSnapshotLocked()
}

// UsageHistory returns a snapshot of the rolling usage-event buffer.
func (m *Manager) UsageHistory() []resman.ResourceUsageEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.snapshot()
}
