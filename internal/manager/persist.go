package manager

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"resman/pkg/resman"
)

// Durable-store key prefixes. Tracking entries carry a 24-hour TTL; pool
// snapshots and limit configs never expire.
const (
	trackingKeyPrefix = "resman:tracking:"
	limitKeyPrefix    = "resman:limits:"
	poolKeyPrefix     = "resman:pools:"
)

// persistTrackings mirrors tracking entries to the durable store on a
// detached goroutine. In-memory state is authoritative; a store failure is
// logged and the mutation stands.
func (m *Manager) persistTrackings(entries []resman.ResourceTracking) {
	if len(entries) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		for _, t := range entries {
			payload, err := json.Marshal(t)
			if err != nil {
				m.logger.Warn("tracking marshal failed", zap.String("allocation_id", t.ID), zap.Error(err))
				continue
			}
			key := trackingKeyPrefix + trackingKey(t.ID, t.ResourceType)
			if err := m.store.Set(ctx, key, string(payload), trackingTTL); err != nil {
				m.logger.Warn("tracking persist failed", zap.String("key", key), zap.Error(err))
			}
		}
	}()
}

// deleteTracking removes a tracking mirror, best effort.
func (m *Manager) deleteTracking(key string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := m.store.Del(ctx, trackingKeyPrefix+key); err != nil {
			m.logger.Warn("tracking delete failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

// persistPools mirrors a pool snapshot through one pipelined write.
func (m *Manager) persistPools(pools []resman.ResourcePool) {
	if len(pools) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := m.writePools(ctx, pools); err != nil {
			m.logger.Warn("pool persist failed", zap.Error(err))
		}
	}()
}

// flushPools writes the current pool state synchronously; used on Stop.
func (m *Manager) flushPools(ctx context.Context) {
	m.mu.Lock()
	pools := m.poolSnapshotLocked()
	m.mu.Unlock()
	if err := m.writePools(ctx, pools); err != nil {
		m.logger.Warn("pool flush failed", zap.Error(err))
	}
}

func (m *Manager) writePools(ctx context.Context, pools []resman.ResourcePool) error {
	entries := make(map[string]string, len(pools))
	for _, pool := range pools {
		payload, err := json.Marshal(pool)
		if err != nil {
			return err
		}
		entries[poolKeyPrefix+string(pool.Type)] = string(payload)
	}
	return m.store.SetMulti(ctx, entries, 0)
}

// persistLimit mirrors one limit configuration.
func (m *Manager) persistLimit(cfg resman.LimitConfig) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		payload, err := json.Marshal(cfg)
		if err != nil {
			m.logger.Warn("limit marshal failed", zap.Error(err))
			return
		}
		key := limitKeyPrefix + string(cfg.Scope) + ":" + cfg.ScopeID
		if err := m.store.Set(ctx, key, string(payload), 0); err != nil {
			m.logger.Warn("limit persist failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

// loadState hydrates pools, limits, and trackers from whatever was last
// durably flushed. Individual failures are logged and skipped; an empty or
// unreachable store leaves the seeded defaults in place.
func (m *Manager) loadState(ctx context.Context) {
	pools := m.loadPools(ctx)
	limitConfigs := m.loadLimits(ctx)
	trackers := m.loadTrackers(ctx)
	m.logger.Info("persisted state loaded",
		zap.Int("pools", pools),
		zap.Int("limits", limitConfigs),
		zap.Int("trackers", trackers),
	)
}

func (m *Manager) loadPools(ctx context.Context) int {
	keys, err := m.store.Keys(ctx, poolKeyPrefix)
	if err != nil {
		m.logger.Warn("pool snapshot load failed", zap.Error(err))
		return 0
	}
	loaded := 0
	for _, key := range keys {
		value, ok, err := m.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var pool resman.ResourcePool
		if err := json.Unmarshal([]byte(value), &pool); err != nil {
			m.logger.Warn("pool snapshot unmarshal failed", zap.String("key", key), zap.Error(err))
			continue
		}
		m.mu.Lock()
		p := pool
		m.pools[pool.Type] = &p
		m.mu.Unlock()
		loaded++
	}
	return loaded
}

func (m *Manager) loadLimits(ctx context.Context) int {
	keys, err := m.store.Keys(ctx, limitKeyPrefix)
	if err != nil {
		m.logger.Warn("limit config load failed", zap.Error(err))
		return 0
	}
	loaded := 0
	for _, key := range keys {
		value, ok, err := m.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var cfg resman.LimitConfig
		if err := json.Unmarshal([]byte(value), &cfg); err != nil {
			m.logger.Warn("limit config unmarshal failed", zap.String("key", key), zap.Error(err))
			continue
		}
		m.limits.Set(cfg)
		loaded++
	}
	return loaded
}

func (m *Manager) loadTrackers(ctx context.Context) int {
	keys, err := m.store.Keys(ctx, trackingKeyPrefix)
	if err != nil {
		m.logger.Warn("tracking load failed", zap.Error(err))
		return 0
	}
	loaded := 0
	for _, key := range keys {
		value, ok, err := m.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var t resman.ResourceTracking
		if err := json.Unmarshal([]byte(value), &t); err != nil {
			m.logger.Warn("tracking unmarshal failed", zap.String("key", key), zap.Error(err))
			continue
		}
		m.mu.Lock()
		entry := t
		m.allocs[trackingKey(t.ID, t.ResourceType)] = &entry
		m.mu.Unlock()
		loaded++
	}
	return loaded
}
