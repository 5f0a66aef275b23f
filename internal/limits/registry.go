package limits

import (
	"sort"
	"sync"

	"resman/pkg/resman"
)

// Registry stores limit configurations keyed by scope and scope ID.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]resman.LimitConfig
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{configs: map[string]resman.LimitConfig{}}
}

// Key builds the registry key for a (scope, scope ID) pair.
func Key(scope resman.Scope, scopeID string) string {
	return string(scope) + ":" + scopeID
}

// Get returns the configuration for a scope pair, if present. Absence means
// the scope level is unconstrained.
func (r *Registry) Get(scope resman.Scope, scopeID string) (resman.LimitConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[Key(scope, scopeID)]
	return cfg, ok
}

// Set inserts or replaces a configuration. There are no merge semantics.
func (r *Registry) Set(cfg resman.LimitConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[Key(cfg.Scope, cfg.ScopeID)] = cfg
}

// List returns all configurations sorted by key.
func (r *Registry) List() []resman.LimitConfig {
	r.mu.RLock()
	snapshot := make([]resman.LimitConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		snapshot = append(snapshot, cfg)
	}
	r.mu.RUnlock()
	sort.Slice(snapshot, func(i, j int) bool {
		return Key(snapshot[i].Scope, snapshot[i].ScopeID) < Key(snapshot[j].Scope, snapshot[j].ScopeID)
	})
	return snapshot
}

// LimitFor returns the configured ceiling for a resource type at a scope
// pair, if one exists.
func (r *Registry) LimitFor(scope resman.Scope, scopeID string, rt resman.ResourceType) (float64, bool) {
	cfg, ok := r.Get(scope, scopeID)
	if !ok {
		return 0, false
	}
	for _, limit := range cfg.Limits {
		if limit.ResourceType == rt {
			return limit.Limit, true
		}
	}
	return 0, false
}
