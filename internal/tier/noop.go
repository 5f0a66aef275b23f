package tier

import (
	"context"

	"resman/pkg/resman"
)

// Compile-time interface checks.
var (
	_ Tier1 = NoopTier1{}
	_ Tier3 = NoopTier3{}
)

// NoopTier1 is a Tier1 that reports healthy and suggests nothing.
type NoopTier1 struct{}

// GetResourceStatus reports a healthy scope with no remaining budget data.
func (NoopTier1) GetResourceStatus(_ context.Context, scopeID string) (Status, error) {
	return Status{ScopeID: scopeID, Healthy: true}, nil
}

// ReleaseResources ignores the notification.
func (NoopTier1) ReleaseResources(context.Context, string) error {
	return nil
}

// OptimizeAllocations returns no suggestions.
func (NoopTier1) OptimizeAllocations(context.Context) ([]resman.OptimizationSuggestion, error) {
	return nil, nil
}

// NoopTier3 is a Tier3 that drops forwarded usage.
type NoopTier3 struct{}

// TrackUsage ignores the forwarded usage.
func (NoopTier3) TrackUsage(context.Context, string, Usage) error {
	return nil
}
