// Package tier declares the interfaces of the tier-specific resource
// managers that the unified manager consults and notifies. Those managers
// own narrower, domain-specific budgets and are implemented elsewhere; only
// their boundary is specified here.
package tier

import (
	"context"

	"resman/pkg/resman"
)

// Status is what a tier-1 collaborator reports for a scope.
type Status struct {
	ScopeID   string  `json:"scope_id"`
	Remaining float64 `json:"remaining"`
	Healthy   bool    `json:"healthy"`
}

// Usage is what the manager forwards to a tier-3 collaborator.
type Usage struct {
	Cost   float64 `json:"cost"`
	Tokens float64 `json:"tokens"`
}

// Tier1 is the user-level collaborator. It is consulted for status, notified
// of releases, and may contribute its own optimization suggestions.
type Tier1 interface {
	GetResourceStatus(ctx context.Context, scopeID string) (Status, error)
	ReleaseResources(ctx context.Context, allocationID string) error
	OptimizeAllocations(ctx context.Context) ([]resman.OptimizationSuggestion, error)
}

// Tier3 is the step-level collaborator that receives usage forwarding.
type Tier3 interface {
	TrackUsage(ctx context.Context, scopeID string, usage Usage) error
}
