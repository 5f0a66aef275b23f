package resman

import "context"

// Manager is the caller-facing API for the unified resource manager.
type Manager interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	AllocateResources(ctx context.Context, req AllocationRequest, ac AllocationContext) (AllocationResult, error)
	TrackUsage(ctx context.Context, allocationID string, usage Usage) error
	ReleaseResources(ctx context.Context, allocationID, token string) error
	GetUsageReport(ctx context.Context, scope Scope, scopeID string, period *UsagePeriod) (ResourceAccounting, error)
	SetResourceLimits(ctx context.Context, cfg LimitConfig) error
	GetOptimizationSuggestions(ctx context.Context, scope Scope, scopeID string) ([]OptimizationSuggestion, error)
	ResolveConflict(ctx context.Context, conflict ResourceConflict) (ConflictResolution, error)
}
