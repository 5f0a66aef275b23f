package resman

import "time"

// ResourceType identifies one fungible resource kind.
type ResourceType string

const (
	// ResourceCredits are compute credits.
	ResourceCredits ResourceType = "CREDITS"
	// ResourceTokens are model token budgets.
	ResourceTokens ResourceType = "TOKENS"
	// ResourceAPICalls are external API call quotas.
	ResourceAPICalls ResourceType = "API_CALLS"
	// ResourceTime is wall-clock time in milliseconds.
	ResourceTime ResourceType = "TIME"
	// ResourceMemory is memory in bytes.
	ResourceMemory ResourceType = "MEMORY"
)

// Scope is a level in the USER -> SWARM -> RUN -> STEP containment hierarchy.
type Scope string

const (
	// ScopeGlobal matches every execution context.
	ScopeGlobal Scope = "GLOBAL"
	// ScopeUser is the outermost per-caller scope.
	ScopeUser Scope = "USER"
	// ScopeSwarm groups runs under one swarm.
	ScopeSwarm Scope = "SWARM"
	// ScopeRun is a single execution run.
	ScopeRun Scope = "RUN"
	// ScopeStep is the innermost per-step scope.
	ScopeStep Scope = "STEP"
)

// Priority orders competing allocations during conflict resolution.
type Priority string

const (
	// PriorityLow yields to every other priority.
	PriorityLow Priority = "LOW"
	// PriorityNormal is the default priority.
	PriorityNormal Priority = "NORMAL"
	// PriorityHigh outranks normal and low work.
	PriorityHigh Priority = "HIGH"
	// PriorityCritical always wins arbitration.
	PriorityCritical Priority = "CRITICAL"
)

// Rank returns the arbitration weight for a priority. Unknown or empty
// priorities rank as NORMAL.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// ResourcePool is the supply of one resource type available for reservation.
type ResourcePool struct {
	Type          ResourceType `json:"type"`
	Capacity      float64      `json:"capacity"`
	Available     float64      `json:"available"`
	Reserved      float64      `json:"reserved"`
	CostPerUnit   float64      `json:"cost_per_unit"`
	ReplenishRate float64      `json:"replenish_rate,omitempty"`
	LastReplenish time.Time    `json:"last_replenish"`
}

// ResourceLimit is one ceiling inside a limit configuration.
type ResourceLimit struct {
	ResourceType ResourceType `json:"resource_type"`
	Limit        float64      `json:"limit"`
}

// EnforcementPolicy decides how overage is handled at a scope.
type EnforcementPolicy struct {
	OverageAllowed    bool    `json:"overage_allowed"`
	OverageMultiplier float64 `json:"overage_multiplier,omitempty"`
}

// LimitConfig holds the configured ceilings for one (scope, scope ID) pair.
type LimitConfig struct {
	Scope       Scope             `json:"scope"`
	ScopeID     string            `json:"scope_id"`
	Limits      []ResourceLimit   `json:"limits"`
	Enforcement EnforcementPolicy `json:"enforcement"`
}

// ScopeRef names one level of an allocation's scope chain.
type ScopeRef struct {
	Scope Scope  `json:"scope"`
	ID    string `json:"id"`
}

// AllocationContext carries who is requesting capacity and at which scope
// levels. UserID is required; the remaining scope fields are optional.
type AllocationContext struct {
	UserID              string   `json:"user_id"`
	SwarmID             string   `json:"swarm_id,omitempty"`
	RunID               string   `json:"run_id,omitempty"`
	StepID              string   `json:"step_id,omitempty"`
	Priority            Priority `json:"priority,omitempty"`
	Purpose             string   `json:"purpose,omitempty"`
	EstimatedDurationMs int64    `json:"estimated_duration_ms,omitempty"`
}

// ScopeChain returns the scope levels present in the context, outermost first.
func (c AllocationContext) ScopeChain() []ScopeRef {
	chain := []ScopeRef{{Scope: ScopeUser, ID: c.UserID}}
	if c.SwarmID != "" {
		chain = append(chain, ScopeRef{Scope: ScopeSwarm, ID: c.SwarmID})
	}
	if c.RunID != "" {
		chain = append(chain, ScopeRef{Scope: ScopeRun, ID: c.RunID})
	}
	if c.StepID != "" {
		chain = append(chain, ScopeRef{Scope: ScopeStep, ID: c.StepID})
	}
	return chain
}

// PrimaryScope returns the deepest scope level present in the context.
func (c AllocationContext) PrimaryScope() ScopeRef {
	chain := c.ScopeChain()
	return chain[len(chain)-1]
}

// Tier classifies how deep the context reaches: 3 with a step, 2 with a run,
// 1 otherwise. Tiers route notifications to tier-specific collaborators.
func (c AllocationContext) Tier() int {
	switch {
	case c.StepID != "":
		return 3
	case c.RunID != "":
		return 2
	default:
		return 1
	}
}

// TrackingMetadata is the free-form bag attached to a tracking entry.
type TrackingMetadata struct {
	Context     AllocationContext `json:"context"`
	Tier        int               `json:"tier"`
	OverageCost float64           `json:"overage_cost,omitempty"`
}

// ResourceTracking is the authoritative record for one allocated line item.
// Entries are keyed by (allocation ID, resource type), so a multi-resource
// allocation owns one entry per requested type.
type ResourceTracking struct {
	ID           string           `json:"id"`
	Scope        Scope            `json:"scope"`
	ScopeID      string           `json:"scope_id"`
	ResourceType ResourceType     `json:"resource_type"`
	Allocated    float64          `json:"allocated"`
	Used         float64          `json:"used"`
	Reserved     float64          `json:"reserved"`
	StartTime    time.Time        `json:"start_time"`
	LastUpdate   time.Time        `json:"last_update"`
	Metadata     TrackingMetadata `json:"metadata"`
}

// UsageOperation is the lifecycle operation recorded on a usage event.
type UsageOperation string

const (
	// OperationAllocate records a successful reservation.
	OperationAllocate UsageOperation = "allocate"
	// OperationUse records reported consumption.
	OperationUse UsageOperation = "use"
	// OperationRelease records an explicit release.
	OperationRelease UsageOperation = "release"
	// OperationExpire records a maintenance-driven forced release.
	OperationExpire UsageOperation = "expire"
)

// ResourceUsageEvent is an immutable audit record of one lifecycle operation.
type ResourceUsageEvent struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	AllocationID string            `json:"allocation_id"`
	ResourceType ResourceType      `json:"resource_type"`
	Amount       float64           `json:"amount"`
	Operation    UsageOperation    `json:"operation"`
	Context      AllocationContext `json:"context"`
}
