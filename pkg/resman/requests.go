package resman

import "time"

// ResourceAmount is one requested or granted line item.
type ResourceAmount struct {
	ResourceType ResourceType `json:"resource_type"`
	Amount       float64      `json:"amount"`
}

// AllocationRequest asks for capacity across one or more resource types.
type AllocationRequest struct {
	Resources       []ResourceAmount `json:"resources"`
	DurationSeconds int              `json:"duration_seconds,omitempty"`
}

// AllocationStatus classifies the overall outcome of an allocation request.
type AllocationStatus string

const (
	// StatusAllocated means every line item was reserved.
	StatusAllocated AllocationStatus = "allocated"
	// StatusPartial means some line items were reserved and some denied.
	StatusPartial AllocationStatus = "partial"
	// StatusDenied means no line item was reserved.
	StatusDenied AllocationStatus = "denied"
)

// DeniedResource explains one rejected line item.
type DeniedResource struct {
	ResourceID      ResourceType `json:"resource_id"`
	RequestedAmount float64      `json:"requested_amount"`
	AvailableAmount float64      `json:"available_amount"`
	Reason          string       `json:"reason"`
}

// AllocationResult is the outcome of an allocation request.
type AllocationResult struct {
	AllocationID       string           `json:"allocation_id"`
	Status             AllocationStatus `json:"status"`
	AllocatedResources []ResourceAmount `json:"allocated_resources,omitempty"`
	DeniedResources    []DeniedResource `json:"denied_resources,omitempty"`
	ExpiresAt          time.Time        `json:"expires_at"`
	Token              string           `json:"token,omitempty"`
}

// Usage reports actual consumption against an allocation. ResourceType
// selects the tracked line item; it may be left empty when the allocation
// holds exactly one.
type Usage struct {
	ResourceType ResourceType `json:"resource_type,omitempty"`
	Consumed     float64      `json:"consumed"`
	Cost         float64      `json:"cost,omitempty"`
}

// UsagePeriod bounds a usage report window.
type UsagePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ResourceUsageSummary aggregates observed usage for one resource type.
type ResourceUsageSummary struct {
	ResourceType    ResourceType `json:"resource_type"`
	TotalConsumed   float64      `json:"total_consumed"`
	PeakUsage       float64      `json:"peak_usage"`
	UtilizationRate float64      `json:"utilization_rate"`
}

// ResourceCostSummary aggregates cost for one resource type, overage included.
type ResourceCostSummary struct {
	ResourceType ResourceType `json:"resource_type"`
	TotalCost    float64      `json:"total_cost"`
}

// OptimizationSuggestion proposes a usage adjustment for a scope.
type OptimizationSuggestion struct {
	Type             string       `json:"type"`
	ResourceType     ResourceType `json:"resource_type,omitempty"`
	ProjectedSavings float64      `json:"projected_savings"`
	Risk             string       `json:"risk"`
	Rationale        string       `json:"rationale,omitempty"`
}

// EfficiencyReport summarizes how well allocated capacity was consumed.
type EfficiencyReport struct {
	OverallEfficiency     float64                  `json:"overall_efficiency"`
	WastedResources       float64                  `json:"wasted_resources"`
	OptimizationPotential float64                  `json:"optimization_potential"`
	Recommendations       []OptimizationSuggestion `json:"recommendations"`
}

// ResourceAccounting is a windowed usage, cost, and efficiency report.
type ResourceAccounting struct {
	Period     UsagePeriod            `json:"period"`
	Usage      []ResourceUsageSummary `json:"usage"`
	Costs      []ResourceCostSummary  `json:"costs"`
	Efficiency EfficiencyReport       `json:"efficiency"`
}

// ResourceConflict names competing live allocations contending for capacity.
type ResourceConflict struct {
	Requesters []string `json:"requesters"`
}

// ConflictResolution reports which allocation won contested capacity.
type ConflictResolution struct {
	Type   string `json:"type"`
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason"`
}
