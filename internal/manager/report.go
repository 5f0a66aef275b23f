package manager

import (
	"context"
	"sort"
	"time"

	"resman/pkg/resman"
)

// GetUsageReport derives a windowed usage, cost, and efficiency summary for
// one scope pair from the allocation tracker. The default period is the last
// 24 hours. The report is read-only: it snapshots tracker and pool state and
// performs no I/O.
func (m *Manager) GetUsageReport(_ context.Context, scope resman.Scope, scopeID string, period *resman.UsagePeriod) (resman.ResourceAccounting, error) {
	now := m.clock.Now()
	p := resman.UsagePeriod{Start: now.Add(-24 * time.Hour), End: now}
	if period != nil {
		p = *period
	}

	m.mu.Lock()
	var matched []resman.ResourceTracking
	for _, t := range m.allocs {
		if matchesScope(t, scope, scopeID) && overlaps(t, p) {
			matched = append(matched, *t)
		}
	}
	capacities := map[resman.ResourceType]float64{}
	costPerUnit := map[resman.ResourceType]float64{}
	for rt, pool := range m.pools {
		capacities[rt] = pool.Capacity
		costPerUnit[rt] = pool.CostPerUnit
	}
	m.mu.Unlock()

	usage := summarizeUsage(matched, capacities)
	costs := summarizeCosts(matched, costPerUnit)
	efficiency := summarizeEfficiency(matched, usage)

	return resman.ResourceAccounting{
		Period:     p,
		Usage:      usage,
		Costs:      costs,
		Efficiency: efficiency,
	}, nil
}

// overlaps reports whether an allocation's active interval intersects the
// requested period. Bounds are inclusive so an allocation created at the
// report instant still counts toward the default window.
func overlaps(t *resman.ResourceTracking, p resman.UsagePeriod) bool {
	return !t.StartTime.After(p.End) && !t.LastUpdate.Before(p.Start)
}

// summarizeUsage aggregates consumed usage per resource type actually
// observed in the matched allocations.
func summarizeUsage(matched []resman.ResourceTracking, capacities map[resman.ResourceType]float64) []resman.ResourceUsageSummary {
	byType := map[resman.ResourceType]*resman.ResourceUsageSummary{}
	for _, t := range matched {
		summary, ok := byType[t.ResourceType]
		if !ok {
			summary = &resman.ResourceUsageSummary{ResourceType: t.ResourceType}
			byType[t.ResourceType] = summary
		}
		summary.TotalConsumed += t.Used
		if t.Used > summary.PeakUsage {
			summary.PeakUsage = t.Used
		}
	}
	out := make([]resman.ResourceUsageSummary, 0, len(byType))
	for rt, summary := range byType {
		if capacity := capacities[rt]; capacity > 0 {
			summary.UtilizationRate = summary.TotalConsumed / capacity
		}
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceType < out[j].ResourceType })
	return out
}

// summarizeCosts totals consumption cost per resource type, stored overage
// cost included.
func summarizeCosts(matched []resman.ResourceTracking, costPerUnit map[resman.ResourceType]float64) []resman.ResourceCostSummary {
	byType := map[resman.ResourceType]float64{}
	for _, t := range matched {
		byType[t.ResourceType] += t.Used*costPerUnit[t.ResourceType] + t.Metadata.OverageCost
	}
	out := make([]resman.ResourceCostSummary, 0, len(byType))
	for rt, total := range byType {
		out = append(out, resman.ResourceCostSummary{ResourceType: rt, TotalCost: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceType < out[j].ResourceType })
	return out
}

// summarizeEfficiency computes consumed/allocated efficiency and attaches the
// top local optimization suggestions.
func summarizeEfficiency(matched []resman.ResourceTracking, usage []resman.ResourceUsageSummary) resman.EfficiencyReport {
	totalUsed := 0.0
	totalAllocated := 0.0
	for _, t := range matched {
		totalUsed += t.Used
		totalAllocated += t.Allocated
	}
	efficiency := 0.0
	if totalAllocated > 0 {
		efficiency = totalUsed / totalAllocated
	}

	recommendations := suggestionsFromUsage(usage)
	sort.Slice(recommendations, func(i, j int) bool {
		return recommendations[i].ProjectedSavings > recommendations[j].ProjectedSavings
	})
	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}
	potential := 0.0
	for _, suggestion := range recommendations {
		potential += suggestion.ProjectedSavings
	}

	return resman.EfficiencyReport{
		OverallEfficiency:     efficiency,
		WastedResources:       (1 - efficiency) * 100,
		OptimizationPotential: potential,
		Recommendations:       recommendations,
	}
}
