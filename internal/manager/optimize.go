package manager

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"resman/pkg/resman"
)

const (
	highUtilizationThreshold = 0.9
	lowUtilizationThreshold  = 0.3
	batchSavingsRatio        = 0.2
	reduceSavingsRatio       = 0.5
)

// GetOptimizationSuggestions produces scale suggestions for a scope pair:
// local rules over the scope's usage summaries plus whatever the tier-1
// collaborator's own optimizer contributes.
func (m *Manager) GetOptimizationSuggestions(ctx context.Context, scope resman.Scope, scopeID string) ([]resman.OptimizationSuggestion, error) {
	report, err := m.GetUsageReport(ctx, scope, scopeID, nil)
	if err != nil {
		return nil, err
	}
	suggestions := suggestionsFromUsage(report.Usage)

	tierSuggestions, err := m.tier1.OptimizeAllocations(ctx)
	if err != nil {
		m.logger.Warn("tier-1 optimizer unavailable", zap.Error(err))
		return suggestions, nil
	}
	for _, suggestion := range tierSuggestions {
		suggestion.Risk = "medium"
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

// suggestionsFromUsage applies the utilization rules: very hot resource
// types suggest batching, very cold ones suggest reducing the reservation.
func suggestionsFromUsage(usage []resman.ResourceUsageSummary) []resman.OptimizationSuggestion {
	var suggestions []resman.OptimizationSuggestion
	for _, summary := range usage {
		switch {
		case summary.UtilizationRate > highUtilizationThreshold:
			suggestions = append(suggestions, resman.OptimizationSuggestion{
				Type:             "batch",
				ResourceType:     summary.ResourceType,
				ProjectedSavings: summary.TotalConsumed * batchSavingsRatio,
				Risk:             "low",
				Rationale:        fmt.Sprintf("%s utilization above %.0f%%; batch requests to smooth demand", summary.ResourceType, highUtilizationThreshold*100),
			})
		case summary.UtilizationRate < lowUtilizationThreshold:
			suggestions = append(suggestions, resman.OptimizationSuggestion{
				Type:             "reduce",
				ResourceType:     summary.ResourceType,
				ProjectedSavings: summary.TotalConsumed * reduceSavingsRatio,
				Risk:             "low",
				Rationale:        fmt.Sprintf("%s utilization below %.0f%%; reduce reserved capacity", summary.ResourceType, lowUtilizationThreshold*100),
			})
		}
	}
	return suggestions
}

// ResolveConflict arbitrates which of several competing live allocations
// wins contested capacity: highest priority first, earliest start time on
// ties.
func (m *Manager) ResolveConflict(_ context.Context, conflict resman.ResourceConflict) (resman.ConflictResolution, error) {
	type candidate struct {
		id        string
		priority  resman.Priority
		startTime int64
	}

	m.mu.Lock()
	var candidates []candidate
	for _, requester := range conflict.Requesters {
		entries := m.trackingByAllocationLocked(requester)
		if len(entries) == 0 {
			continue
		}
		first := entries[0]
		candidates = append(candidates, candidate{
			id:        requester,
			priority:  first.Metadata.Context.Priority,
			startTime: first.StartTime.UnixMilli(),
		})
	}
	m.mu.Unlock()

	if len(candidates) == 0 {
		return resman.ConflictResolution{
			Type:   "queuing",
			Reason: "No active allocations found",
		}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].priority.Rank() != candidates[j].priority.Rank() {
			return candidates[i].priority.Rank() > candidates[j].priority.Rank()
		}
		return candidates[i].startTime < candidates[j].startTime
	})

	winner := candidates[0]
	priority := winner.priority
	if priority == "" {
		priority = resman.PriorityNormal
	}
	return resman.ConflictResolution{
		Type:   "priority",
		Winner: winner.id,
		Reason: fmt.Sprintf("Allocation %s holds %s priority", winner.id, priority),
	}, nil
}
