package manager

import (
	"context"
	"math"
	"testing"
	"time"

	"resman/pkg/resman"
)

func TestUsageReport_AggregatesPerResourceType(t *testing.T) {
	env := newTestEnv(
		creditPool(1000, 1000),
		resman.ResourcePool{Type: resman.ResourceTokens, Capacity: 2000, Available: 2000, CostPerUnit: 0.00002, LastReplenish: testStart},
	)
	first := env.allocate("u1", resman.ResourceCredits, 400)
	second := env.allocate("u1", resman.ResourceCredits, 300)
	third, err := env.mgr.AllocateResources(context.Background(),
		resman.AllocationRequest{Resources: []resman.ResourceAmount{{ResourceType: resman.ResourceTokens, Amount: 500}}},
		resman.AllocationContext{UserID: "u1"},
	)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	track(t, env, first.AllocationID, 200)
	track(t, env, second.AllocationID, 300)
	track(t, env, third.AllocationID, 100)

	report, err := env.mgr.GetUsageReport(context.Background(), resman.ScopeUser, "u1", nil)
	if err != nil {
		t.Fatalf("usage report: %v", err)
	}
	if len(report.Usage) != 2 {
		t.Fatalf("usage summaries = %+v", report.Usage)
	}
	credits := report.Usage[0]
	if credits.ResourceType != resman.ResourceCredits {
		t.Fatalf("summaries not sorted by type: %+v", report.Usage)
	}
	if credits.TotalConsumed != 500 || credits.PeakUsage != 300 {
		t.Fatalf("credits summary = %+v", credits)
	}
	if math.Abs(credits.UtilizationRate-0.5) > 1e-9 {
		t.Fatalf("credits utilization = %v, want 0.5", credits.UtilizationRate)
	}
	tokens := report.Usage[1]
	if tokens.TotalConsumed != 100 || math.Abs(tokens.UtilizationRate-0.05) > 1e-9 {
		t.Fatalf("tokens summary = %+v", tokens)
	}
}

func TestUsageReport_ScopedToRequestedScope(t *testing.T) {
	env := newTestEnv(creditPool(1000, 1000))
	mine := env.allocate("u1", resman.ResourceCredits, 100)
	theirs := env.allocate("u2", resman.ResourceCredits, 100)
	track(t, env, mine.AllocationID, 50)
	track(t, env, theirs.AllocationID, 80)

	report, err := env.mgr.GetUsageReport(context.Background(), resman.ScopeUser, "u1", nil)
	if err != nil {
		t.Fatalf("usage report: %v", err)
	}
	if len(report.Usage) != 1 || report.Usage[0].TotalConsumed != 50 {
		t.Fatalf("report leaked across users: %+v", report.Usage)
	}

	global, err := env.mgr.GetUsageReport(context.Background(), resman.ScopeGlobal, "", nil)
	if err != nil {
		t.Fatalf("global report: %v", err)
	}
	if len(global.Usage) != 1 || global.Usage[0].TotalConsumed != 130 {
		t.Fatalf("global report = %+v", global.Usage)
	}
}

func TestUsageReport_PeriodExcludesOutsideAllocations(t *testing.T) {
	env := newTestEnv(creditPool(1000, 1000))
	old := env.allocate("u1", resman.ResourceCredits, 100)
	track(t, env, old.AllocationID, 100)

	env.clock.Advance(2 * time.Hour)
	fresh := env.allocate("u1", resman.ResourceCredits, 100)
	track(t, env, fresh.AllocationID, 30)

	period := &resman.UsagePeriod{
		Start: testStart.Add(time.Hour),
		End:   testStart.Add(3 * time.Hour),
	}
	report, err := env.mgr.GetUsageReport(context.Background(), resman.ScopeUser, "u1", period)
	if err != nil {
		t.Fatalf("usage report: %v", err)
	}
	if len(report.Usage) != 1 || report.Usage[0].TotalConsumed != 30 {
		t.Fatalf("report = %+v, want only the in-window allocation", report.Usage)
	}
	if !report.Period.Start.Equal(period.Start) || !report.Period.End.Equal(period.End) {
		t.Fatalf("report period = %+v", report.Period)
	}
}

func TestUsageReport_IncludesAllocationAtPeriodBoundary(t *testing.T) {
	env := newTestEnv(creditPool(1000, 1000))
	result := env.allocate("u1", resman.ResourceCredits, 400)
	track(t, env, result.AllocationID, 200)

	// Allocation and report share the same clock instant, so the
	// allocation sits exactly on the default window's end bound.
	report, err := env.mgr.GetUsageReport(context.Background(), resman.ScopeUser, "u1", nil)
	if err != nil {
		t.Fatalf("usage report: %v", err)
	}
	if len(report.Usage) != 1 || report.Usage[0].TotalConsumed != 200 {
		t.Fatalf("report = %+v, want the fresh allocation included", report.Usage)
	}

	// Same at the start bound: an allocation whose last update landed on
	// the period start still counts.
	env.clock.Advance(time.Hour)
	period := &resman.UsagePeriod{Start: testStart, End: testStart.Add(time.Hour)}
	report, err = env.mgr.GetUsageReport(context.Background(), resman.ScopeUser, "u1", period)
	if err != nil {
		t.Fatalf("usage report: %v", err)
	}
	if len(report.Usage) != 1 || report.Usage[0].TotalConsumed != 200 {
		t.Fatalf("report = %+v, want boundary allocation included", report.Usage)
	}
}

func TestUsageReport_EfficiencyAndCosts(t *testing.T) {
	env := newTestEnv(creditPool(1000, 1000))
	result := env.allocate("u1", resman.ResourceCredits, 400)
	track(t, env, result.AllocationID, 100)

	report, err := env.mgr.GetUsageReport(context.Background(), resman.ScopeUser, "u1", nil)
	if err != nil {
		t.Fatalf("usage report: %v", err)
	}
	eff := report.Efficiency
	if math.Abs(eff.OverallEfficiency-0.25) > 1e-9 {
		t.Fatalf("efficiency = %v, want 0.25", eff.OverallEfficiency)
	}
	if math.Abs(eff.WastedResources-75) > 1e-9 {
		t.Fatalf("wasted = %v, want 75", eff.WastedResources)
	}
	// 100/1000 utilization is below the low threshold: a reduce
	// recommendation saving half the consumption.
	if len(eff.Recommendations) != 1 || eff.Recommendations[0].Type != "reduce" {
		t.Fatalf("recommendations = %+v", eff.Recommendations)
	}
	if math.Abs(eff.OptimizationPotential-50) > 1e-9 {
		t.Fatalf("potential = %v, want 50", eff.OptimizationPotential)
	}

	if len(report.Costs) != 1 {
		t.Fatalf("costs = %+v", report.Costs)
	}
	if math.Abs(report.Costs[0].TotalCost-0.01) > 1e-9 {
		t.Fatalf("total cost = %v, want 0.01", report.Costs[0].TotalCost)
	}
}

func TestUsageReport_EmptyScope(t *testing.T) {
	env := newTestEnv(creditPool(1000, 1000))

	report, err := env.mgr.GetUsageReport(context.Background(), resman.ScopeUser, "nobody", nil)
	if err != nil {
		t.Fatalf("usage report: %v", err)
	}
	if len(report.Usage) != 0 || len(report.Costs) != 0 {
		t.Fatalf("report = %+v, want empty", report)
	}
	if report.Efficiency.OverallEfficiency != 0 {
		t.Fatalf("efficiency = %v for empty scope", report.Efficiency.OverallEfficiency)
	}
}

func track(t *testing.T, env *testEnv, allocationID string, consumed float64) {
	t.Helper()
	if err := env.mgr.TrackUsage(context.Background(), allocationID, resman.Usage{Consumed: consumed}); err != nil {
		t.Fatalf("track usage: %v", err)
	}
}
