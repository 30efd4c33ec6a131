package feasibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebrunet/dispatchcore/core/model"
	"github.com/ebrunet/dispatchcore/core/rules"
)

func planWith(id string, obj model.ObjectiveVector, allocs ...model.ResourceAllocation) model.ParetoSolution {
	return model.ParetoSolution{PlanID: id, Objectives: obj, Allocations: allocs}
}

func alloc(id string, caps []string, dist float64) model.ResourceAllocation {
	return model.ResourceAllocation{Candidate: model.ResourceCandidate{
		Resource:   model.Resource{ID: id, Capabilities: caps},
		DistanceKm: dist,
	}}
}

func TestBuildView_CoverageAndDistances(t *testing.T) {
	plan := planWith("P-1",
		model.ObjectiveVector{ResponseTime: 20, Coverage: 0.5, Cost: 100, Risk: 0.2},
		alloc("R-1", []string{"SEARCH_LIFE_DETECT"}, 3),
		alloc("R-2", []string{"MEDICAL_TRIAGE"}, 12),
	)
	reqs := []model.CapabilityRequirement{
		{Code: "SEARCH_LIFE_DETECT", Priority: model.PriorityCritical},
		{Code: "HEAVY_RESCUE", Priority: model.PriorityCritical},
		{Code: "MEDICAL_TRIAGE", Priority: model.PriorityHigh},
	}
	ctx := &model.IncidentContext{
		HasTrapped:  true,
		Environment: map[string]bool{"nightOperations": true},
	}

	v := BuildView(&plan, reqs, ctx)
	assert.Equal(t, 0.5, v.CriticalCoverage)
	assert.Equal(t, 1.0, v.HighCoverage)
	assert.Equal(t, 3.0, v.MinDistanceKm)
	assert.Equal(t, 12.0, v.MaxDistanceKm)
	assert.Equal(t, 2, v.ResourceCount)
	assert.False(t, v.LifeThreatUnserved)

	night, ok := v.Lookup("environment.nightOperations")
	require.True(t, ok)
	assert.Equal(t, true, night)
}

func TestBuildView_LifeThreatUnserved(t *testing.T) {
	plan := planWith("P-1",
		model.ObjectiveVector{},
		alloc("R-med", []string{"MEDICAL_TRIAGE"}, 5),
	)
	ctx := &model.IncidentContext{HasTrapped: true}
	v := BuildView(&plan, nil, ctx)
	assert.True(t, v.LifeThreatUnserved)

	got, ok := v.Lookup("lifeThreatUnserved")
	require.True(t, ok)
	assert.Equal(t, true, got)
}

func TestBuildView_PlaceholdersIgnored(t *testing.T) {
	plan := planWith("P-1", model.ObjectiveVector{},
		model.ResourceAllocation{Candidate: model.ResourceCandidate{
			Resource:    model.Resource{ID: "placeholder-X", Capabilities: []string{"SEARCH_LIFE_DETECT"}},
			Placeholder: true,
		}},
	)
	v := BuildView(&plan, []model.CapabilityRequirement{
		{Code: "SEARCH_LIFE_DETECT", Priority: model.PriorityCritical},
	}, &model.IncidentContext{HasTrapped: true})

	assert.Equal(t, 0.0, v.CriticalCoverage)
	assert.True(t, v.LifeThreatUnserved)
	assert.Equal(t, 0.0, v.MinDistanceKm)
}

func TestBuildView_EmptyPriorityBandFullyCovered(t *testing.T) {
	plan := planWith("P-1", model.ObjectiveVector{}, alloc("R-1", nil, 0))
	v := BuildView(&plan, nil, nil)
	assert.Equal(t, 1.0, v.CriticalCoverage)
	assert.Equal(t, 1.0, v.HighCoverage)
}

func TestPlanViewLookup_SnakeCaseAliases(t *testing.T) {
	v := &PlanView{ResponseTime: 42, MaxDistanceKm: 7}
	for _, path := range []string{"responseTime", "response_time"} {
		got, ok := v.Lookup(path)
		require.True(t, ok, path)
		assert.Equal(t, 42.0, got)
	}
	_, ok := v.Lookup("no_such_field")
	assert.False(t, ok)
}

// hardRule builds a violation predicate: the rule fails when the condition
// holds against the plan view.
func hardRule(id string, action rules.Action, field, op string, value any) rules.HardRule {
	return rules.HardRule{
		ID:     id,
		Name:   id,
		Check:  rules.Condition{Field: field, Operator: op, Value: value},
		Action: action,
	}
}

func TestFilter_RejectAndWarn(t *testing.T) {
	engine := rules.NewEngine(nil, []rules.HardRule{
		hardRule("HR-risk", rules.ActionReject, "risk", rules.OpGt, 0.5),
		hardRule("HR-cost", rules.ActionWarn, "cost", rules.OpGt, 100.0),
	}, nil)

	plans := []model.ParetoSolution{
		planWith("P-safe", model.ObjectiveVector{Risk: 0.2, Cost: 50}),
		planWith("P-pricey", model.ObjectiveVector{Risk: 0.3, Cost: 900}),
		planWith("P-risky", model.ObjectiveVector{Risk: 0.9, Cost: 50}),
	}
	verdicts := Filter(engine, plans, nil, nil, nil)
	require.Len(t, verdicts, 3)

	assert.True(t, verdicts[0].Feasible)
	assert.Empty(t, verdicts[0].Warnings)

	assert.True(t, verdicts[1].Feasible)
	require.Len(t, verdicts[1].Warnings, 1)
	assert.Contains(t, verdicts[1].Warnings[0], "HR-cost")

	assert.False(t, verdicts[2].Feasible)

	feasible := Feasible(verdicts)
	require.Len(t, feasible, 2)
	assert.Equal(t, "P-safe", feasible[0].Plan.PlanID)
	assert.Equal(t, "P-pricey", feasible[1].Plan.PlanID)
}

func TestFilter_ZeroFeasibleIsValid(t *testing.T) {
	engine := rules.NewEngine(nil, []rules.HardRule{
		hardRule("HR-impossible", rules.ActionReject, "risk", rules.OpGte, -1.0),
	}, nil)
	verdicts := Filter(engine, []model.ParetoSolution{planWith("P-1", model.ObjectiveVector{})}, nil, nil, nil)
	assert.Empty(t, Feasible(verdicts))
}

func TestRank_DominantPlanWins(t *testing.T) {
	plans := []model.ParetoSolution{
		planWith("P-worse", model.ObjectiveVector{ResponseTime: 40, Coverage: 0.6, Cost: 800, Risk: 0.6}),
		planWith("P-better", model.ObjectiveVector{ResponseTime: 10, Coverage: 0.9, Cost: 200, Risk: 0.1}),
		planWith("P-middle", model.ObjectiveVector{ResponseTime: 25, Coverage: 0.7, Cost: 500, Risk: 0.3}),
	}
	scores := Rank(plans)
	require.Len(t, scores, 3)

	assert.Equal(t, "P-better", scores[0].PlanID)
	assert.Equal(t, "P-worse", scores[2].PlanID)
	for i, s := range scores {
		assert.Equal(t, i+1, s.Rank)
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 100.0)
	}
	// The dominating and dominated plans pin the scale ends.
	assert.Equal(t, 100.0, scores[0].Score)
	assert.Equal(t, 0.0, scores[2].Score)
}

func TestRank_IdenticalPlansTieByID(t *testing.T) {
	obj := model.ObjectiveVector{ResponseTime: 20, Coverage: 0.8, Cost: 300, Risk: 0.2}
	scores := Rank([]model.ParetoSolution{
		planWith("P-b", obj),
		planWith("P-a", obj),
	})
	require.Len(t, scores, 2)
	assert.Equal(t, "P-a", scores[0].PlanID)
	assert.Equal(t, "P-b", scores[1].PlanID)
	// Equidistant plans score the midpoint.
	assert.Equal(t, 50.0, scores[0].Score)
	assert.Equal(t, 50.0, scores[1].Score)
}

func TestRank_Empty(t *testing.T) {
	assert.Nil(t, Rank(nil))
}
