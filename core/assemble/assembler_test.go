package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebrunet/dispatchcore/core/feasibility"
	"github.com/ebrunet/dispatchcore/core/model"
	"github.com/ebrunet/dispatchcore/core/rules"
)

func matchedRules() []rules.MatchedRule {
	return []rules.MatchedRule{
		{
			RuleID: "R-trapped", RuleName: "trapped survivors", Weight: 90,
			Priority: model.PriorityCritical,
			Capabilities: []model.CapabilityRequirement{
				{Code: "SEARCH_LIFE_DETECT", Priority: model.PriorityCritical},
			},
			Tasks: []string{"search_rescue", "medical_triage"},
		},
		{
			RuleID: "R-shelter", RuleName: "displaced population", Weight: 40,
			Priority: model.PriorityMedium,
			Tasks:    []string{"shelter_setup", "search_rescue", "surveying"},
		},
	}
}

func verdictFor(id string, allocs ...model.ResourceAllocation) feasibility.Verdict {
	return feasibility.Verdict{
		Plan: model.ParetoSolution{
			PlanID:      id,
			Objectives:  model.ObjectiveVector{ResponseTime: 18.5, Coverage: 0.75, Cost: 320, Risk: 0.2},
			Allocations: allocs,
		},
		Feasible: true,
	}
}

func allocation(name, resourceType string, taskTypes ...string) model.ResourceAllocation {
	return model.ResourceAllocation{
		Candidate: model.ResourceCandidate{
			Resource: model.Resource{ID: name, Name: name, Type: resourceType},
		},
		TaskTypes: taskTypes,
	}
}

func TestDeriveTasks_DedupPhaseDuration(t *testing.T) {
	tasks := deriveTasks(matchedRules())
	require.Len(t, tasks, 4)

	assert.Equal(t, "search_rescue", tasks[0].Type)
	assert.Equal(t, "immediate", tasks[0].Phase)
	assert.Equal(t, 180, tasks[0].DurationMin)
	assert.Equal(t, model.PriorityCritical, tasks[0].Priority)
	assert.Equal(t, []string{"SEARCH_LIFE_DETECT"}, tasks[0].RequiredCapabilities)

	assert.Equal(t, "medical_triage", tasks[1].Type)
	assert.Equal(t, "immediate", tasks[1].Phase)

	assert.Equal(t, "shelter_setup", tasks[2].Type)
	assert.Equal(t, "follow-up", tasks[2].Phase)
	assert.Equal(t, 240, tasks[2].DurationMin)

	assert.Equal(t, "surveying", tasks[3].Type)
	assert.Equal(t, DefaultTaskDuration, tasks[3].DurationMin)
}

func TestAssemble_SchemePerScore(t *testing.T) {
	verdicts := []feasibility.Verdict{
		verdictFor("P-1",
			allocation("Heavy Rescue 1", "rescue_team", "SEARCH_LIFE_DETECT"),
			allocation("Medic Unit 7", "medical_team"),
		),
		verdictFor("P-2", allocation("Drone Wing", "recon_unit")),
	}
	scores := []model.SchemeScore{
		{PlanID: "P-2", Score: 82.5, Rank: 1},
		{PlanID: "P-1", Score: 64.1, Rank: 2},
	}

	out := Assemble(Input{Matched: matchedRules(), Verdicts: verdicts, Scores: scores})
	require.Len(t, out, 2)

	// Output order follows the ranked scores, not the verdict order.
	assert.Equal(t, "P-2", out[0].PlanID)
	assert.Equal(t, "P-1", out[1].PlanID)
	assert.Equal(t, []string{"trapped survivors", "displaced population"}, out[0].FiredRules)
	assert.Equal(t, 18.5, out[0].Metrics.ResponseTime)

	p1 := out[1]
	require.Len(t, p1.Allocations, 2)
	assert.Equal(t, "primary rescue", p1.Allocations[0].Role)
	assert.Equal(t, []string{"SEARCH_LIFE_DETECT"}, p1.Allocations[0].TaskTypes)
	assert.Equal(t, "medical support", p1.Allocations[1].Role)
	// Empty task lists are filled positionally from the derived tasks.
	assert.Equal(t, []string{"medical_triage"}, p1.Allocations[1].TaskTypes)

	// Unknown resource types get the generic role.
	assert.Equal(t, "general support", out[0].Allocations[0].Role)
}

func TestAssemble_ScoreWithoutVerdictSkipped(t *testing.T) {
	out := Assemble(Input{
		Verdicts: []feasibility.Verdict{verdictFor("P-1")},
		Scores: []model.SchemeScore{
			{PlanID: "P-1", Score: 70},
			{PlanID: "P-ghost", Score: 90},
		},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "P-1", out[0].PlanID)
}

func TestConfidence_Bounds(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		coverage float64
		rules    int
		allocs   int
		errors   int
		want     float64
	}{
		{"floor under heavy errors", 0, 0, 0, 0, 10, 0.3},
		{"ceiling at best case", 100, 1, 10, 20, 0, 0.98},
		{"mid-range", 60, 0.75, 2, 3, 1, 0.785},
		{"score contribution capped", 100, 0, 0, 0, 0, 0.7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Confidence(tc.score, tc.coverage, tc.rules, tc.allocs, tc.errors)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.3)
			assert.LessOrEqual(t, got, 0.98)
		})
	}
}

func TestAssemble_Rationale(t *testing.T) {
	verdicts := []feasibility.Verdict{verdictFor("P-1",
		allocation("Heavy Rescue 1", "rescue_team", "SEARCH_LIFE_DETECT"),
		allocation("Medic Unit 7", "medical_team", "medical_triage"),
	)}
	scores := []model.SchemeScore{{PlanID: "P-1", Score: 77.25, Rank: 1}}

	out := Assemble(Input{
		Matched:          matchedRules(),
		Verdicts:         verdicts,
		Scores:           scores,
		IncludeRationale: true,
		TacticalNote:     "night operations in effect",
	})
	require.Len(t, out, 1)

	r := out[0].Rationale
	assert.Contains(t, r, "Plan P-1 scored 77.25/100.")
	assert.Contains(t, r, "Triggered by trapped survivors and displaced population.")
	assert.Contains(t, r, "Deploying Heavy Rescue 1, Medic Unit 7.")
	assert.Contains(t, r, "Estimated response time 18.5 min with 75.0% requirement coverage.")
	assert.Contains(t, r, "Note: night operations in effect")
}

func TestAssemble_RationaleOmittedByDefault(t *testing.T) {
	out := Assemble(Input{
		Verdicts: []feasibility.Verdict{verdictFor("P-1")},
		Scores:   []model.SchemeScore{{PlanID: "P-1", Score: 50}},
	})
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Rationale)
}

func TestRationale_PlaceholdersExcludedFromDeployList(t *testing.T) {
	v := verdictFor("P-1", model.ResourceAllocation{
		Candidate: model.ResourceCandidate{
			Resource:    model.Resource{Name: "unfilled requirement X", Type: "placeholder"},
			Placeholder: true,
		},
	})
	out := Assemble(Input{
		Verdicts:         []feasibility.Verdict{v},
		Scores:           []model.SchemeScore{{PlanID: "P-1", Score: 40}},
		IncludeRationale: true,
	})
	require.Len(t, out, 1)
	assert.NotContains(t, out[0].Rationale, "Deploying")
	assert.Equal(t, "unassigned", out[0].Allocations[0].Role)
}
