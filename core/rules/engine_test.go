package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebrunet/dispatchcore/core/model"
)

func earthquakeContext() *model.IncidentContext {
	return &model.IncidentContext{
		ID:           "inc-1",
		DisasterType: "earthquake",
		Magnitude:    6.8,
		HasTrapped:   true,
		Casualties:   model.Casualties{Severe: 12, Injured: 40},
		Environment:  map[string]bool{"aftershock": true},
	}
}

func leaf(field, op string, value any) Condition {
	return Condition{Field: field, Operator: op, Value: value}
}

func trappedRule() Rule {
	return Rule{
		ID:   "R-TRAPPED",
		Name: "Trapped victims",
		Condition: Condition{All: []Condition{
			leaf("disasterType", OpEq, "earthquake"),
			leaf("hasTrapped", OpEq, true),
		}},
		Capabilities: []CapabilityDemand{{Code: "SEARCH_LIFE_DETECT", Priority: model.PriorityCritical, MinQuantity: 1}},
		Tasks:        []string{"search_rescue"},
		Priority:     model.PriorityCritical,
		Weight:       95,
	}
}

func TestEvaluate_MatchAndSortByWeight(t *testing.T) {
	low := Rule{
		ID:        "R-LOW",
		Name:      "Any earthquake",
		Condition: Condition{All: []Condition{leaf("disasterType", OpEq, "earthquake")}},
		Tasks:     []string{"damage_assessment"},
		Weight:    10,
	}
	engine := NewEngine([]Rule{low, trappedRule()}, nil, nil)

	matched := engine.Evaluate(earthquakeContext())
	require.Len(t, matched, 2)
	assert.Equal(t, "R-TRAPPED", matched[0].RuleID)
	assert.Equal(t, "R-LOW", matched[1].RuleID)
	assert.Equal(t, "SEARCH_LIFE_DETECT", matched[0].Capabilities[0].Code)
	assert.Equal(t, model.PriorityCritical, matched[0].Capabilities[0].Priority)
}

func TestEvaluate_Idempotent(t *testing.T) {
	engine := NewEngine([]Rule{trappedRule()}, nil, nil)
	ctx := earthquakeContext()
	first := engine.Evaluate(ctx)
	second := engine.Evaluate(ctx)
	assert.Equal(t, first, second)
}

func TestEvaluate_MissingFieldIsFalse(t *testing.T) {
	rule := Rule{
		ID:        "R-MISSING",
		Condition: Condition{All: []Condition{leaf("no.such.field", OpEq, "x")}},
		Weight:    1,
	}
	engine := NewEngine([]Rule{rule}, nil, nil)
	assert.Empty(t, engine.Evaluate(earthquakeContext()))
}

func TestEvaluate_AnyCombinator(t *testing.T) {
	rule := Rule{
		ID: "R-ANY",
		Condition: Condition{Any: []Condition{
			leaf("disasterType", OpEq, "flood"),
			leaf("magnitude", OpGte, 6.0),
		}},
		Weight: 1,
	}
	engine := NewEngine([]Rule{rule}, nil, nil)
	matched := engine.Evaluate(earthquakeContext())
	require.Len(t, matched, 1)
	assert.Equal(t, "R-ANY", matched[0].RuleID)
}

func TestEvaluate_ZeroMatchesIsValid(t *testing.T) {
	engine := NewEngine(nil, nil, nil)
	assert.Empty(t, engine.Evaluate(earthquakeContext()))
}

func TestEvaluate_StableTieOrder(t *testing.T) {
	a := Rule{ID: "R-A", Condition: Condition{All: []Condition{leaf("disasterType", OpEq, "earthquake")}}, Weight: 5}
	b := Rule{ID: "R-B", Condition: Condition{All: []Condition{leaf("disasterType", OpEq, "earthquake")}}, Weight: 5}
	engine := NewEngine([]Rule{a, b}, nil, nil)
	matched := engine.Evaluate(earthquakeContext())
	require.Len(t, matched, 2)
	assert.Equal(t, "R-A", matched[0].RuleID)
	assert.Equal(t, "R-B", matched[1].RuleID)
}

type mapView map[string]any

func (m mapView) Lookup(path string) (any, bool) {
	v, ok := m[path]
	return v, ok
}

func TestCheckHardRules_RejectAndWarn(t *testing.T) {
	hard := []HardRule{
		{
			ID:       "H-ALWAYS",
			Name:     "Risk ceiling",
			Check:    leaf("risk", OpGte, 0.0),
			Action:   ActionReject,
			Severity: "critical",
		},
		{
			ID:       "H-NEVER",
			Name:     "Cost advisory",
			Check:    leaf("cost", OpGt, 1e12),
			Action:   ActionWarn,
			Severity: "minor",
		},
	}
	engine := NewEngine(nil, hard, nil)
	view := mapView{"risk": 0.5, "cost": 100.0}

	results := engine.CheckHardRules(view)
	require.Len(t, results, 2)
	assert.False(t, results[0].Passed)
	assert.Equal(t, ActionReject, results[0].Action)
	assert.NotEmpty(t, results[0].Message)
	assert.True(t, results[1].Passed)
	assert.False(t, IsFeasible(results))
}

func TestCheckHardRules_WarnOnlyIsFeasible(t *testing.T) {
	hard := []HardRule{{
		ID:     "H-WARN",
		Check:  leaf("risk", OpGte, 0.0),
		Action: ActionWarn,
	}}
	engine := NewEngine(nil, hard, nil)
	results := engine.CheckHardRules(mapView{"risk": 0.9})
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.True(t, IsFeasible(results))
}

func TestCheckHardRules_AbsentFieldPasses(t *testing.T) {
	hard := []HardRule{{
		ID:     "H-ABSENT",
		Check:  leaf("unknown", OpGt, 1.0),
		Action: ActionReject,
	}}
	engine := NewEngine(nil, hard, nil)
	results := engine.CheckHardRules(mapView{})
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.True(t, IsFeasible(results))
}

func TestCheckHardRules_InapplicablePreconditionPasses(t *testing.T) {
	when := leaf("environment", OpEq, "storm")
	hard := []HardRule{{
		ID:     "H-PRE",
		When:   &when,
		Check:  leaf("risk", OpGte, 0.0),
		Action: ActionReject,
	}}
	engine := NewEngine(nil, hard, nil)
	results := engine.CheckHardRules(mapView{"risk": 0.9, "environment": "calm"})
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}

func TestCheckHardRules_ThresholdFromField(t *testing.T) {
	hard := []HardRule{{
		ID:     "H-FIELD",
		Name:   "Response time bound",
		Check:  Condition{Field: "responseTime", Operator: OpGt, ThresholdField: "maxResponseTime"},
		Action: ActionReject,
	}}
	engine := NewEngine(nil, hard, nil)

	results := engine.CheckHardRules(mapView{"responseTime": 90.0, "maxResponseTime": 60.0})
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, 60.0, results[0].Threshold)

	results = engine.CheckHardRules(mapView{"responseTime": 30.0, "maxResponseTime": 60.0})
	assert.True(t, results[0].Passed)
}
