package optimize

import (
	"math"

	"github.com/ebrunet/dispatchcore/core/model"
)

// tradeoffProfile scales a baseline objective vector into one named
// fallback plan.
type tradeoffProfile struct {
	name     string
	time     float64
	coverage float64
	cost     float64
	risk     float64
}

// fallbackProfiles is the fixed library used when the solver is
// unavailable. Order is not significant; the fallback set is re-sorted by
// response time before ranking.
var fallbackProfiles = []tradeoffProfile{
	{name: "fast-response", time: 0.6, coverage: 0.85, cost: 1.3, risk: 0.9},
	{name: "high-coverage", time: 1.2, coverage: 1.15, cost: 1.25, risk: 0.85},
	{name: "low-cost", time: 1.3, coverage: 0.7, cost: 0.7, risk: 1.1},
	{name: "low-risk", time: 1.15, coverage: 0.9, cost: 1.2, risk: 0.6},
	{name: "balanced", time: 1.0, coverage: 0.9, cost: 1.0, risk: 0.9},
}

// baselineFrom derives the baseline objective vector the profiles scale.
// It reflects a plan deploying every real candidate.
func baselineFrom(p Problem) model.ObjectiveVector {
	base := model.ObjectiveVector{ResponseTime: 30, Coverage: 0.8, Cost: 500, Risk: 0.3}
	if len(p.Candidates) == 0 {
		return base
	}
	var maxETA, cost float64
	capUnion := make(map[string]bool)
	real := 0
	for _, c := range p.Candidates {
		if c.Placeholder {
			continue
		}
		real++
		if c.ETAMinutes > maxETA {
			maxETA = c.ETAMinutes
		}
		cost += deployCost(c)
		for _, code := range c.Resource.Capabilities {
			capUnion[code] = true
		}
	}
	if real == 0 {
		return base
	}
	covered := 0
	for _, req := range p.Requirements {
		if capUnion[req.Code] {
			covered++
		}
	}
	coverage := 1.0
	if len(p.Requirements) > 0 {
		coverage = float64(covered) / float64(len(p.Requirements))
	}
	return model.ObjectiveVector{
		ResponseTime: math.Max(maxETA, 1),
		Coverage:     coverage,
		Cost:         math.Max(cost, 1),
		Risk:         0.1 + 0.4*(1-coverage),
	}
}

// profilePlans builds the fallback plan set: each profile scales the
// baseline, with coverage and risk clamped to [0,1]. Every plan carries the
// same candidate allocations; the trade-off lives in the objective vector.
func profilePlans(p Problem, count int) []model.ParetoSolution {
	if count <= 0 {
		count = DefaultPlanCount
	}
	if count > len(fallbackProfiles) {
		count = len(fallbackProfiles)
	}
	base := baselineFrom(p)

	allocations := make([]model.ResourceAllocation, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		var tasks []string
		for _, req := range p.Requirements {
			if c.Resource.HasCapability(req.Code) {
				tasks = append(tasks, req.Code)
			}
		}
		allocations = append(allocations, model.ResourceAllocation{
			Candidate:      c,
			TaskTypes:      tasks,
			Recommendation: c.Recommendation,
		})
	}

	plans := make([]model.ParetoSolution, 0, count)
	for i := 0; i < count; i++ {
		prof := fallbackProfiles[i]
		plans = append(plans, model.ParetoSolution{
			PlanID: "P-" + prof.name,
			Objectives: model.ObjectiveVector{
				ResponseTime: base.ResponseTime * prof.time,
				Coverage:     clamp01(base.Coverage * prof.coverage),
				Cost:         base.Cost * prof.cost,
				Risk:         clamp01(base.Risk * prof.risk),
			}.Round(),
			Allocations: allocations,
			Source:      "profile:" + prof.name,
		})
	}
	sortAndRank(plans)
	return plans
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
