// Package feasibility discards plans violating mandatory constraints and
// ranks the survivors by relative distance to the ideal objective vector.
package feasibility

import (
	"github.com/ebrunet/dispatchcore/core/logger"
	"github.com/ebrunet/dispatchcore/core/model"
	"github.com/ebrunet/dispatchcore/core/rules"
)

// Verdict is the constraint-filter outcome for one plan.
type Verdict struct {
	Plan     model.ParetoSolution   `json:"plan"`
	Feasible bool                   `json:"feasible"`
	Results  []rules.HardRuleResult `json:"results"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Filter checks every plan against the hard rules. A plan is feasible when
// no reject-type rule fails; failed warn-type rules become advisories
// carried with the plan. Zero feasible plans is a valid terminal outcome for
// the caller, not an error.
func Filter(engine *rules.Engine, plans []model.ParetoSolution, reqs []model.CapabilityRequirement, ctx *model.IncidentContext, log logger.Logger) []Verdict {
	if log == nil {
		log = logger.NopLogger{}
	}
	verdicts := make([]Verdict, 0, len(plans))
	for i := range plans {
		view := BuildView(&plans[i], reqs, ctx)
		results := engine.CheckHardRules(view)
		v := Verdict{
			Plan:     plans[i],
			Feasible: rules.IsFeasible(results),
			Results:  results,
		}
		for _, r := range results {
			if !r.Passed && r.Action == rules.ActionWarn {
				v.Warnings = append(v.Warnings, r.Message)
			}
		}
		if !v.Feasible {
			log.Debugf("plan %s rejected by hard rules", plans[i].PlanID)
		}
		verdicts = append(verdicts, v)
	}
	return verdicts
}

// Feasible extracts the surviving plans in verdict order.
func Feasible(verdicts []Verdict) []Verdict {
	var out []Verdict
	for _, v := range verdicts {
		if v.Feasible {
			out = append(out, v)
		}
	}
	return out
}
