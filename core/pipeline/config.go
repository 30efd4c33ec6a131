package pipeline

import (
	"github.com/ebrunet/dispatchcore/core/breaker"
	"github.com/ebrunet/dispatchcore/core/match"
	"github.com/ebrunet/dispatchcore/core/optimize"
)

// Options tunes one pipeline instance. The zero value is valid; SetDefaults
// applies the documented defaults.
type Options struct {
	// PlanCount is the number of candidate plans requested from the
	// optimizer. Defaults to optimize.DefaultPlanCount.
	PlanCount int `json:"plan_count"`
	// IncludePareto keeps the raw plan set on the result for diagnostics.
	IncludePareto bool `json:"include_pareto"`
	// IncludeRationale renders the templated explanation per scheme.
	IncludeRationale bool `json:"include_rationale"`
	// TacticalNote is an optional operator note appended to rationales.
	TacticalNote string `json:"tactical_note"`
	// Weights configures the resource scoring blend.
	Weights match.Weights `json:"weights"`
	// Breaker configures the circuit breakers around the external
	// algorithm calls.
	Breaker breaker.Config `json:"breaker"`
}

// SetDefaults fills zero fields with the documented defaults.
func (o *Options) SetDefaults() {
	if o.PlanCount <= 0 {
		o.PlanCount = optimize.DefaultPlanCount
	}
	o.Weights.SetDefaults()
	o.Breaker.SetDefaults()
}
