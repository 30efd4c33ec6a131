// Package optimize produces the candidate allocation plans the constraint
// filter and ranker choose from. The multi-objective solver is an external
// dependency behind a circuit breaker; when it is unavailable a fixed
// library of named trade-off profiles keeps the pipeline producing plans.
package optimize

import (
	"context"
	"fmt"
	"sort"

	"github.com/ebrunet/dispatchcore/core/breaker"
	"github.com/ebrunet/dispatchcore/core/logger"
	"github.com/ebrunet/dispatchcore/core/model"
)

// BreakerName is the dependency name the optimizer registers its breaker under.
const BreakerName = "plan_optimizer"

// DefaultPlanCount is the number of plans generated when the caller does not
// ask for a specific count.
const DefaultPlanCount = 3

// Outcome is the optimizer stage result.
type Outcome struct {
	Plans []model.ParetoSolution
	// Degraded is true when the plans come from the fallback profiles.
	Degraded bool
	Note     string
}

// Optimizer runs the solver through its breaker.
type Optimizer struct {
	solver Solver
	br     *breaker.Breaker
	log    logger.Logger
}

// NewOptimizer wires an optimizer. A nil solver uses the default
// GreedySolver; a nil logger defaults to a no-op logger.
func NewOptimizer(solver Solver, br *breaker.Breaker, log logger.Logger) *Optimizer {
	if solver == nil {
		solver = GreedySolver{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Optimizer{solver: solver, br: br, log: log}
}

// Optimize generates the plan set. Solver failure or an open breaker falls
// back to the profile library; the degradation is reported, never hidden.
func (o *Optimizer) Optimize(ctx context.Context, p Problem) Outcome {
	var plans []model.ParetoSolution
	err := o.br.Execute(ctx, func(callCtx context.Context) error {
		ps, err := o.solver.Solve(callCtx, p)
		if err != nil {
			return err
		}
		plans = ps
		return nil
	})
	if err == nil {
		return Outcome{Plans: plans}
	}

	o.log.Warnf("plan solver unavailable, using trade-off profiles: %v", err)
	return Outcome{
		Plans:    profilePlans(p, p.PlanCount),
		Degraded: true,
		Note:     fmt.Sprintf("solver fallback: %v", err),
	}
}

// sortAndRank orders plans by response time ascending (ties by plan id) and
// assigns dense ranks 1..N.
func sortAndRank(plans []model.ParetoSolution) {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].Objectives.ResponseTime != plans[j].Objectives.ResponseTime {
			return plans[i].Objectives.ResponseTime < plans[j].Objectives.ResponseTime
		}
		return plans[i].PlanID < plans[j].PlanID
	})
	for i := range plans {
		plans[i].Rank = i + 1
	}
}
