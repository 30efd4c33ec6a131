package optimize

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ebrunet/dispatchcore/core/model"
)

// Problem is the input of the multi-objective solver.
type Problem struct {
	Candidates   []model.ResourceCandidate
	Requirements []model.CapabilityRequirement
	// PlanCount is the number of trade-off plans to generate.
	PlanCount int
}

// Solver is the external multi-objective optimization algorithm producing
// candidate plans over {response time, coverage, cost, risk}.
type Solver interface {
	Solve(ctx context.Context, p Problem) ([]model.ParetoSolution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, p Problem) ([]model.ParetoSolution, error)

func (f SolverFunc) Solve(ctx context.Context, p Problem) ([]model.ParetoSolution, error) {
	return f(ctx, p)
}

// emphasisWeights are the scalarization weight vectors the greedy solver
// cycles through, one plan per vector, over the feature columns
// (score, speed, economy, safety).
var emphasisWeights = [][]float64{
	{0.25, 0.45, 0.15, 0.15}, // favour fast arrival
	{0.55, 0.15, 0.15, 0.15}, // favour requirement coverage
	{0.2, 0.2, 0.45, 0.15},   // favour cheap deployment
	{0.2, 0.15, 0.15, 0.5},   // favour low risk
	{0.3, 0.25, 0.2, 0.25},   // balanced
}

// GreedySolver is the default solver: for each emphasis vector it greedily
// selects candidates by scalarized utility until every requirement is
// covered, then reduces the selection to an objective vector.
type GreedySolver struct{}

// Solve implements Solver.
func (GreedySolver) Solve(ctx context.Context, p Problem) ([]model.ParetoSolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count := p.PlanCount
	if count <= 0 {
		count = DefaultPlanCount
	}
	if count > len(emphasisWeights) {
		count = len(emphasisWeights)
	}

	features := candidateFeatures(p.Candidates)
	var plans []model.ParetoSolution
	seen := make(map[string]bool)
	for k := 0; k < count; k++ {
		selection := selectGreedy(p, features, emphasisWeights[k])
		if len(selection) == 0 {
			continue
		}
		key := selectionKey(selection, p.Candidates)
		if seen[key] {
			continue
		}
		seen[key] = true
		plans = append(plans, buildSolution(fmt.Sprintf("P-%d", len(plans)+1), selection, p))
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("optimize: no plan could be formed from %d candidates", len(p.Candidates))
	}
	sortAndRank(plans)
	return plans, nil
}

// candidateFeatures builds the normalized feature matrix the scalarization
// works on: per candidate (score, speed, economy, safety), each in [0,1].
func candidateFeatures(cands []model.ResourceCandidate) *mat.Dense {
	if len(cands) == 0 {
		return nil
	}
	maxETA, maxScore := 1.0, 1.0
	for _, c := range cands {
		if c.ETAMinutes > maxETA {
			maxETA = c.ETAMinutes
		}
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	m := mat.NewDense(len(cands), 4, nil)
	for i, c := range cands {
		cost := deployCost(c)
		m.Set(i, 0, c.Score/maxScore)
		m.Set(i, 1, 1-c.ETAMinutes/maxETA)
		m.Set(i, 2, 1/(1+cost/100))
		safety := c.Resource.EquipmentLevel
		if c.Available {
			safety = (safety + 1) / 2
		}
		m.Set(i, 3, safety)
	}
	return m
}

// selectGreedy picks candidate indexes by descending scalarized utility
// until all requirements are covered (or candidates run out).
func selectGreedy(p Problem, features *mat.Dense, weights []float64) []int {
	if features == nil {
		return nil
	}
	n := len(p.Candidates)
	utilities := make([]float64, n)
	for i := 0; i < n; i++ {
		utilities[i] = floats.Dot(mat.Row(nil, i, features), weights)
	}

	order := make([]int, n)
	floats.Argsort(append([]float64(nil), utilities...), order)
	// Argsort is ascending; walk from the back for best-first.
	uncovered := make(map[string]int, len(p.Requirements))
	for _, req := range p.Requirements {
		uncovered[req.Code] = req.MinQuantity
	}
	var selection []int
	for i := n - 1; i >= 0; i-- {
		idx := order[i]
		c := p.Candidates[idx]
		helps := len(uncovered) == 0 && len(selection) == 0
		for code, qty := range uncovered {
			if c.Resource.HasCapability(code) {
				helps = true
				if qty <= 1 {
					delete(uncovered, code)
				} else {
					uncovered[code] = qty - 1
				}
			}
		}
		if helps {
			selection = append(selection, idx)
		}
		if len(uncovered) == 0 && len(selection) > 0 {
			break
		}
	}
	return selection
}

func selectionKey(selection []int, cands []model.ResourceCandidate) string {
	ids := make(map[string]bool, len(selection))
	for _, i := range selection {
		ids[cands[i].Resource.ID] = true
	}
	key := ""
	for _, c := range cands {
		if ids[c.Resource.ID] {
			key += c.Resource.ID + "|"
		}
	}
	return key
}

// buildSolution reduces a candidate selection to an allocation plan with its
// objective vector.
func buildSolution(planID string, selection []int, p Problem) model.ParetoSolution {
	var (
		allocations []model.ResourceAllocation
		maxETA      float64
		cost        float64
		safetySum   float64
	)
	capUnion := make(map[string]bool)
	selected := make(map[int]bool, len(selection))
	for _, i := range selection {
		selected[i] = true
	}
	for _, i := range selection {
		c := p.Candidates[i]
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
			Alternatives:   alternativesFor(tasks, selected, p),
		})
		if c.ETAMinutes > maxETA {
			maxETA = c.ETAMinutes
		}
		cost += deployCost(c)
		safetySum += c.Resource.EquipmentLevel
		for _, code := range c.Resource.Capabilities {
			capUnion[code] = true
		}
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
	meanSafety := safetySum / float64(len(selection))
	risk := math.Min(1, 0.1+0.4*(1-coverage)+0.002*maxETA+0.2*(1-meanSafety))

	return model.ParetoSolution{
		PlanID: planID,
		Objectives: model.ObjectiveVector{
			ResponseTime: maxETA,
			Coverage:     coverage,
			Cost:         cost,
			Risk:         risk,
		}.Round(),
		Allocations: allocations,
		Variables:   map[string]float64{"resources": float64(len(selection))},
		Source:      "greedy_frontier",
	}
}

// maxAlternatives caps the substitute list per allocation.
const maxAlternatives = 2

// alternativesFor lists unselected real candidates that could take over any
// of the allocation's task types, best score first with id tie-break.
func alternativesFor(tasks []string, selected map[int]bool, p Problem) []string {
	var alts []model.ResourceCandidate
	for i, c := range p.Candidates {
		if selected[i] || c.Placeholder {
			continue
		}
		for _, code := range tasks {
			if c.Resource.HasCapability(code) {
				alts = append(alts, c)
				break
			}
		}
	}
	sort.SliceStable(alts, func(i, j int) bool {
		if alts[i].Score != alts[j].Score {
			return alts[i].Score > alts[j].Score
		}
		return alts[i].Resource.ID < alts[j].Resource.ID
	})
	if len(alts) == 0 {
		return nil
	}
	if len(alts) > maxAlternatives {
		alts = alts[:maxAlternatives]
	}
	out := make([]string, len(alts))
	for i, c := range alts {
		out[i] = c.Resource.ID
	}
	return out
}

// deployCost is a fixed deterministic cost model: personnel plus travel.
func deployCost(c model.ResourceCandidate) float64 {
	return float64(c.Resource.Personnel)*10 + c.DistanceKm*2
}
