package feasibility

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ebrunet/dispatchcore/core/model"
)

// Fixed TOPSIS weights over (time, coverage, cost, risk). Coverage is the
// only benefit-type column; the others are cost-type.
var (
	topsisWeights = []float64{0.35, 0.30, 0.15, 0.20}
	benefitColumn = []bool{false, true, false, false}
)

// Rank scores the feasible plans TOPSIS-style: vector-normalize the four
// objective columns, weight them, find the ideal and anti-ideal point under
// each column's polarity, and score each plan by its relative closeness to
// the ideal, scaled to 0..100 and rounded to two decimals. Ties order by
// plan id. The result is sorted best-first with dense ranks 1..N.
func Rank(plans []model.ParetoSolution) []model.SchemeScore {
	if len(plans) == 0 {
		return nil
	}

	m := mat.NewDense(len(plans), 4, nil)
	for i, p := range plans {
		m.Set(i, 0, p.Objectives.ResponseTime)
		m.Set(i, 1, p.Objectives.Coverage)
		m.Set(i, 2, p.Objectives.Cost)
		m.Set(i, 3, p.Objectives.Risk)
	}

	// Vector normalization per column, then weighting. A zero column stays
	// zero rather than dividing by zero.
	for j := 0; j < 4; j++ {
		col := mat.Col(nil, j, m)
		norm := floats.Norm(col, 2)
		for i := range col {
			if norm > 0 {
				col[i] = col[i] / norm * topsisWeights[j]
			} else {
				col[i] = 0
			}
		}
		m.SetCol(j, col)
	}

	best := make([]float64, 4)
	worst := make([]float64, 4)
	for j := 0; j < 4; j++ {
		col := mat.Col(nil, j, m)
		lo, hi := floats.Min(col), floats.Max(col)
		if benefitColumn[j] {
			best[j], worst[j] = hi, lo
		} else {
			best[j], worst[j] = lo, hi
		}
	}

	scores := make([]model.SchemeScore, len(plans))
	for i, p := range plans {
		row := mat.Row(nil, i, m)
		dBest := floats.Distance(row, best, 2)
		dWorst := floats.Distance(row, worst, 2)
		score := 50.0
		if dBest+dWorst > 0 {
			score = dWorst / (dWorst + dBest) * 100
		}
		scores[i] = model.SchemeScore{
			PlanID: p.PlanID,
			Score:  math.Round(score*100) / 100,
			Dimensions: map[string]float64{
				"time":     row[0],
				"coverage": row[1],
				"cost":     row[2],
				"risk":     row[3],
			},
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].PlanID < scores[j].PlanID
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
	return scores
}
