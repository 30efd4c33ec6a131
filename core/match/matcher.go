// Package match scores available rescue resources against the aggregated
// capability requirements. The scoring algorithm is treated as an external
// dependency: it runs under a circuit breaker with a bounded timeout and a
// deterministic degraded path when unavailable.
package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/ebrunet/dispatchcore/core/breaker"
	"github.com/ebrunet/dispatchcore/core/logger"
	"github.com/ebrunet/dispatchcore/core/model"
)

// ErrNoResources reports the one fatal run-time condition of the matcher:
// an empty resource pool with no requirements to fall back on.
var ErrNoResources = errors.New("match: no resources and no requirements to degrade against")

// BreakerName is the dependency name the matcher registers its breaker under.
const BreakerName = "resource_scorer"

// Outcome is the matcher stage result.
type Outcome struct {
	Candidates []model.ResourceCandidate
	// Degraded is true when the scoring algorithm was unavailable and the
	// candidates come from the fallback path.
	Degraded bool
	Note     string
}

// Matcher ranks resources against requirements through the breaker-wrapped
// scoring algorithm.
type Matcher struct {
	scorer Scorer
	br     *breaker.Breaker
	log    logger.Logger
}

// NewMatcher wires a matcher. A nil scorer uses the default WeightedScorer;
// a nil logger defaults to a no-op logger.
func NewMatcher(scorer Scorer, br *breaker.Breaker, log logger.Logger) *Matcher {
	if scorer == nil {
		scorer = WeightedScorer{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Matcher{scorer: scorer, br: br, log: log}
}

// Match runs the scoring algorithm and returns ranked candidates. When the
// breaker rejects the call or the algorithm fails, the degraded path emits
// naive capability matches from the pool plus one synthetic placeholder per
// requirement no pool resource can serve. Match only returns an error for
// the fatal empty-pool/no-requirement condition.
func (m *Matcher) Match(ctx context.Context, req Request) (Outcome, error) {
	if len(req.Resources) == 0 && len(req.Requirements) == 0 {
		return Outcome{}, ErrNoResources
	}

	var candidates []model.ResourceCandidate
	err := m.br.Execute(ctx, func(callCtx context.Context) error {
		cs, err := m.scorer.Score(callCtx, req)
		if err != nil {
			return err
		}
		candidates = cs
		return nil
	})
	if err == nil {
		return Outcome{Candidates: candidates}, nil
	}

	m.log.Warnf("resource scoring unavailable, using degraded matching: %v", err)
	return Outcome{
		Candidates: m.fallbackCandidates(req),
		Degraded:   true,
		Note:       fmt.Sprintf("scorer fallback: %v", err),
	}, nil
}

// fallbackCandidates implements the degraded path: direct capability
// containment for requirements the pool can serve, a placeholder for the
// rest. Scores are fixed so the output is deterministic.
func (m *Matcher) fallbackCandidates(req Request) []model.ResourceCandidate {
	var out []model.ResourceCandidate
	used := make(map[string]bool)
	for _, need := range req.Requirements {
		met := false
		for _, r := range req.Resources {
			if !r.Dispatchable() || !r.HasCapability(need.Code) || used[r.ID] {
				continue
			}
			used[r.ID] = true
			met = true
			out = append(out, model.ResourceCandidate{
				Resource:   r,
				Score:      50,
				ETAMinutes: r.ResponseTimeMin,
				Available:  r.Status == model.StatusAvailable,
				Breakdown:  map[string]float64{"fallback": 1},
				Recommendation: fmt.Sprintf("Deploy %s for %s (degraded match, scoring unavailable)",
					r.Name, need.Code),
			})
			break
		}
		if !met {
			out = append(out, model.ResourceCandidate{
				Resource: model.Resource{
					ID:           "placeholder-" + need.Code,
					Name:         "unfilled requirement " + need.Code,
					Type:         "placeholder",
					Capabilities: []string{need.Code},
					Status:       model.StatusUnavailable,
				},
				Score:       0,
				Available:   false,
				Placeholder: true,
				Breakdown:   map[string]float64{"fallback": 1},
				Recommendation: fmt.Sprintf("No resource available for %s at %s priority",
					need.Code, need.Priority),
			})
		}
	}
	return out
}
