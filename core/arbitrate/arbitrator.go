// Package arbitrate ranks competing incident scenes when more than one
// claims the shared resource pool.
package arbitrate

import (
	"context"
	"math"
	"sort"

	"github.com/ebrunet/dispatchcore/core/logger"
	"github.com/ebrunet/dispatchcore/core/model"
)

// SceneRanker is the external multi-scene ranking algorithm.
type SceneRanker interface {
	Rank(ctx context.Context, scenes []model.Scene) ([]model.ScenePriority, error)
}

// RankerFunc adapts a function to the SceneRanker interface.
type RankerFunc func(ctx context.Context, scenes []model.Scene) ([]model.ScenePriority, error)

func (f RankerFunc) Rank(ctx context.Context, scenes []model.Scene) ([]model.ScenePriority, error) {
	return f(ctx, scenes)
}

// casualty weights for the life-threat dimension
const (
	deathWeight   = 0.04
	severeWeight  = 0.03
	injuredWeight = 0.01
	missingWeight = 0.02
)

// urgencyByType maps disaster types to a time-urgency score. Unknown types
// default to 0.5.
var urgencyByType = map[string]float64{
	"earthquake": 0.9,
	"chemical":   0.85,
	"fire":       0.8,
	"flood":      0.7,
	"landslide":  0.7,
	"typhoon":    0.6,
}

// Arbitrator produces scene priorities. With a single scene it synthesizes
// the priority directly; with several it delegates to the ranker and falls
// back to a deterministic formula when the ranker fails.
type Arbitrator struct {
	ranker SceneRanker
	log    logger.Logger
}

// NewArbitrator creates an arbitrator. A nil ranker always takes the
// fallback path for multi-scene input.
func NewArbitrator(ranker SceneRanker, log logger.Logger) *Arbitrator {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Arbitrator{ranker: ranker, log: log}
}

// lifeThreat is the weighted casualty sum capped at 1.
func lifeThreat(c model.Casualties) float64 {
	t := float64(c.Deaths)*deathWeight + float64(c.Severe)*severeWeight +
		float64(c.Injured)*injuredWeight + float64(c.Missing)*missingWeight
	return math.Min(t, 1)
}

func urgency(disasterType string) float64 {
	if u, ok := urgencyByType[disasterType]; ok {
		return u
	}
	return 0.5
}

// scenePriority applies the fixed scoring formula:
// 0.4*threat + 0.3*urgency + 0.3*availability with availability pinned to 1.
func scenePriority(s model.Scene) model.ScenePriority {
	threat := lifeThreat(s.Casualties)
	urg := urgency(s.DisasterType)
	return model.ScenePriority{
		SceneID: s.ID,
		Score:   0.4*threat + 0.3*urg + 0.3,
		Dimensions: map[string]float64{
			"lifeThreat":           threat,
			"timeUrgency":          urg,
			"resourceAvailability": 1.0,
		},
	}
}

// Arbitrate ranks the scenes. The boolean reports whether the fallback path
// was taken. Zero or one scene never touches the external ranker.
func (a *Arbitrator) Arbitrate(ctx context.Context, scenes []model.Scene) ([]model.ScenePriority, bool) {
	switch len(scenes) {
	case 0:
		return nil, false
	case 1:
		p := scenePriority(scenes[0])
		p.Rank = 1
		return []model.ScenePriority{p}, false
	}

	if a.ranker != nil {
		if ranked, err := a.ranker.Rank(ctx, scenes); err == nil {
			return ranked, false
		} else {
			a.log.Warnf("scene ranking failed, using fallback: %v", err)
		}
	}
	return a.fallback(scenes), true
}

// fallback scores the primary scene with the single-scene formula and every
// secondary scene identically but scaled by 0.8, then assigns dense ranks
// 1..N. Primary scenes stay ahead of secondaries regardless of score, so a
// damped secondary can never demote the primary from rank 1.
func (a *Arbitrator) fallback(scenes []model.Scene) []model.ScenePriority {
	primary := make(map[string]bool, len(scenes))
	out := make([]model.ScenePriority, len(scenes))
	for i, s := range scenes {
		p := scenePriority(s)
		if s.Primary {
			primary[s.ID] = true
		} else {
			p.Score *= 0.8
		}
		out[i] = p
	}
	sort.SliceStable(out, func(i, j int) bool {
		if primary[out[i].SceneID] != primary[out[j].SceneID] {
			return primary[out[i].SceneID]
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SceneID < out[j].SceneID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
