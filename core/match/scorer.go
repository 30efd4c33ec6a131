package match

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ebrunet/dispatchcore/core/model"
)

// Weights blends the scoring dimensions. The caller tunes these per
// deployment; SetDefaults applies the documented defaults.
type Weights struct {
	Capability   float64 `json:"capability"`
	Distance     float64 `json:"distance"`
	Availability float64 `json:"availability"`
	Equipment    float64 `json:"equipment"`
}

// SetDefaults fills an all-zero weight set with the standard blend.
func (w *Weights) SetDefaults() {
	if w.Capability == 0 && w.Distance == 0 && w.Availability == 0 && w.Equipment == 0 {
		w.Capability = 0.4
		w.Distance = 0.3
		w.Availability = 0.2
		w.Equipment = 0.1
	}
}

// Request carries everything the scoring algorithm needs for one run.
type Request struct {
	Context      *model.IncidentContext
	Requirements []model.CapabilityRequirement
	Resources    []model.Resource
	Weights      Weights
}

// Scorer is the external resource-scoring algorithm. Implementations rank
// the resources against the requirements and return candidates sorted by
// score descending.
type Scorer interface {
	Score(ctx context.Context, req Request) ([]model.ResourceCandidate, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, req Request) ([]model.ResourceCandidate, error)

func (f ScorerFunc) Score(ctx context.Context, req Request) ([]model.ResourceCandidate, error) {
	return f(ctx, req)
}

// WeightedScorer is the default scoring algorithm: a weighted blend of
// capability match, distance/ETA, availability and equipment level.
type WeightedScorer struct{}

// Score implements Scorer. Candidates are sorted by score descending, ties
// by resource id, and carry a deterministic score breakdown.
func (WeightedScorer) Score(ctx context.Context, req Request) ([]model.ResourceCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	weights := req.Weights
	weights.SetDefaults()

	var out []model.ResourceCandidate
	for _, r := range req.Resources {
		if !r.Dispatchable() {
			continue
		}
		covered := 0
		for _, need := range req.Requirements {
			if r.HasCapability(need.Code) {
				covered++
			}
		}
		capScore := 1.0
		if len(req.Requirements) > 0 {
			capScore = float64(covered) / float64(len(req.Requirements))
		}

		dist := 0.0
		if req.Context != nil {
			dist = haversineKm(r.Location, req.Context.Location)
		}
		eta := r.ResponseTimeMin
		if eta <= 0 {
			// no estimate from the pool: assume 1 km/min ground speed
			eta = dist
		}
		distScore := math.Exp(-eta / 45.0)

		availScore := 0.0
		switch r.Status {
		case model.StatusAvailable:
			availScore = 1.0
		case model.StatusStandby:
			availScore = 0.6
		}

		score := 100 * (capScore*weights.Capability +
			distScore*weights.Distance +
			availScore*weights.Availability +
			r.EquipmentLevel*weights.Equipment)

		out = append(out, model.ResourceCandidate{
			Resource:   r,
			Score:      math.Round(score*100) / 100,
			DistanceKm: math.Round(dist*10) / 10,
			ETAMinutes: math.Round(eta*10) / 10,
			Available:  r.Status == model.StatusAvailable,
			Breakdown: map[string]float64{
				"capability":   capScore,
				"distance":     distScore,
				"availability": availScore,
				"equipment":    r.EquipmentLevel,
			},
			Recommendation: fmt.Sprintf("Deploy %s (%s): covers %d/%d required capabilities, ETA %.0f min",
				r.Name, r.Type, covered, len(req.Requirements), eta),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Resource.ID < out[j].Resource.ID
	})
	return out, nil
}

// haversineKm returns the great-circle distance between two locations.
func haversineKm(a, b model.Location) float64 {
	const earthRadiusKm = 6371.0
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
