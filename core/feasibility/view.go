package feasibility

import (
	"strings"

	"github.com/ebrunet/dispatchcore/core/model"
)

// PlanView is the flattened, rule-checkable projection of one candidate
// plan. Hard rules address its fields by the documented dot paths; Extra is
// the escape hatch for deployment-specific fields.
type PlanView struct {
	Risk               float64
	ResponseTime       float64
	Cost               float64
	Coverage           float64
	CriticalCoverage   float64
	HighCoverage       float64
	MinDistanceKm      float64
	MaxDistanceKm      float64
	LifeThreatUnserved bool
	ResourceCount      int
	Environment        map[string]bool
	Extra              map[string]any
}

// Lookup implements rules.Fielder over the documented field set.
func (v *PlanView) Lookup(path string) (any, bool) {
	head, rest, _ := strings.Cut(path, ".")
	switch head {
	case "risk":
		return v.Risk, true
	case "responseTime", "response_time":
		return v.ResponseTime, true
	case "cost":
		return v.Cost, true
	case "coverage":
		return v.Coverage, true
	case "criticalCoverage", "critical_coverage":
		return v.CriticalCoverage, true
	case "highCoverage", "high_coverage":
		return v.HighCoverage, true
	case "minDistanceKm", "min_distance_km":
		return v.MinDistanceKm, true
	case "maxDistanceKm", "max_distance_km":
		return v.MaxDistanceKm, true
	case "lifeThreatUnserved", "life_threat_unserved":
		return v.LifeThreatUnserved, true
	case "resourceCount", "resource_count":
		return v.ResourceCount, true
	case "environment":
		if val, ok := v.Environment[rest]; ok {
			return val, true
		}
		return nil, false
	}
	if v.Extra != nil {
		if val, ok := v.Extra[path]; ok {
			return val, true
		}
	}
	return nil, false
}

// rescueCapability reports whether a capability code addresses trapped or
// endangered people. Codes follow the SEARCH_/RESCUE_ naming convention of
// the rule sources.
func rescueCapability(code string) bool {
	return strings.Contains(code, "SEARCH") || strings.Contains(code, "RESCUE")
}

// BuildView flattens a plan against the run's requirements and incident
// context. Coverage ratios are computed from the union of all candidate
// capabilities; a priority band with no requirements counts as fully
// covered.
func BuildView(plan *model.ParetoSolution, reqs []model.CapabilityRequirement, ctx *model.IncidentContext) *PlanView {
	capUnion := make(map[string]bool)
	minDist, maxDist := -1.0, 0.0
	hasRescue := false
	for _, alloc := range plan.Allocations {
		c := alloc.Candidate
		if c.Placeholder {
			continue
		}
		for _, code := range c.Resource.Capabilities {
			capUnion[code] = true
			if rescueCapability(code) {
				hasRescue = true
			}
		}
		if minDist < 0 || c.DistanceKm < minDist {
			minDist = c.DistanceKm
		}
		if c.DistanceKm > maxDist {
			maxDist = c.DistanceKm
		}
	}
	if minDist < 0 {
		minDist = 0
	}

	var critTotal, critCovered, highTotal, highCovered int
	for _, req := range reqs {
		switch req.Priority {
		case model.PriorityCritical:
			critTotal++
			if capUnion[req.Code] {
				critCovered++
			}
		case model.PriorityHigh:
			highTotal++
			if capUnion[req.Code] {
				highCovered++
			}
		}
	}
	ratio := func(covered, total int) float64 {
		if total == 0 {
			return 1
		}
		return float64(covered) / float64(total)
	}

	view := &PlanView{
		Risk:             plan.Objectives.Risk,
		ResponseTime:     plan.Objectives.ResponseTime,
		Cost:             plan.Objectives.Cost,
		Coverage:         plan.Objectives.Coverage,
		CriticalCoverage: ratio(critCovered, critTotal),
		HighCoverage:     ratio(highCovered, highTotal),
		MinDistanceKm:    minDist,
		MaxDistanceKm:    maxDist,
		ResourceCount:    len(plan.Allocations),
	}
	if ctx != nil {
		view.Environment = ctx.Environment
		view.LifeThreatUnserved = ctx.HasTrapped && !hasRescue
	}
	return view
}
