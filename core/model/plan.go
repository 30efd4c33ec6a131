package model

import "math"

// ObjectiveVector holds the four optimization objectives of an allocation
// plan. ResponseTime, Cost and Risk are cost-type (lower is better);
// Coverage is benefit-type (higher is better).
type ObjectiveVector struct {
	ResponseTime float64 `json:"responseTime"` // minutes
	Coverage     float64 `json:"coverage"`     // 0..1
	Cost         float64 `json:"cost"`
	Risk         float64 `json:"risk"` // 0..1
}

// Round normalizes the vector to the published precision: time one decimal,
// coverage and risk three decimals, cost to the nearest integer.
func (o ObjectiveVector) Round() ObjectiveVector {
	return ObjectiveVector{
		ResponseTime: math.Round(o.ResponseTime*10) / 10,
		Coverage:     math.Round(o.Coverage*1000) / 1000,
		Cost:         math.Round(o.Cost),
		Risk:         math.Round(o.Risk*1000) / 1000,
	}
}

// Dominates reports whether o is at least as good as other on every
// objective, respecting polarity, and strictly better on at least one.
func (o ObjectiveVector) Dominates(other ObjectiveVector) bool {
	geq := o.ResponseTime <= other.ResponseTime &&
		o.Coverage >= other.Coverage &&
		o.Cost <= other.Cost &&
		o.Risk <= other.Risk
	strict := o.ResponseTime < other.ResponseTime ||
		o.Coverage > other.Coverage ||
		o.Cost < other.Cost ||
		o.Risk < other.Risk
	return geq && strict
}

// ResourceCandidate is one eligible resource scored against the current
// requirements. Placeholder candidates stand in for unmet requirements when
// the scoring algorithm is unavailable.
type ResourceCandidate struct {
	Resource       Resource           `json:"resource"`
	Score          float64            `json:"score"`
	DistanceKm     float64            `json:"distanceKm"`
	ETAMinutes     float64            `json:"etaMinutes"`
	Available      bool               `json:"available"`
	Breakdown      map[string]float64 `json:"breakdown,omitempty"`
	Recommendation string             `json:"recommendation,omitempty"`
	Placeholder    bool               `json:"placeholder,omitempty"`
}

// ResourceAllocation assigns a candidate to concrete task types within a plan.
type ResourceAllocation struct {
	Candidate      ResourceCandidate `json:"candidate"`
	TaskTypes      []string          `json:"taskTypes"`
	Role           string            `json:"role,omitempty"`
	Recommendation string            `json:"recommendation,omitempty"`
	Alternatives   []string          `json:"alternatives,omitempty"`
}

// ParetoSolution is one point on the time/coverage/cost/risk trade-off
// frontier. Source names the algorithm or fallback profile that produced it.
type ParetoSolution struct {
	PlanID      string               `json:"planId"`
	Objectives  ObjectiveVector      `json:"objectives"`
	Allocations []ResourceAllocation `json:"allocations"`
	Variables   map[string]float64   `json:"variables,omitempty"`
	Rank        int                  `json:"rank"`
	Source      string               `json:"source"`
}
