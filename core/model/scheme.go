package model

import "time"

// TaskItem is one operational task derived from the fired rules.
type TaskItem struct {
	Type                 string   `json:"type"`
	Phase                string   `json:"phase"` // immediate or follow-up
	Priority             Priority `json:"priority"`
	RequiredCapabilities []string `json:"requiredCapabilities,omitempty"`
	DurationMin          int      `json:"durationMin"`
}

// SchemeScore is the multi-criteria ranking result for one feasible plan.
type SchemeScore struct {
	PlanID     string             `json:"planId"`
	Score      float64            `json:"score"` // 0..100
	Rank       int                `json:"rank"`
	Dimensions map[string]float64 `json:"dimensions"`
}

// SchemeOutput is the externally visible deployable plan.
type SchemeOutput struct {
	PlanID      string               `json:"planId"`
	Score       float64              `json:"score"`
	Confidence  float64              `json:"confidence"`
	Tasks       []TaskItem           `json:"tasks"`
	Allocations []ResourceAllocation `json:"allocations"`
	FiredRules  []string             `json:"firedRules"`
	Metrics     ObjectiveVector      `json:"metrics"`
	Rationale   string               `json:"rationale,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// StageTrace records the execution of one pipeline stage.
type StageTrace struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Degraded bool          `json:"degraded,omitempty"`
	Note     string        `json:"note,omitempty"`
}

// RunTrace is the per-run observability record. It never influences the
// decision outcome.
type RunTrace struct {
	CorrelationID string            `json:"correlationId"`
	Stages        []StageTrace      `json:"stages"`
	Algorithms    map[string]string `json:"algorithms"`
	FeasibleCount int               `json:"feasibleCount"`
	RejectedCount int               `json:"rejectedCount"`
	BreakerStates map[string]string `json:"breakerStates,omitempty"`
}

// RunResult is everything a pipeline run hands back to the caller. Errors
// holds recoverable failures; the run completed despite them.
type RunResult struct {
	CorrelationID string                  `json:"correlationId"`
	Schemes       []SchemeOutput          `json:"schemes"`
	Pareto        []ParetoSolution        `json:"pareto,omitempty"`
	Requirements  []CapabilityRequirement `json:"requirements"`
	ScenePriority []ScenePriority         `json:"scenePriority,omitempty"`
	Trace         RunTrace                `json:"trace"`
	Errors        []string                `json:"errors,omitempty"`
}
