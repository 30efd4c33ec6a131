package model

import "strings"

// Priority orders capability demands from most to least urgent.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// ParsePriority maps a rule-source string to a Priority. Unknown values
// default to medium.
func ParsePriority(s string) Priority {
	switch strings.ToLower(s) {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// String returns the canonical lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "medium"
	}
}

// Weight returns the ordinal used for priority-descending sorts.
func (p Priority) Weight() int { return int(p) }

// CapabilityRequirement is a normalized demand for one capability code.
// MinQuantity is the number of units that must carry the capability.
type CapabilityRequirement struct {
	Code        string   `json:"code"`
	Priority    Priority `json:"priority"`
	MinQuantity int      `json:"minQuantity"`
	RuleID      string   `json:"ruleId"`
}
