package rules

import (
	"regexp"

	"github.com/ebrunet/dispatchcore/core/model"
)

// Fielder resolves dot-separated field paths into values. Both the incident
// context and the flattened plan view implement it.
type Fielder interface {
	Lookup(path string) (any, bool)
}

// Operator names accepted in rule conditions.
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpGt       = "gt"
	OpGte      = "gte"
	OpLt       = "lt"
	OpLte      = "lte"
	OpIn       = "in"
	OpNotIn    = "not_in"
	OpContains = "contains"
	OpRegex    = "regex"
)

// Condition is a tagged union: either a leaf comparison (Field/Operator set)
// or a logical combinator (exactly one of All/Any set). Built once at load
// time and never mutated afterwards.
type Condition struct {
	Field    string
	Operator string
	Value    any
	// ThresholdField names another field of the evaluated view whose value
	// replaces Value as the comparison threshold. Only used by hard rules.
	ThresholdField string

	All []Condition
	Any []Condition

	re *regexp.Regexp // compiled at load for OpRegex
}

// leaf reports whether the condition is a comparison rather than a combinator.
func (c *Condition) leaf() bool { return len(c.All) == 0 && len(c.Any) == 0 }

// CapabilityDemand is the raw capability emission of a trigger rule before
// aggregation.
type CapabilityDemand struct {
	Code        string
	Priority    model.Priority
	MinQuantity int
}

// Rule is a trigger rule: a condition tree that, when satisfied by an
// incident context, emits capability demands and task types.
type Rule struct {
	ID           string
	Name         string
	Condition    Condition
	Capabilities []CapabilityDemand
	Tasks        []string
	Priority     model.Priority
	Weight       float64
}

// Action tells the constraint filter what a fired hard rule means for a plan.
type Action int

const (
	ActionReject Action = iota
	ActionWarn
)

// String returns the rule-source spelling of the action.
func (a Action) String() string {
	if a == ActionWarn {
		return "warn"
	}
	return "reject"
}

// HardRule is a mandatory constraint. Check expresses a violation: when it
// evaluates true against a plan view the rule fails. When is an optional
// activation pre-condition; an inapplicable or unevaluable pre-condition
// makes the rule pass.
type HardRule struct {
	ID       string
	Name     string
	When     *Condition
	Check    Condition
	Action   Action
	Severity string
}

// MatchedRule is the runtime firing result of one trigger rule.
type MatchedRule struct {
	RuleID            string                        `json:"ruleId"`
	RuleName          string                        `json:"ruleName"`
	Weight            float64                       `json:"weight"`
	Priority          model.Priority                `json:"priority"`
	Capabilities      []model.CapabilityRequirement `json:"capabilities"`
	Tasks             []string                      `json:"tasks"`
	MatchedConditions []string                      `json:"matchedConditions,omitempty"`
}

// HardRuleResult is the outcome of checking one hard rule against one plan.
type HardRuleResult struct {
	RuleID    string `json:"ruleId"`
	RuleName  string `json:"ruleName"`
	Passed    bool   `json:"passed"`
	Action    Action `json:"-"`
	ActionStr string `json:"action"`
	Severity  string `json:"severity"`
	Message   string `json:"message,omitempty"`
	Observed  any    `json:"observed,omitempty"`
	Threshold any    `json:"threshold,omitempty"`
}
