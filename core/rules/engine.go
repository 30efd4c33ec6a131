package rules

import (
	"fmt"
	"sort"

	"github.com/ebrunet/dispatchcore/core/logger"
	"github.com/ebrunet/dispatchcore/core/model"
)

// Engine evaluates trigger rules against an incident context and hard rules
// against candidate plans. An Engine is immutable after construction and
// safe for concurrent use.
type Engine struct {
	rules []Rule
	hard  []HardRule
	log   logger.Logger
}

// NewEngine creates an engine over the given rule sets. A nil logger
// defaults to a no-op logger.
func NewEngine(rules []Rule, hard []HardRule, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Engine{rules: rules, hard: hard, log: log}
}

// Evaluate fires every trigger rule whose condition tree is satisfied by the
// context. Results are sorted by weight descending; ties keep load order.
// Zero matches is a valid outcome.
func (e *Engine) Evaluate(ctx Fielder) []MatchedRule {
	var matched []MatchedRule
	for i := range e.rules {
		r := &e.rules[i]
		if !evalCondition(&r.Condition, ctx, e.log) {
			continue
		}
		caps := make([]model.CapabilityRequirement, len(r.Capabilities))
		for j, d := range r.Capabilities {
			caps[j] = model.CapabilityRequirement{
				Code:        d.Code,
				Priority:    d.Priority,
				MinQuantity: d.MinQuantity,
				RuleID:      r.ID,
			}
		}
		matched = append(matched, MatchedRule{
			RuleID:            r.ID,
			RuleName:          r.Name,
			Weight:            r.Weight,
			Priority:          r.Priority,
			Capabilities:      caps,
			Tasks:             append([]string(nil), r.Tasks...),
			MatchedConditions: []string{describe(&r.Condition)},
		})
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Weight > matched[j].Weight
	})
	e.log.Debugf("rule evaluation matched %d of %d rules", len(matched), len(e.rules))
	return matched
}

// CheckHardRules evaluates every hard rule against the plan view. Rules
// whose pre-condition does not apply, or whose checked field is absent from
// the view, pass: an unevaluable constraint is not a violation.
func (e *Engine) CheckHardRules(view Fielder) []HardRuleResult {
	results := make([]HardRuleResult, 0, len(e.hard))
	for i := range e.hard {
		h := &e.hard[i]
		res := HardRuleResult{
			RuleID:    h.ID,
			RuleName:  h.Name,
			Passed:    true,
			Action:    h.Action,
			ActionStr: h.Action.String(),
			Severity:  h.Severity,
		}
		if h.When != nil && !evalCondition(h.When, view, e.log) {
			e.log.Debugf("hard rule %s skipped: pre-condition not applicable", h.ID)
			results = append(results, res)
			continue
		}
		observed, ok := view.Lookup(h.Check.Field)
		if !ok {
			e.log.Debugf("hard rule %s skipped: field %q absent", h.ID, h.Check.Field)
			results = append(results, res)
			continue
		}
		threshold := h.Check.Value
		if h.Check.ThresholdField != "" {
			if tv, ok := view.Lookup(h.Check.ThresholdField); ok {
				threshold = tv
			}
		}
		res.Observed = observed
		res.Threshold = threshold
		if evalCondition(&h.Check, view, e.log) {
			res.Passed = false
			res.Message = fmt.Sprintf("%s violated: %s %s %v (observed %v)",
				h.Name, h.Check.Field, h.Check.Operator, threshold, observed)
		}
		results = append(results, res)
	}
	return results
}

// IsFeasible reports whether the result set contains no failed reject-type
// rule. Warn-type failures do not affect feasibility.
func IsFeasible(results []HardRuleResult) bool {
	for _, r := range results {
		if r.Action == ActionReject && !r.Passed {
			return false
		}
	}
	return true
}
