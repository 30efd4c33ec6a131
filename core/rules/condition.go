package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ebrunet/dispatchcore/core/logger"
)

// evalCondition walks the condition tree against the view. A missing field,
// a type mismatch or an unknown operator make the condition false, never an
// error: rules are validated at load time and runtime data is untrusted.
// Mismatches are logged at debug level through log.
func evalCondition(c *Condition, view Fielder, log logger.Logger) bool {
	switch {
	case len(c.All) > 0:
		for i := range c.All {
			if !evalCondition(&c.All[i], view, log) {
				return false
			}
		}
		return true
	case len(c.Any) > 0:
		for i := range c.Any {
			if evalCondition(&c.Any[i], view, log) {
				return true
			}
		}
		return false
	}

	actual, ok := view.Lookup(c.Field)
	if !ok {
		return false
	}
	threshold := c.Value
	if c.ThresholdField != "" {
		tv, ok := view.Lookup(c.ThresholdField)
		if !ok {
			return false
		}
		threshold = tv
	}
	return compare(c.Operator, actual, threshold, c.re, log)
}

// describe renders a leaf condition for the matched-condition trace.
func describe(c *Condition) string {
	switch {
	case len(c.All) > 0:
		parts := make([]string, len(c.All))
		for i := range c.All {
			parts[i] = describe(&c.All[i])
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case len(c.Any) > 0:
		parts := make([]string, len(c.Any))
		for i := range c.Any {
			parts[i] = describe(&c.Any[i])
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}
	if c.ThresholdField != "" {
		return fmt.Sprintf("%s %s field(%s)", c.Field, c.Operator, c.ThresholdField)
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value)
}

func compare(op string, actual, expected any, re *regexp.Regexp, log logger.Logger) bool {
	switch op {
	case OpEq:
		return looseEqual(actual, expected)
	case OpNe:
		return !looseEqual(actual, expected)
	case OpGt, OpGte, OpLt, OpLte:
		a, aok := toFloat(actual)
		b, bok := toFloat(expected)
		if !aok || !bok {
			log.Debugf("condition %s: non-numeric operand (%T vs %T), treated as not satisfied", op, actual, expected)
			return false
		}
		switch op {
		case OpGt:
			return a > b
		case OpGte:
			return a >= b
		case OpLt:
			return a < b
		default:
			return a <= b
		}
	case OpIn:
		return memberOf(actual, expected)
	case OpNotIn:
		items, ok := expected.([]any)
		if !ok {
			return false
		}
		for _, it := range items {
			if looseEqual(actual, it) {
				return false
			}
		}
		return true
	case OpContains:
		switch av := actual.(type) {
		case string:
			s, ok := expected.(string)
			return ok && strings.Contains(av, s)
		case []any:
			for _, it := range av {
				if looseEqual(it, expected) {
					return true
				}
			}
			return false
		case []string:
			s, ok := expected.(string)
			if !ok {
				return false
			}
			for _, it := range av {
				if it == s {
					return true
				}
			}
			return false
		}
		return false
	case OpRegex:
		s, ok := actual.(string)
		if !ok {
			log.Debugf("condition regex: non-string operand (%T), treated as not satisfied", actual)
			return false
		}
		if re == nil {
			return false
		}
		return re.MatchString(s)
	}
	return false
}

func memberOf(actual, expected any) bool {
	items, ok := expected.([]any)
	if !ok {
		return false
	}
	for _, it := range items {
		if looseEqual(actual, it) {
			return true
		}
	}
	return false
}

// looseEqual compares two scalars, coercing numeric types so a YAML int can
// match a context float. Booleans and strings compare strictly.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// toFloat coerces the numeric types YAML and JSON decoding produce. Numeric
// strings are accepted so rule authors can quote thresholds.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
