package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ebrunet/dispatchcore/core/logger"
	"github.com/ebrunet/dispatchcore/core/model"
)

// ruleDoc is the YAML schema of a rule source file. One file may carry
// trigger rules, hard rules or both.
type ruleDoc struct {
	Version   int            `yaml:"version"`
	Rules     []ruleSpec     `yaml:"rules"`
	HardRules []hardRuleSpec `yaml:"hardRules"`
}

type conditionSpec struct {
	Field          string          `yaml:"field"`
	Operator       string          `yaml:"operator"`
	Value          any             `yaml:"value"`
	ThresholdField string          `yaml:"thresholdField"`
	All            []conditionSpec `yaml:"all"`
	Any            []conditionSpec `yaml:"any"`
}

type capabilitySpec struct {
	Code        string `yaml:"code"`
	Priority    string `yaml:"priority"`
	MinQuantity int    `yaml:"minQuantity"`
}

type ruleSpec struct {
	ID           string           `yaml:"id"`
	Name         string           `yaml:"name"`
	Priority     string           `yaml:"priority"`
	Weight       float64          `yaml:"weight"`
	Match        string           `yaml:"match"` // all (default) or any
	Conditions   []conditionSpec  `yaml:"conditions"`
	Capabilities []capabilitySpec `yaml:"capabilities"`
	Tasks        []string         `yaml:"tasks"`
}

type hardRuleSpec struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Action   string         `yaml:"action"`
	Severity string         `yaml:"severity"`
	When     *conditionSpec `yaml:"when"`
	Check    conditionSpec  `yaml:"check"`
}

var validOperators = map[string]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpNotIn: true, OpContains: true, OpRegex: true,
}

// buildCondition validates a condition spec and compiles it into the
// immutable tree form. A spec must be either a leaf or exactly one
// combinator, never both.
func buildCondition(ruleID string, spec *conditionSpec) (Condition, error) {
	combinators := 0
	if len(spec.All) > 0 {
		combinators++
	}
	if len(spec.Any) > 0 {
		combinators++
	}
	if combinators > 1 {
		return Condition{}, fmt.Errorf("rule %s: condition mixes all and any", ruleID)
	}
	if combinators == 1 {
		if spec.Field != "" || spec.Operator != "" {
			return Condition{}, fmt.Errorf("rule %s: combinator condition also sets field/operator", ruleID)
		}
		src, dst := spec.All, &Condition{}
		if len(spec.Any) > 0 {
			src = spec.Any
		}
		children := make([]Condition, len(src))
		for i := range src {
			c, err := buildCondition(ruleID, &src[i])
			if err != nil {
				return Condition{}, err
			}
			children[i] = c
		}
		if len(spec.All) > 0 {
			dst.All = children
		} else {
			dst.Any = children
		}
		return *dst, nil
	}

	if spec.Field == "" {
		return Condition{}, fmt.Errorf("rule %s: condition missing field", ruleID)
	}
	if !validOperators[spec.Operator] {
		return Condition{}, fmt.Errorf("rule %s: unknown operator %q", ruleID, spec.Operator)
	}
	c := Condition{
		Field:          spec.Field,
		Operator:       spec.Operator,
		Value:          spec.Value,
		ThresholdField: spec.ThresholdField,
	}
	if spec.Operator == OpRegex {
		pattern, ok := spec.Value.(string)
		if !ok {
			return Condition{}, fmt.Errorf("rule %s: regex value must be a string", ruleID)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Condition{}, fmt.Errorf("rule %s: invalid regex: %w", ruleID, err)
		}
		c.re = re
	}
	if spec.Value == nil && spec.ThresholdField == "" {
		return Condition{}, fmt.Errorf("rule %s: condition on %s has no value or thresholdField", ruleID, spec.Field)
	}
	return c, nil
}

func buildRule(spec *ruleSpec) (Rule, error) {
	if spec.ID == "" {
		return Rule{}, fmt.Errorf("rule with empty id")
	}
	if len(spec.Conditions) == 0 {
		return Rule{}, fmt.Errorf("rule %s: no conditions", spec.ID)
	}
	root := conditionSpec{}
	switch spec.Match {
	case "", "all":
		root.All = spec.Conditions
	case "any":
		root.Any = spec.Conditions
	default:
		return Rule{}, fmt.Errorf("rule %s: match must be all or any, got %q", spec.ID, spec.Match)
	}
	cond, err := buildCondition(spec.ID, &root)
	if err != nil {
		return Rule{}, err
	}
	caps := make([]CapabilityDemand, len(spec.Capabilities))
	for i, cs := range spec.Capabilities {
		if cs.Code == "" {
			return Rule{}, fmt.Errorf("rule %s: capability with empty code", spec.ID)
		}
		qty := cs.MinQuantity
		if qty <= 0 {
			qty = 1
		}
		caps[i] = CapabilityDemand{
			Code:        cs.Code,
			Priority:    model.ParsePriority(cs.Priority),
			MinQuantity: qty,
		}
	}
	return Rule{
		ID:           spec.ID,
		Name:         spec.Name,
		Condition:    cond,
		Capabilities: caps,
		Tasks:        spec.Tasks,
		Priority:     model.ParsePriority(spec.Priority),
		Weight:       spec.Weight,
	}, nil
}

func buildHardRule(spec *hardRuleSpec) (HardRule, error) {
	if spec.ID == "" {
		return HardRule{}, fmt.Errorf("hard rule with empty id")
	}
	var action Action
	switch spec.Action {
	case "", "reject":
		action = ActionReject
	case "warn":
		action = ActionWarn
	default:
		return HardRule{}, fmt.Errorf("hard rule %s: action must be reject or warn, got %q", spec.ID, spec.Action)
	}
	check, err := buildCondition(spec.ID, &spec.Check)
	if err != nil {
		return HardRule{}, err
	}
	if !check.leaf() {
		return HardRule{}, fmt.Errorf("hard rule %s: check must be a single comparison", spec.ID)
	}
	h := HardRule{
		ID:       spec.ID,
		Name:     spec.Name,
		Check:    check,
		Action:   action,
		Severity: spec.Severity,
	}
	if spec.When != nil {
		when, err := buildCondition(spec.ID, spec.When)
		if err != nil {
			return HardRule{}, err
		}
		h.When = &when
	}
	return h, nil
}

type cacheEntry struct {
	modTime time.Time
	rules   []Rule
	hard    []HardRule
}

// Loader parses rule source files and caches the result per absolute path,
// keyed by file modification time. Safe for concurrent use; a reload
// replaces the whole cache entry so readers never observe a partial set.
type Loader struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	hits    uint64
	misses  uint64
	log     logger.Logger
}

// NewLoader creates an empty loader. A nil logger defaults to a no-op logger.
func NewLoader(log logger.Logger) *Loader {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Loader{entries: make(map[string]*cacheEntry), log: log}
}

// Load parses the rule source at path. With useCache, an unmodified file
// returns the cached rule sets unchanged. Any schema violation returns an
// error and leaves the cache untouched; no partial rule set is ever
// returned.
func (l *Loader) Load(path string, useCache bool) ([]Rule, []HardRule, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve rule source %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("stat rule source %s: %w", abs, err)
	}

	if useCache {
		l.mu.RLock()
		entry, ok := l.entries[abs]
		l.mu.RUnlock()
		if ok && entry.modTime.Equal(info.ModTime()) {
			l.mu.Lock()
			l.hits++
			l.mu.Unlock()
			return entry.rules, entry.hard, nil
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("read rule source %s: %w", abs, err)
	}
	var doc ruleDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse rule source %s: %w", abs, err)
	}

	out := make([]Rule, 0, len(doc.Rules))
	seen := make(map[string]bool)
	for i := range doc.Rules {
		r, err := buildRule(&doc.Rules[i])
		if err != nil {
			return nil, nil, fmt.Errorf("rule source %s: %w", abs, err)
		}
		if seen[r.ID] {
			return nil, nil, fmt.Errorf("rule source %s: duplicate rule id %s", abs, r.ID)
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	hard := make([]HardRule, 0, len(doc.HardRules))
	for i := range doc.HardRules {
		h, err := buildHardRule(&doc.HardRules[i])
		if err != nil {
			return nil, nil, fmt.Errorf("rule source %s: %w", abs, err)
		}
		if seen[h.ID] {
			return nil, nil, fmt.Errorf("rule source %s: duplicate rule id %s", abs, h.ID)
		}
		seen[h.ID] = true
		hard = append(hard, h)
	}

	l.mu.Lock()
	l.misses++
	l.entries[abs] = &cacheEntry{modTime: info.ModTime(), rules: out, hard: hard}
	l.mu.Unlock()
	l.log.Infof("loaded %d rules and %d hard rules from %s", len(out), len(hard), abs)
	return out, hard, nil
}

// Stats returns the cache hit and miss counters.
func (l *Loader) Stats() (hits, misses uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hits, l.misses
}

// ClearCache drops every cached entry. Counters are preserved.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.entries = make(map[string]*cacheEntry)
	l.mu.Unlock()
}
