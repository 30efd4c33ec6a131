// Package assemble renders ranked feasible plans into the externally
// visible scheme outputs: derived task lists, role-labelled allocations, a
// bounded confidence score and a templated rationale.
package assemble

import (
	"fmt"
	"math"
	"strings"

	"github.com/ebrunet/dispatchcore/core/feasibility"
	"github.com/ebrunet/dispatchcore/core/model"
	"github.com/ebrunet/dispatchcore/core/rules"
)

// immediatePhaseTasks classifies task types dispatched in the first wave.
// Everything else is follow-up.
var immediatePhaseTasks = map[string]bool{
	"search_rescue":  true,
	"medical_triage": true,
	"firefighting":   true,
	"evacuation":     true,
	"hazmat_control": true,
}

// taskDurationMin estimates task duration in minutes. Unlisted tasks get
// DefaultTaskDuration.
var taskDurationMin = map[string]int{
	"search_rescue":     180,
	"medical_triage":    90,
	"firefighting":      120,
	"evacuation":        150,
	"hazmat_control":    120,
	"shelter_setup":     240,
	"supply_transport":  120,
	"damage_assessment": 60,
	"route_clearing":    90,
}

// DefaultTaskDuration applies to task types missing from the lookup table.
const DefaultTaskDuration = 60

// roleByResourceType labels an allocation by its resource type.
var roleByResourceType = map[string]string{
	"rescue_team":      "primary rescue",
	"medical_team":     "medical support",
	"fire_brigade":     "fire suppression",
	"engineering_team": "structural support",
	"transport_unit":   "logistics",
	"hazmat_team":      "hazard control",
	"placeholder":      "unassigned",
}

// Input is everything the assembler needs for one run.
type Input struct {
	Matched          []rules.MatchedRule
	Verdicts         []feasibility.Verdict
	Scores           []model.SchemeScore
	ErrorCount       int
	IncludeRationale bool
	TacticalNote     string
}

// Assemble renders one SchemeOutput per ranked score, best first.
func Assemble(in Input) []model.SchemeOutput {
	tasks := deriveTasks(in.Matched)
	fired := make([]string, 0, len(in.Matched))
	for _, m := range in.Matched {
		fired = append(fired, m.RuleName)
	}

	byID := make(map[string]*feasibility.Verdict, len(in.Verdicts))
	for i := range in.Verdicts {
		byID[in.Verdicts[i].Plan.PlanID] = &in.Verdicts[i]
	}

	out := make([]model.SchemeOutput, 0, len(in.Scores))
	for _, score := range in.Scores {
		v, ok := byID[score.PlanID]
		if !ok {
			continue
		}
		allocations := labelAllocations(v.Plan.Allocations, tasks)
		scheme := model.SchemeOutput{
			PlanID:      score.PlanID,
			Score:       score.Score,
			Confidence:  Confidence(score.Score, v.Plan.Objectives.Coverage, len(in.Matched), len(allocations), in.ErrorCount),
			Tasks:       tasks,
			Allocations: allocations,
			FiredRules:  fired,
			Metrics:     v.Plan.Objectives,
			Warnings:    v.Warnings,
		}
		if in.IncludeRationale {
			scheme.Rationale = rationale(&scheme, in.TacticalNote)
		}
		out = append(out, scheme)
	}
	return out
}

// deriveTasks flattens and deduplicates the task types of all matched
// rules, keeping the first rule's priority and capabilities per task. Order
// follows the matched-rule ordering, so higher-weight rules contribute
// first.
func deriveTasks(matched []rules.MatchedRule) []model.TaskItem {
	seen := make(map[string]bool)
	var tasks []model.TaskItem
	for _, m := range matched {
		caps := make([]string, 0, len(m.Capabilities))
		for _, c := range m.Capabilities {
			caps = append(caps, c.Code)
		}
		for _, taskType := range m.Tasks {
			if seen[taskType] {
				continue
			}
			seen[taskType] = true
			phase := "follow-up"
			if immediatePhaseTasks[taskType] {
				phase = "immediate"
			}
			duration, ok := taskDurationMin[taskType]
			if !ok {
				duration = DefaultTaskDuration
			}
			tasks = append(tasks, model.TaskItem{
				Type:                 taskType,
				Phase:                phase,
				Priority:             m.Priority,
				RequiredCapabilities: caps,
				DurationMin:          duration,
			})
		}
	}
	return tasks
}

// labelAllocations pairs allocations to the derived tasks positionally and
// assigns role labels from the resource type.
func labelAllocations(allocations []model.ResourceAllocation, tasks []model.TaskItem) []model.ResourceAllocation {
	out := make([]model.ResourceAllocation, len(allocations))
	copy(out, allocations)
	for i := range out {
		if role, ok := roleByResourceType[out[i].Candidate.Resource.Type]; ok {
			out[i].Role = role
		} else {
			out[i].Role = "general support"
		}
		if len(out[i].TaskTypes) == 0 && len(tasks) > 0 {
			out[i].TaskTypes = []string{tasks[i%len(tasks)].Type}
		}
	}
	return out
}

// Confidence derives the output confidence score. The result is always in
// [0.30, 0.98] regardless of input.
func Confidence(score, coverage float64, ruleCount, allocCount, errorCount int) float64 {
	c := 0.5 +
		math.Min(0.2, score/500) +
		0.2*coverage +
		math.Min(0.1, 0.025*float64(ruleCount)) +
		math.Min(0.05, 0.005*float64(allocCount)) -
		0.05*float64(errorCount)
	c = math.Max(0.3, math.Min(0.98, c))
	return math.Round(c*1000) / 1000
}

// rationale fills the fixed explanation template: score, at most two fired
// rule names, at most three deployed resource names, response time and
// coverage, plus an optional tactical note. Never free-generated text.
func rationale(s *model.SchemeOutput, note string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan %s scored %.2f/100.", s.PlanID, s.Score)
	if len(s.FiredRules) > 0 {
		names := s.FiredRules
		if len(names) > 2 {
			names = names[:2]
		}
		fmt.Fprintf(&b, " Triggered by %s.", strings.Join(names, " and "))
	}
	var resources []string
	for _, a := range s.Allocations {
		if a.Candidate.Placeholder {
			continue
		}
		resources = append(resources, a.Candidate.Resource.Name)
		if len(resources) == 3 {
			break
		}
	}
	if len(resources) > 0 {
		fmt.Fprintf(&b, " Deploying %s.", strings.Join(resources, ", "))
	}
	fmt.Fprintf(&b, " Estimated response time %.1f min with %.1f%% requirement coverage.",
		s.Metrics.ResponseTime, s.Metrics.Coverage*100)
	if note != "" {
		fmt.Fprintf(&b, " Note: %s", note)
	}
	return b.String()
}
