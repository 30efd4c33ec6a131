// Package capability merges the capability demands emitted by fired trigger
// rules into a single deduplicated, priority-ordered requirement list.
package capability

import (
	"sort"

	"github.com/ebrunet/dispatchcore/core/model"
	"github.com/ebrunet/dispatchcore/core/rules"
)

// Aggregate folds every (rule, capability) pair into one requirement per
// capability code. The first rule to demand a code fixes its insertion slot;
// later demands for the same code keep the higher priority and the larger
// minimum quantity, so the merge is monotonic and independent of rule order.
// The output is sorted by priority weight descending; ties order by
// capability code so permuting the input rules cannot change the result.
func Aggregate(matched []rules.MatchedRule) []model.CapabilityRequirement {
	index := make(map[string]int)
	var merged []model.CapabilityRequirement
	for _, m := range matched {
		for _, req := range m.Capabilities {
			i, ok := index[req.Code]
			if !ok {
				index[req.Code] = len(merged)
				merged = append(merged, req)
				continue
			}
			if req.Priority.Weight() > merged[i].Priority.Weight() {
				merged[i].Priority = req.Priority
				merged[i].RuleID = req.RuleID
			}
			if req.MinQuantity > merged[i].MinQuantity {
				merged[i].MinQuantity = req.MinQuantity
			}
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Priority != merged[j].Priority {
			return merged[i].Priority.Weight() > merged[j].Priority.Weight()
		}
		return merged[i].Code < merged[j].Code
	})
	return merged
}
