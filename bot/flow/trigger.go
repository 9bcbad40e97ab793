package flow

import (
	"sort"

	"AgentFlow/entity"
)

// MatchTrigger maps inbound free text to a workflow entry point. It is only
// consulted for contacts with no active session; an active session always
// receives the text as a reply, never as a new trigger.
//
// Matching is case and whitespace insensitive. When several active workflows
// share a keyword, the most recently activated one wins.
func MatchTrigger(text string, active []*entity.WorkflowDefinition) *entity.WorkflowDefinition {
	norm := NormalizeText(text)
	if norm == "" {
		return nil
	}

	candidates := make([]*entity.WorkflowDefinition, len(active))
	copy(candidates, active)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ActivatedAt.After(candidates[j].ActivatedAt)
	})

	for _, w := range candidates {
		for _, keyword := range w.Keywords() {
			if keyword == norm {
				return w
			}
		}
	}
	return nil
}
