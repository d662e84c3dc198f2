package engine

import "github.com/nudgekit/nudgekit/pkg/models"

// TriggerMatch pairs an activated workflow with the trigger node that
// matched the event.
type TriggerMatch struct {
	Workflow *models.Workflow
	Trigger  *models.WorkflowNode
}

// MatchTriggers selects the workflows the event activates. Matching is exact
// type equality against each enabled trigger node, any matching trigger
// activates its workflow. An event carrying a node hint only matches that
// node: client-driven triggers already know which node fired. Unknown event
// types and sites without active workflows yield an empty set, not an error.
func MatchTriggers(event *models.BrowserEvent, workflows []*models.Workflow) []TriggerMatch {
	var matches []TriggerMatch

	for _, workflow := range workflows {
		if !workflow.IsActive() {
			continue
		}

		for _, trigger := range workflow.TriggerNodes() {
			if trigger.Type != event.Type {
				continue
			}

			if event.NodeHint != "" && event.NodeHint != trigger.ID {
				continue
			}

			matches = append(matches, TriggerMatch{Workflow: workflow, Trigger: trigger})
		}
	}

	return matches
}
