// Package protocol defines the contracts between the engine and the action
// implementations it dispatches.
package protocol

import (
	"context"
	"log/slog"

	"github.com/nudgekit/nudgekit/pkg/models"
)

// ActionInput carries everything an action execution may need. RunID plus
// Node.ID identify the execution for downstream dedupe: queue re-delivery
// must not double-apply effects.
type ActionInput struct {
	Workflow *models.Workflow
	Node     *models.WorkflowNode
	RunID    string
	Visitor  *models.VisitorContext
}

// DirectiveKind names the client-side UI instruction an action can emit.
type DirectiveKind string

const (
	DirectiveModal  DirectiveKind = "modal"
	DirectiveBanner DirectiveKind = "banner"
)

// ClientDirective is returned instead of performing a server side effect:
// the tracker renders it in the visitor's browser.
type ClientDirective struct {
	Kind     DirectiveKind  `json:"kind"`
	Settings map[string]any `json:"settings"`
}

// ActionResult is the outcome of one action execution.
type ActionResult struct {
	Detail    string           `json:"detail,omitempty"`
	Directive *ClientDirective `json:"directive,omitempty"`
	Payload   map[string]any   `json:"payload,omitempty"`
}

// Action executes one workflow action node.
type Action interface {
	Execute(ctx context.Context, input ActionInput, logger *slog.Logger) (*ActionResult, error)
}

// ActionFactory builds an action from a node's settings payload. ID returns
// the node type the factory serves.
type ActionFactory interface {
	Create(settings map[string]any) (Action, error)
	ID() string
}
