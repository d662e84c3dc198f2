// Package display implements the Show Modal and Show Banner actions. Neither
// performs a server side effect: the result carries a directive the tracker
// renders in the visitor's browser.
package display

import (
	"context"
	"log/slog"

	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/template"
)

type Action struct {
	kind     protocol.DirectiveKind
	settings map[string]any
}

func NewAction(kind protocol.DirectiveKind, settings map[string]any) *Action {
	return &Action{kind: kind, settings: settings}
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (*protocol.ActionResult, error) {
	rendered := make(map[string]any, len(a.settings))

	for k, v := range a.settings {
		if s, ok := v.(string); ok {
			rendered[k] = template.Render(s, input.Visitor)
			continue
		}

		rendered[k] = v
	}

	logger.DebugContext(ctx, "Display directive emitted",
		"kind", string(a.kind),
		"run_id", input.RunID,
		"node_id", input.Node.ID)

	return &protocol.ActionResult{
		Detail: "emitted " + string(a.kind) + " directive",
		Directive: &protocol.ClientDirective{
			Kind:     a.kind,
			Settings: rendered,
		},
	}, nil
}
