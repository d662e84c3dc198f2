// Package trackevent implements the Track Event action, which records a
// named custom event in the execution log for analytics queries.
package trackevent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/template"
)

var ErrEventNameRequired = errors.New("eventName setting is required")

type Action struct {
	eventName  string
	properties map[string]any
	events     persistence.ExecutionEventRepository
}

func NewAction(settings map[string]any, events persistence.ExecutionEventRepository) (*Action, error) {
	eventName, _ := settings["eventName"].(string)
	if eventName == "" {
		return nil, ErrEventNameRequired
	}

	properties, _ := settings["properties"].(map[string]any)

	return &Action{eventName: eventName, properties: properties, events: events}, nil
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (*protocol.ActionResult, error) {
	name := template.Render(a.eventName, input.Visitor)

	payload := make(map[string]any, len(a.properties))

	for k, v := range a.properties {
		if s, ok := v.(string); ok {
			payload[k] = template.Render(s, input.Visitor)
			continue
		}

		payload[k] = v
	}

	event := &models.ExecutionEvent{
		ID:         uuid.NewString(),
		SiteID:     input.Visitor.SiteID,
		WorkflowID: input.Workflow.ID,
		VisitorID:  input.Visitor.VisitorID,
		RunID:      input.RunID,
		NodeID:     input.Node.ID,
		NodeName:   name,
		NodeType:   input.Node.Type,
		Kind:       models.EventKindCustom,
		Timestamp:  time.Now().UTC(),
		Success:    true,
		Payload:    payload,
	}

	if err := a.events.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("recording custom event %q: %w", name, err)
	}

	logger.DebugContext(ctx, "Custom event tracked",
		"event_name", name,
		"run_id", input.RunID)

	return &protocol.ActionResult{Detail: "tracked event " + name, Payload: payload}, nil
}
