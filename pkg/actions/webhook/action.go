// Package webhook implements the Call Webhook action: a site-owner HTTP
// endpoint receives the visitor envelope plus an optional custom body.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/template"
	"github.com/nudgekit/nudgekit/pkg/transport"
)

var ErrURLRequired = errors.New("webhookUrl setting is required")

// Action posts the visitor envelope to the configured URL. The custom body,
// when present, is rendered and merged over the envelope so authors can
// override or extend the default fields.
type Action struct {
	url     string
	method  string
	headers map[string]string
	body    string
	sender  transport.WebhookSender
}

func NewAction(settings map[string]any, sender transport.WebhookSender) (*Action, error) {
	url, _ := settings["webhookUrl"].(string)
	if url == "" {
		return nil, ErrURLRequired
	}

	method, _ := settings["webhookMethod"].(string)
	if method == "" {
		method = http.MethodPost
	}

	body, _ := settings["webhookBody"].(string)

	return &Action{
		url:     url,
		method:  method,
		headers: stringMap(settings["webhookHeaders"]),
		body:    body,
		sender:  sender,
	}, nil
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (*protocol.ActionResult, error) {
	visitor := input.Visitor

	payload := map[string]any{
		"visitorId":    visitor.VisitorID,
		"localStorage": visitor.LocalStorage,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
	if visitor.IdentifiedUser != nil {
		payload["identifiedUser"] = visitor.IdentifiedUser
	}

	if a.body != "" {
		custom, err := renderBody(a.body, visitor)
		if err != nil {
			return nil, err
		}

		for k, v := range custom {
			payload[k] = v
		}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding webhook payload: %w", err)
	}

	req := transport.WebhookRequest{
		URL:     template.Render(a.url, visitor),
		Method:  a.method,
		Headers: template.RenderMap(a.headers, visitor),
		Body:    encoded,
		RunID:   input.RunID,
		NodeID:  input.Node.ID,
	}

	if err := a.sender.Send(ctx, req); err != nil {
		return nil, fmt.Errorf("webhook delivery failed: %w", err)
	}

	logger.InfoContext(ctx, "Webhook delivered",
		"url", req.URL,
		"run_id", input.RunID,
		"node_id", input.Node.ID)

	return &protocol.ActionResult{Detail: "webhook delivered to " + req.URL}, nil
}

// renderBody substitutes placeholders in the raw JSON string first, then
// parses. Substitution before parsing keeps placeholder syntax valid inside
// JSON string values without needing a structural walk.
func renderBody(raw string, visitor *models.VisitorContext) (map[string]any, error) {
	rendered := template.Render(raw, visitor)

	var custom map[string]any
	if err := json.Unmarshal([]byte(rendered), &custom); err != nil {
		return nil, fmt.Errorf("webhookBody is not a JSON object: %w", err)
	}

	return custom, nil
}

func stringMap(raw any) map[string]string {
	source, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	headers := make(map[string]string, len(source))

	for k, v := range source {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}

	return headers
}
