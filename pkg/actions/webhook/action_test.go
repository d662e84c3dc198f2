package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/testutil"
	"github.com/nudgekit/nudgekit/pkg/transport"
)

type captureSender struct {
	requests []transport.WebhookRequest
}

func (s *captureSender) Send(_ context.Context, req transport.WebhookRequest) error {
	s.requests = append(s.requests, req)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testInput() protocol.ActionInput {
	return protocol.ActionInput{
		Node:  testutil.CreateTestNode(testutil.WithID("node-hook")),
		RunID: "run-1",
		Visitor: &models.VisitorContext{
			SiteID:       "site-1",
			VisitorID:    "visitor-1",
			LocalStorage: map[string]string{"cart_total": "49.90"},
			IdentifiedUser: &models.IdentifiedUser{
				Email: "jane@example.com",
			},
		},
	}
}

func TestNewAction_RequiresURL(t *testing.T) {
	_, err := NewAction(map[string]any{}, &captureSender{})
	assert.ErrorIs(t, err, ErrURLRequired)
}

func TestExecute_SendsEnvelope(t *testing.T) {
	sender := &captureSender{}
	action, err := NewAction(map[string]any{
		"webhookUrl": "https://example.com/hook",
	}, sender)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), testInput(), testLogger())
	require.NoError(t, err)

	require.Len(t, sender.requests, 1)
	req := sender.requests[0]

	assert.Equal(t, "https://example.com/hook", req.URL)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "run-1", req.RunID)
	assert.Equal(t, "node-hook", req.NodeID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &payload))
	assert.Equal(t, "visitor-1", payload["visitorId"])
	assert.NotEmpty(t, payload["timestamp"])
	assert.Contains(t, payload, "identifiedUser")
}

func TestExecute_CustomBodyMergedOverEnvelope(t *testing.T) {
	sender := &captureSender{}
	action, err := NewAction(map[string]any{
		"webhookUrl":  "https://example.com/hook",
		"webhookBody": `{"visitorId":"overridden","total":"{{cart_total}}"}`,
	}, sender)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), testInput(), testLogger())
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(sender.requests[0].Body, &payload))
	assert.Equal(t, "overridden", payload["visitorId"])
	assert.Equal(t, "49.90", payload["total"])
}

func TestExecute_HeadersAndURLRendered(t *testing.T) {
	sender := &captureSender{}
	action, err := NewAction(map[string]any{
		"webhookUrl":    "https://example.com/hook/{{visitorId}}",
		"webhookMethod": "PUT",
		"webhookHeaders": map[string]any{
			"X-Visitor": "{{visitorId}}",
			"X-Fixed":   "1",
		},
	}, sender)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), testInput(), testLogger())
	require.NoError(t, err)

	req := sender.requests[0]
	assert.Equal(t, "https://example.com/hook/visitor-1", req.URL)
	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "visitor-1", req.Headers["X-Visitor"])
	assert.Equal(t, "1", req.Headers["X-Fixed"])
}

func TestExecute_InvalidCustomBody(t *testing.T) {
	sender := &captureSender{}
	action, err := NewAction(map[string]any{
		"webhookUrl":  "https://example.com/hook",
		"webhookBody": "not json",
	}, sender)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), testInput(), testLogger())
	assert.Error(t, err)
	assert.Empty(t, sender.requests)
}
