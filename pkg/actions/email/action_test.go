package email

import (
	"context"
	"errors"
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
	sent []transport.EmailMessage
	err  error
}

func (s *captureSender) Send(_ context.Context, msg transport.EmailMessage) error {
	if s.err != nil {
		return s.err
	}

	s.sent = append(s.sent, msg)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func identifiedInput() protocol.ActionInput {
	return protocol.ActionInput{
		Node:  testutil.CreateTestNode(),
		RunID: "run-1",
		Visitor: &models.VisitorContext{
			SiteID:    "site-1",
			VisitorID: "visitor-1",
			IdentifiedUser: &models.IdentifiedUser{
				Email: "jane@example.com",
				Name:  "Jane",
			},
		},
	}
}

func TestExecute_RecipientFromIdentifiedUser(t *testing.T) {
	sender := &captureSender{}
	action, err := NewAction(map[string]any{
		"subject": "Hi {{identifiedUser.name}}",
		"body":    "Welcome back!",
	}, sender)
	require.NoError(t, err)

	result, err := action.Execute(t.Context(), identifiedInput(), testLogger())
	require.NoError(t, err)
	assert.Contains(t, result.Detail, "jane@example.com")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "jane@example.com", sender.sent[0].To)
	assert.Equal(t, "Hi Jane", sender.sent[0].Subject)
}

func TestExecute_ExplicitRecipientWins(t *testing.T) {
	sender := &captureSender{}
	action, err := NewAction(map[string]any{
		"recipient": "ops@example.com",
		"subject":   "Alert",
	}, sender)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), identifiedInput(), testLogger())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ops@example.com", sender.sent[0].To)
}

func TestExecute_NoRecipientAnywhere(t *testing.T) {
	action, err := NewAction(map[string]any{"subject": "Hello"}, &captureSender{})
	require.NoError(t, err)

	input := identifiedInput()
	input.Visitor.IdentifiedUser = nil

	_, err = action.Execute(t.Context(), input, testLogger())
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestExecute_DeliveryFailurePropagates(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp unavailable")}
	action, err := NewAction(map[string]any{"recipient": "ops@example.com"}, sender)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), identifiedInput(), testLogger())
	assert.Error(t, err)
}
