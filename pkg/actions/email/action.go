// Package email implements the Send Email action.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/template"
	"github.com/nudgekit/nudgekit/pkg/transport"
)

var ErrNoRecipient = errors.New("no recipient: set the recipient setting or identify the visitor")

// Action renders the subject and body against the visitor context and sends
// through the email transport. The recipient is the explicit setting when
// present, otherwise the identified visitor's email.
type Action struct {
	subject   string
	body      string
	recipient string
	sender    transport.EmailSender
}

func NewAction(settings map[string]any, sender transport.EmailSender) (*Action, error) {
	subject, _ := settings["subject"].(string)
	body, _ := settings["body"].(string)
	recipient, _ := settings["recipient"].(string)

	return &Action{
		subject:   subject,
		body:      body,
		recipient: recipient,
		sender:    sender,
	}, nil
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (*protocol.ActionResult, error) {
	to := template.Render(a.recipient, input.Visitor)
	if to == "" {
		to = identifiedEmail(input.Visitor)
	}

	if to == "" {
		return nil, ErrNoRecipient
	}

	msg := transport.EmailMessage{
		To:      to,
		Subject: template.Render(a.subject, input.Visitor),
		Body:    template.Render(a.body, input.Visitor),
	}

	err := a.sender.Send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("email delivery failed: %w", err)
	}

	logger.InfoContext(ctx, "Email sent", "run_id", input.RunID, "node_id", input.Node.ID)

	return &protocol.ActionResult{Detail: "email sent to " + to}, nil
}

func identifiedEmail(visitor *models.VisitorContext) string {
	if visitor.IdentifiedUser == nil {
		return ""
	}

	return visitor.IdentifiedUser.Email
}
