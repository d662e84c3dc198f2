// Package transport holds the outbound collaborators: email delivery and
// generic HTTP webhooks. Both accept fully substituted payloads; placeholder
// rendering happens before the transport boundary.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransport marks an outbound delivery failure. The async dispatch path
// retries these a bounded number of times; the synchronous fallback path
// reports them as failed without retrying, to bound request latency.
var ErrTransport = errors.New("transport error")

// StatusError carries the upstream HTTP status of a failed delivery.
type StatusError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s to %s failed with status %d: %s", e.Op, e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrTransport
}

// IsTransportError checks whether an error came from an outbound delivery.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// EmailMessage is a fully substituted outbound email.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailSender delivers an email. At-least-once: consumers dedupe by run id.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// WebhookRequest is a fully substituted outbound webhook call.
type WebhookRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
	// RunID and NodeID identify the execution; forwarded so downstream
	// consumers can dedupe redelivered calls.
	RunID  string
	NodeID string
}

// WebhookSender performs a generic HTTP call to a site owner's endpoint.
type WebhookSender interface {
	Send(ctx context.Context, req WebhookRequest) error
}
