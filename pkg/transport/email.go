package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// APIEmailSender delivers email through an HTTP email provider API (any
// provider accepting a JSON {from, to, subject, html} body with bearer
// authentication).
type APIEmailSender struct {
	client   *http.Client
	endpoint string
	apiKey   string
	from     string
	logger   *slog.Logger
}

// NewAPIEmailSender creates an email sender for the given provider endpoint.
func NewAPIEmailSender(logger *slog.Logger, endpoint, apiKey, from string, timeout time.Duration) *APIEmailSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &APIEmailSender{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		logger:   logger.With("module", "email_sender"),
	}
}

// Send posts the message to the provider.
func (s *APIEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	payload, err := json.Marshal(map[string]string{
		"from":    s.from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email call failed: %w: %w", ErrTransport, err)
	}

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			s.logger.Error("failed to close email response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return &StatusError{Op: "email", URL: s.endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}

	s.logger.DebugContext(ctx, "Email delivered", "to", msg.To)

	return nil
}
