package transport

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// SignatureHeader carries the HMAC-SHA256 of the request body when a signing
// secret is configured, so receivers can authenticate deliveries.
const SignatureHeader = "X-Nudgekit-Signature"

const defaultTimeout = 5 * time.Second

// HTTPWebhookSender sends webhooks over net/http with a bounded per-request
// timeout.
type HTTPWebhookSender struct {
	client     *http.Client
	hmacSecret string
	logger     *slog.Logger
}

// NewHTTPWebhookSender creates a webhook sender. An empty secret disables
// signing.
func NewHTTPWebhookSender(logger *slog.Logger, hmacSecret string, timeout time.Duration) *HTTPWebhookSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPWebhookSender{
		client:     &http.Client{Timeout: timeout},
		hmacSecret: hmacSecret,
		logger:     logger.With("module", "webhook_sender"),
	}
}

// Send performs the HTTP call. Non-2xx responses are StatusErrors so callers
// can distinguish delivery failures from local ones.
func (s *HTTPWebhookSender) Send(ctx context.Context, req WebhookRequest) error {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Nudgekit-Run-Id", req.RunID)
	httpReq.Header.Set("X-Nudgekit-Node-Id", req.NodeID)

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if s.hmacSecret != "" {
		mac := hmac.New(sha256.New, []byte(s.hmacSecret))
		mac.Write(req.Body)
		httpReq.Header.Set(SignatureHeader, hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webhook call failed: %w: %w", ErrTransport, err)
	}

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			s.logger.Error("failed to close webhook response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return &StatusError{Op: "webhook", URL: req.URL, StatusCode: resp.StatusCode, Body: string(body)}
	}

	s.logger.DebugContext(ctx, "Webhook delivered", "url", req.URL, "status", resp.StatusCode)

	return nil
}
