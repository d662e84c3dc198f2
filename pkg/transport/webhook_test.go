package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPWebhookSender_Send(t *testing.T) {
	var (
		gotMethod  string
		gotBody    []byte
		gotHeaders http.Header
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPWebhookSender(discardLogger(), "", time.Second)

	err := sender.Send(t.Context(), WebhookRequest{
		URL:     server.URL,
		Body:    []byte(`{"visitorId":"visitor-1"}`),
		Headers: map[string]string{"X-Custom": "yes"},
		RunID:   "run-1",
		NodeID:  "node-1",
	})
	require.NoError(t, err)

	// Method defaults to POST.
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.JSONEq(t, `{"visitorId":"visitor-1"}`, string(gotBody))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "yes", gotHeaders.Get("X-Custom"))
	assert.Equal(t, "run-1", gotHeaders.Get("X-Nudgekit-Run-Id"))
	assert.Equal(t, "node-1", gotHeaders.Get("X-Nudgekit-Node-Id"))
	assert.Empty(t, gotHeaders.Get(SignatureHeader))
}

func TestHTTPWebhookSender_SignsBodyWhenSecretConfigured(t *testing.T) {
	const secret = "topsecret"

	var gotSignature string

	body := []byte(`{"event":"purchase"}`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewHTTPWebhookSender(discardLogger(), secret, time.Second)

	err := sender.Send(t.Context(), WebhookRequest{URL: server.URL, Body: body})
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSignature)
}

func TestHTTPWebhookSender_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	sender := NewHTTPWebhookSender(discardLogger(), "", time.Second)

	err := sender.Send(t.Context(), WebhookRequest{URL: server.URL, Body: []byte("{}")})
	require.Error(t, err)
	assert.True(t, IsTransportError(err))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestHTTPWebhookSender_ConnectionRefused(t *testing.T) {
	sender := NewHTTPWebhookSender(discardLogger(), "", time.Second)

	err := sender.Send(t.Context(), WebhookRequest{URL: "http://127.0.0.1:1", Body: []byte("{}")})
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}
