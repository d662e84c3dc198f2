package cmd

import (
	"log/slog"
	"time"

	"github.com/nudgekit/nudgekit/pkg/actions/display"
	"github.com/nudgekit/nudgekit/pkg/actions/email"
	"github.com/nudgekit/nudgekit/pkg/actions/tag"
	"github.com/nudgekit/nudgekit/pkg/actions/trackevent"
	"github.com/nudgekit/nudgekit/pkg/actions/webhook"
	"github.com/nudgekit/nudgekit/pkg/persistence"
	"github.com/nudgekit/nudgekit/pkg/registry"
	"github.com/nudgekit/nudgekit/pkg/transport"
)

// TransportConfig carries the outbound delivery settings shared by the
// engine and worker binaries.
type TransportConfig struct {
	EmailEndpoint string
	EmailAPIKey   string
	EmailFrom     string
	WebhookSecret string
	// Timeout bounds each outbound email or webhook call.
	Timeout time.Duration
}

// NewRegistry builds the closed action set. Every built-in action type is
// registered here; there is no runtime plugin loading.
func NewRegistry(logger *slog.Logger, store persistence.Persistence, cfg TransportConfig) *registry.Registry {
	emailSender := transport.NewAPIEmailSender(logger, cfg.EmailEndpoint, cfg.EmailAPIKey, cfg.EmailFrom, cfg.Timeout)
	webhookSender := transport.NewHTTPWebhookSender(logger, cfg.WebhookSecret, cfg.Timeout)

	reg := registry.NewRegistry(logger)

	reg.RegisterAction(tag.NewAddTagFactory(store.VisitorTagRepository()))
	reg.RegisterAction(tag.NewRemoveTagFactory(store.VisitorTagRepository()))
	reg.RegisterAction(email.NewFactory(emailSender))
	reg.RegisterAction(webhook.NewFactory(webhookSender))
	reg.RegisterAction(display.ModalFactory{})
	reg.RegisterAction(display.BannerFactory{})
	reg.RegisterAction(trackevent.NewFactory(store.ExecutionEventRepository()))

	return reg
}
