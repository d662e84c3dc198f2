package webhook

import (
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/transport"
)

type Factory struct {
	sender transport.WebhookSender
}

func NewFactory(sender transport.WebhookSender) *Factory {
	return &Factory{sender: sender}
}

func (f *Factory) Create(settings map[string]any) (protocol.Action, error) {
	return NewAction(settings, f.sender)
}

func (f *Factory) ID() string {
	return models.NodeTypeWebhook
}
