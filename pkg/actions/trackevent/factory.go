package trackevent

import (
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
	"github.com/nudgekit/nudgekit/pkg/protocol"
)

type Factory struct {
	events persistence.ExecutionEventRepository
}

func NewFactory(events persistence.ExecutionEventRepository) *Factory {
	return &Factory{events: events}
}

func (f *Factory) Create(settings map[string]any) (protocol.Action, error) {
	return NewAction(settings, f.events)
}

func (f *Factory) ID() string {
	return models.NodeTypeTrackEvent
}
