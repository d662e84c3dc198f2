package display

import (
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/protocol"
)

type ModalFactory struct{}

func (ModalFactory) Create(settings map[string]any) (protocol.Action, error) {
	return NewAction(protocol.DirectiveModal, settings), nil
}

func (ModalFactory) ID() string {
	return models.NodeTypeShowModal
}

type BannerFactory struct{}

func (BannerFactory) Create(settings map[string]any) (protocol.Action, error) {
	return NewAction(protocol.DirectiveBanner, settings), nil
}

func (BannerFactory) ID() string {
	return models.NodeTypeShowBanner
}
