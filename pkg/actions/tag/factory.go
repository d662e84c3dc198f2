package tag

import (
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
	"github.com/nudgekit/nudgekit/pkg/protocol"
)

type AddTagFactory struct {
	tags persistence.VisitorTagRepository
}

func NewAddTagFactory(tags persistence.VisitorTagRepository) *AddTagFactory {
	return &AddTagFactory{tags: tags}
}

func (f *AddTagFactory) Create(settings map[string]any) (protocol.Action, error) {
	return NewAction(OpAdd, settings, f.tags)
}

func (f *AddTagFactory) ID() string {
	return models.NodeTypeAddTag
}

type RemoveTagFactory struct {
	tags persistence.VisitorTagRepository
}

func NewRemoveTagFactory(tags persistence.VisitorTagRepository) *RemoveTagFactory {
	return &RemoveTagFactory{tags: tags}
}

func (f *RemoveTagFactory) Create(settings map[string]any) (protocol.Action, error) {
	return NewAction(OpRemove, settings, f.tags)
}

func (f *RemoveTagFactory) ID() string {
	return models.NodeTypeRemoveTag
}
