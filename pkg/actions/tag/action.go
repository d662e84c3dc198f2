// Package tag implements the Add Tag and Remove Tag actions, the only
// actions that mutate the visitor tag store.
package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nudgekit/nudgekit/pkg/persistence"
	"github.com/nudgekit/nudgekit/pkg/protocol"
)

var ErrTagNameRequired = errors.New("tagName setting is required")

// Op selects the mutation direction.
type Op int

const (
	OpAdd Op = iota
	OpRemove
)

// Action mutates the visitor's tag set. The store has set semantics, so
// queue re-delivery of the same execution cannot double-apply.
type Action struct {
	op      Op
	tagName string
	tags    persistence.VisitorTagRepository
}

func NewAction(op Op, settings map[string]any, tags persistence.VisitorTagRepository) (*Action, error) {
	tagName, _ := settings["tagName"].(string)
	if tagName == "" {
		return nil, ErrTagNameRequired
	}

	return &Action{op: op, tagName: tagName, tags: tags}, nil
}

func (a *Action) Execute(ctx context.Context, input protocol.ActionInput, logger *slog.Logger) (*protocol.ActionResult, error) {
	visitor := input.Visitor

	var (
		err    error
		detail string
	)

	switch a.op {
	case OpAdd:
		err = a.tags.AddTag(ctx, visitor.SiteID, visitor.VisitorID, a.tagName)
		detail = fmt.Sprintf("added tag %q", a.tagName)
	case OpRemove:
		err = a.tags.RemoveTag(ctx, visitor.SiteID, visitor.VisitorID, a.tagName)
		detail = fmt.Sprintf("removed tag %q", a.tagName)
	}

	if err != nil {
		return nil, fmt.Errorf("tag mutation failed: %w", err)
	}

	logger.DebugContext(ctx, "Tag action executed",
		"visitor_id", visitor.VisitorID,
		"tag", a.tagName,
		"run_id", input.RunID)

	return &protocol.ActionResult{Detail: detail}, nil
}
