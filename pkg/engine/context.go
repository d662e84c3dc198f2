package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
)

// ContextResolver assembles the ephemeral evaluation context for one event:
// the forwarded identity and localStorage snapshot, device facts, the durable
// tag set, and whether the visitor has been seen before on this site.
type ContextResolver struct {
	tags     persistence.VisitorTagRepository
	eventLog persistence.ExecutionEventRepository
	logger   *slog.Logger
}

func NewContextResolver(
	tags persistence.VisitorTagRepository,
	eventLog persistence.ExecutionEventRepository,
	logger *slog.Logger,
) *ContextResolver {
	return &ContextResolver{
		tags:     tags,
		eventLog: eventLog,
		logger:   logger.With("module", "context-resolver"),
	}
}

func (r *ContextResolver) Resolve(ctx context.Context, event *models.BrowserEvent) (*models.VisitorContext, error) {
	tags, err := r.tags.Tags(ctx, event.SiteID, event.VisitorID)
	if err != nil {
		return nil, fmt.Errorf("loading tags for visitor %s: %w", event.VisitorID, err)
	}

	// Returning means any prior execution event on this site, checked before
	// this event's own trigger record is appended.
	returning, err := r.eventLog.HasVisitorEvents(ctx, event.SiteID, event.VisitorID)
	if err != nil {
		return nil, fmt.Errorf("checking visitor history for %s: %w", event.VisitorID, err)
	}

	return &models.VisitorContext{
		SiteID:         event.SiteID,
		VisitorID:      event.VisitorID,
		Page:           event.Page(),
		IdentifiedUser: event.IdentifiedUser,
		LocalStorage:   event.LocalStorage,
		Device:         event.Device,
		Tags:           tags,
		Returning:      returning,
		Payload:        event.Payload,
	}, nil
}
