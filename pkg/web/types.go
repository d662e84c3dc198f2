// Package web provides the public HTTP surface: event ingestion, visitor tag
// management, and analytics queries.
package web

import (
	"github.com/nudgekit/nudgekit/pkg/engine"
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/services"
)

// TrackRequest is one inbound tracker event.
type TrackRequest struct {
	SiteID    string         `json:"site_id"    validate:"required"`
	VisitorID string         `json:"visitor_id" validate:"required"`
	Type      string         `json:"type"       validate:"required"`
	NodeID    string         `json:"node_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`

	IdentifiedUser *models.IdentifiedUser `json:"identified_user,omitempty"`
	LocalStorage   map[string]string      `json:"local_storage,omitempty"`
	Device         models.DeviceFacts     `json:"device,omitempty"`
}

// BatchTrackRequest carries multiple tracker events, flushed together by the
// tracker's send queue.
type BatchTrackRequest struct {
	Events []TrackRequest `json:"events" validate:"required,min=1,max=100,dive"`
}

// AddTagRequest is the body of the tag-add endpoint.
type AddTagRequest struct {
	Tag string `json:"tag" validate:"required,min=1"`
}

// TrackResponse reports the runs an event started. Accepted is true as soon
// as the event was durably taken; downstream action outcomes never affect
// the response.
type TrackResponse struct {
	Accepted bool               `json:"accepted"`
	Runs     []engine.RunResult `json:"runs,omitempty"`
}

// BatchTrackResponse mirrors TrackResponse per batch item.
type BatchTrackResponse struct {
	Accepted bool                 `json:"accepted"`
	Results  []services.BatchItem `json:"results"`
}

// TagsResponse lists a visitor's tags.
type TagsResponse struct {
	SiteID    string   `json:"site_id"`
	VisitorID string   `json:"visitor_id"`
	Tags      []string `json:"tags"`
}

// HasTagResponse answers the tracker's Tag condition lookup.
type HasTagResponse struct {
	HasTag bool `json:"hasTag"`
}

func (r *TrackRequest) toEvent() *models.BrowserEvent {
	return &models.BrowserEvent{
		SiteID:         r.SiteID,
		VisitorID:      r.VisitorID,
		Type:           r.Type,
		NodeHint:       r.NodeID,
		Payload:        r.Payload,
		IdentifiedUser: r.IdentifiedUser,
		LocalStorage:   r.LocalStorage,
		Device:         r.Device,
	}
}
