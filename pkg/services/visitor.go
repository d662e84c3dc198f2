package services

import (
	"context"

	"github.com/nudgekit/nudgekit/pkg/persistence"
)

// Visitor exposes the tag store to the HTTP surface: the tracker's Tag
// condition and the dashboard's tag management both go through here.
type Visitor struct {
	tags persistence.VisitorTagRepository
}

func NewVisitor(tags persistence.VisitorTagRepository) *Visitor {
	return &Visitor{tags: tags}
}

func (s *Visitor) Tags(ctx context.Context, siteID, visitorID string) ([]string, error) {
	if err := validateVisitor(siteID, visitorID); err != nil {
		return nil, err
	}

	return s.tags.Tags(ctx, siteID, visitorID)
}

func (s *Visitor) HasTag(ctx context.Context, siteID, visitorID, tag string) (bool, error) {
	if tag == "" {
		return false, ErrTagNameRequired
	}

	tags, err := s.Tags(ctx, siteID, visitorID)
	if err != nil {
		return false, err
	}

	for _, t := range tags {
		if t == tag {
			return true, nil
		}
	}

	return false, nil
}

func (s *Visitor) AddTag(ctx context.Context, siteID, visitorID, tag string) error {
	if err := validateVisitor(siteID, visitorID); err != nil {
		return err
	}

	if tag == "" {
		return ErrTagNameRequired
	}

	return s.tags.AddTag(ctx, siteID, visitorID, tag)
}

func (s *Visitor) RemoveTag(ctx context.Context, siteID, visitorID, tag string) error {
	if err := validateVisitor(siteID, visitorID); err != nil {
		return err
	}

	if tag == "" {
		return ErrTagNameRequired
	}

	return s.tags.RemoveTag(ctx, siteID, visitorID, tag)
}

func validateVisitor(siteID, visitorID string) error {
	if siteID == "" {
		return ErrSiteIDRequired
	}

	if visitorID == "" {
		return ErrVisitorIDRequired
	}

	return nil
}
