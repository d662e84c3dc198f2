package redis

import (
	"context"
	"fmt"
	"log/slog"

	redis "github.com/redis/go-redis/v9"
)

// VisitorTagRepository stores each visitor's tags as a Redis set, which gives
// the idempotent add/remove semantics the tag store contract requires: SADD
// twice leaves the same set as once, SREM of an absent member is a no-op.
type VisitorTagRepository struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewVisitorTagRepository creates a new visitor tag repository.
func NewVisitorTagRepository(client redis.UniversalClient, logger *slog.Logger) *VisitorTagRepository {
	return &VisitorTagRepository{
		client: client,
		logger: logger.With("module", "visitor_tags"),
	}
}

func tagKey(siteID, visitorID string) string {
	return fmt.Sprintf("tags:%s:%s", siteID, visitorID)
}

// Tags returns the visitor's current tag set. A visitor with no record
// yields an empty set, not an error.
func (r *VisitorTagRepository) Tags(ctx context.Context, siteID, visitorID string) ([]string, error) {
	tags, err := r.client.SMembers(ctx, tagKey(siteID, visitorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read visitor tags: %w", err)
	}

	return tags, nil
}

// AddTag adds a tag to the visitor's set. Idempotent.
func (r *VisitorTagRepository) AddTag(ctx context.Context, siteID, visitorID, tag string) error {
	err := r.client.SAdd(ctx, tagKey(siteID, visitorID), tag).Err()
	if err != nil {
		return fmt.Errorf("failed to add visitor tag: %w", err)
	}

	r.logger.DebugContext(ctx, "Tag added to visitor", "site_id", siteID, "visitor_id", visitorID, "tag", tag)

	return nil
}

// RemoveTag removes a tag from the visitor's set. Removing an absent tag is a
// no-op, not an error.
func (r *VisitorTagRepository) RemoveTag(ctx context.Context, siteID, visitorID, tag string) error {
	err := r.client.SRem(ctx, tagKey(siteID, visitorID), tag).Err()
	if err != nil {
		return fmt.Errorf("failed to remove visitor tag: %w", err)
	}

	r.logger.DebugContext(ctx, "Tag removed from visitor", "site_id", siteID, "visitor_id", visitorID, "tag", tag)

	return nil
}
