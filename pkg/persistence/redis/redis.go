// Package redis provides Redis-backed persistence for the visitor tag store
// and the subscription usage counters. Both are the only shared mutable state
// on the hot path and need per-key atomic read-modify-write, which Redis
// gives through set commands and a Lua reserve script.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	redis "github.com/redis/go-redis/v9"
)

// Persistence bundles the tag store and subscription counters on one client.
type Persistence struct {
	client           redis.UniversalClient
	logger           *slog.Logger
	tagRepo          *VisitorTagRepository
	subscriptionRepo *SubscriptionRepository
}

// NewPersistence connects and returns the Redis layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Persistence{
		client:           client,
		logger:           logger,
		tagRepo:          NewVisitorTagRepository(client, logger),
		subscriptionRepo: NewSubscriptionRepository(client, logger),
	}, nil
}

func (p *Persistence) VisitorTagRepository() *VisitorTagRepository {
	return p.tagRepo
}

func (p *Persistence) SubscriptionRepository() *SubscriptionRepository {
	return p.subscriptionRepo
}

// HealthCheck verifies connectivity.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}
