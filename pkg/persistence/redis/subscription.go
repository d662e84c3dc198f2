package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
)

// SubscriptionRepository keeps per-account usage counters and limits in a
// Redis hash. The reserve path runs as a single Lua script so that
// check-and-increment is one atomic operation: concurrent events from the
// same account can never overshoot the limit through a read-then-write race.
type SubscriptionRepository struct {
	client  redis.UniversalClient
	logger  *slog.Logger
	reserve *redis.Script
}

// Hash fields: plan, usage:<resource>, limit:<resource>.
const reserveScript = `
local plan = redis.call('HGET', KEYS[1], 'plan')
if not plan then
  return {-2, 0, 0}
end
if plan == ARGV[3] then
  return {1, 0, -1}
end
local usage = tonumber(redis.call('HGET', KEYS[1], 'usage:' .. ARGV[1]) or '0')
local limit = tonumber(redis.call('HGET', KEYS[1], 'limit:' .. ARGV[1]) or '0')
local count = tonumber(ARGV[2])
if usage + count > limit then
  return {0, usage, limit}
end
local updated = redis.call('HINCRBY', KEYS[1], 'usage:' .. ARGV[1], count)
return {1, updated, limit}
`

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(client redis.UniversalClient, logger *slog.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{
		client:  client,
		logger:  logger.With("module", "subscriptions"),
		reserve: redis.NewScript(reserveScript),
	}
}

func subscriptionKey(accountID string) string {
	return "subscription:" + accountID
}

// CheckAndReserve atomically verifies capacity and increments usage. The
// unlimited plan sentinel always passes without touching counters. A denial
// carries current usage and limit for caller-side messaging.
func (r *SubscriptionRepository) CheckAndReserve(ctx context.Context, accountID string, resource models.UsageResource, count int64) (*models.QuotaDecision, error) {
	result, err := r.reserve.Run(ctx, r.client,
		[]string{subscriptionKey(accountID)},
		string(resource), count, models.PlanUnlimited,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run quota reserve script: %w", err)
	}

	if len(result) != 3 {
		return nil, fmt.Errorf("unexpected quota reserve script result: %v", result)
	}

	if result[0] == -2 {
		return nil, fmt.Errorf("account %s: %w", accountID, persistence.ErrSubscriptionNotFound)
	}

	return &models.QuotaDecision{
		Allowed:  result[0] == 1,
		Resource: resource,
		Usage:    result[1],
		Limit:    result[2],
	}, nil
}

// Subscription loads the full counter hash for an account.
func (r *SubscriptionRepository) Subscription(ctx context.Context, accountID string) (*models.Subscription, error) {
	fields, err := r.client.HGetAll(ctx, subscriptionKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("account %s: %w", accountID, persistence.ErrSubscriptionNotFound)
	}

	sub := &models.Subscription{
		AccountID: accountID,
		Plan:      fields["plan"],
		Usage:     make(map[models.UsageResource]int64),
		Limits:    make(map[models.UsageResource]int64),
	}

	for field, raw := range fields {
		value, parseErr := strconv.ParseInt(raw, 10, 64)

		switch {
		case strings.HasPrefix(field, "usage:") && parseErr == nil:
			sub.Usage[models.UsageResource(strings.TrimPrefix(field, "usage:"))] = value
		case strings.HasPrefix(field, "limit:") && parseErr == nil:
			sub.Limits[models.UsageResource(strings.TrimPrefix(field, "limit:"))] = value
		}
	}

	return sub, nil
}

// ResetMonthlyUsage zeroes the monthly counters for an account. Run by the
// billing-cycle scheduler.
func (r *SubscriptionRepository) ResetMonthlyUsage(ctx context.Context, accountID string) error {
	err := r.client.HSet(ctx, subscriptionKey(accountID),
		"usage:"+string(models.ResourceMonthlyEvents), 0,
		"usage:"+string(models.ResourceAIOptimizations), 0,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to reset monthly usage: %w", err)
	}

	r.logger.InfoContext(ctx, "Monthly usage reset", "account_id", accountID)

	return nil
}

// ResetAllMonthlyUsage walks every subscription key and zeroes its monthly
// counters. Returns the number of accounts reset.
func (r *SubscriptionRepository) ResetAllMonthlyUsage(ctx context.Context) (int64, error) {
	var (
		cursor uint64
		reset  int64
	)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, "subscription:*", 100).Result()
		if err != nil {
			return reset, fmt.Errorf("failed to scan subscriptions: %w", err)
		}

		for _, key := range keys {
			err := r.client.HSet(ctx, key,
				"usage:"+string(models.ResourceMonthlyEvents), 0,
				"usage:"+string(models.ResourceAIOptimizations), 0,
			).Err()
			if err != nil {
				return reset, fmt.Errorf("failed to reset %s: %w", key, err)
			}

			reset++
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	r.logger.InfoContext(ctx, "Monthly usage reset for all accounts", "accounts", reset)

	return reset, nil
}

// SaveSubscription writes plan, limits, and usage. Used by provisioning and
// tests; the engine itself only reserves.
func (r *SubscriptionRepository) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	values := []any{"plan", sub.Plan}

	for resource, usage := range sub.Usage {
		values = append(values, "usage:"+string(resource), usage)
	}

	for resource, limit := range sub.Limits {
		values = append(values, "limit:"+string(resource), limit)
	}

	err := r.client.HSet(ctx, subscriptionKey(sub.AccountID), values...).Err()
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	return nil
}
