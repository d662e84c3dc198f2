// Package persistence provides the storage abstraction layer for workflows,
// visitor tags, execution events, and subscription usage counters.
package persistence

import (
	"context"

	"github.com/nudgekit/nudgekit/pkg/models"
)

// WorkflowRepository is the read-only view onto the external workflow store.
type WorkflowRepository interface {
	ActiveWorkflows(ctx context.Context, siteID string) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
}

// VisitorTagRepository owns the durable (site, visitor) -> tag set mapping.
// Add and Remove have set semantics: both are idempotent.
type VisitorTagRepository interface {
	Tags(ctx context.Context, siteID, visitorID string) ([]string, error)
	AddTag(ctx context.Context, siteID, visitorID, tag string) error
	RemoveTag(ctx context.Context, siteID, visitorID, tag string) error
}

// ExecutionEventRepository is the append-only execution event log.
type ExecutionEventRepository interface {
	Append(ctx context.Context, event *models.ExecutionEvent) error
	Query(ctx context.Context, workflowID string, dateRange models.DateRange) ([]*models.ExecutionEvent, error)
	// HasVisitorEvents backs the New vs Returning condition.
	HasVisitorEvents(ctx context.Context, siteID, visitorID string) (bool, error)
	// CountByWorkflow backs the paginated activity feed.
	CountByWorkflow(ctx context.Context, workflowID string) (int64, error)
	QueryPage(ctx context.Context, workflowID string, limit, offset int) ([]*models.ExecutionEvent, error)
	// DeleteOlderThan enforces the retention policy; returns rows removed.
	DeleteOlderThan(ctx context.Context, cutoffHours int) (int64, error)
}

// SubscriptionRepository exposes the usage counters of the external billing
// service. CheckAndReserve must be a single atomic operation against the
// counter store: concurrent spikes from one account must never overshoot the
// limit through a check-then-increment race.
type SubscriptionRepository interface {
	Subscription(ctx context.Context, accountID string) (*models.Subscription, error)
	CheckAndReserve(ctx context.Context, accountID string, resource models.UsageResource, count int64) (*models.QuotaDecision, error)
	// ResetMonthlyUsage zeroes the monthly counters, run on a billing-cycle cron.
	ResetMonthlyUsage(ctx context.Context, accountID string) error
}

// MonthlyUsageResetter is implemented by subscription stores that can reset
// every account in one sweep. The billing-cycle scheduler uses it when the
// configured store supports it.
type MonthlyUsageResetter interface {
	ResetAllMonthlyUsage(ctx context.Context) (int64, error)
}

// Persistence bundles the repositories behind one lifecycle.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	VisitorTagRepository() VisitorTagRepository
	ExecutionEventRepository() ExecutionEventRepository
	SubscriptionRepository() SubscriptionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
