// Package memory provides an in-memory persistence implementation used by
// tests and local development. Semantics mirror the production backends: tag
// sets are idempotent, quota reservation is atomic under a per-store lock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
)

// Persistence implements persistence.Persistence entirely in memory.
type Persistence struct {
	workflows     *WorkflowRepository
	tags          *VisitorTagRepository
	events        *ExecutionEventRepository
	subscriptions *SubscriptionRepository
}

// NewPersistence creates an empty in-memory persistence layer.
func NewPersistence() *Persistence {
	return &Persistence{
		workflows:     &WorkflowRepository{workflows: make(map[string]*models.Workflow)},
		tags:          &VisitorTagRepository{tags: make(map[string]map[string]struct{})},
		events:        &ExecutionEventRepository{},
		subscriptions: &SubscriptionRepository{subscriptions: make(map[string]*models.Subscription)},
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) VisitorTagRepository() persistence.VisitorTagRepository {
	return p.tags
}

func (p *Persistence) ExecutionEventRepository() persistence.ExecutionEventRepository {
	return p.events
}

func (p *Persistence) SubscriptionRepository() persistence.SubscriptionRepository {
	return p.subscriptions
}

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }

func (p *Persistence) Close(_ context.Context) error { return nil }

// AddWorkflow seeds a workflow. Test helper; the engine never writes
// workflows.
func (p *Persistence) AddWorkflow(workflow *models.Workflow) {
	p.workflows.mu.Lock()
	defer p.workflows.mu.Unlock()

	p.workflows.workflows[workflow.ID] = workflow
}

// AddSubscription seeds a subscription. Test helper.
func (p *Persistence) AddSubscription(sub *models.Subscription) {
	p.subscriptions.mu.Lock()
	defer p.subscriptions.mu.Unlock()

	p.subscriptions.subscriptions[sub.AccountID] = sub
}

// WorkflowRepository is the in-memory workflow store.
type WorkflowRepository struct {
	mu        sync.RWMutex
	workflows map[string]*models.Workflow
}

func (r *WorkflowRepository) ActiveWorkflows(_ context.Context, siteID string) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*models.Workflow

	for _, w := range r.workflows {
		if w.SiteID == siteID && w.IsActive() {
			active = append(active, w)
		}
	}

	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	return active, nil
}

func (r *WorkflowRepository) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workflows[id]
	if !ok {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	return w, nil
}

// VisitorTagRepository is the in-memory tag store.
type VisitorTagRepository struct {
	mu   sync.RWMutex
	tags map[string]map[string]struct{}
}

func visitorKey(siteID, visitorID string) string {
	return siteID + "/" + visitorID
}

func (r *VisitorTagRepository) Tags(_ context.Context, siteID, visitorID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.tags[visitorKey(siteID, visitorID)]

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}

	sort.Strings(tags)

	return tags, nil
}

func (r *VisitorTagRepository) AddTag(_ context.Context, siteID, visitorID, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := visitorKey(siteID, visitorID)

	if r.tags[key] == nil {
		r.tags[key] = make(map[string]struct{})
	}

	r.tags[key][tag] = struct{}{}

	return nil
}

func (r *VisitorTagRepository) RemoveTag(_ context.Context, siteID, visitorID, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tags[visitorKey(siteID, visitorID)], tag)

	return nil
}

// ExecutionEventRepository is the in-memory append-only event log.
type ExecutionEventRepository struct {
	mu     sync.RWMutex
	events []*models.ExecutionEvent
}

func (r *ExecutionEventRepository) Append(_ context.Context, event *models.ExecutionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *event
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}

	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}

	r.events = append(r.events, &stored)

	return nil
}

func (r *ExecutionEventRepository) Query(_ context.Context, workflowID string, dateRange models.DateRange) ([]*models.ExecutionEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.ExecutionEvent

	for _, e := range r.events {
		if e.WorkflowID == workflowID && dateRange.Contains(e.Timestamp) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })

	return matched, nil
}

func (r *ExecutionEventRepository) QueryPage(_ context.Context, workflowID string, limit, offset int) ([]*models.ExecutionEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.ExecutionEvent

	for _, e := range r.events {
		if e.WorkflowID == workflowID {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })

	if offset >= len(matched) {
		return nil, nil
	}

	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}

	return matched, nil
}

func (r *ExecutionEventRepository) HasVisitorEvents(_ context.Context, siteID, visitorID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.events {
		if e.SiteID == siteID && e.VisitorID == visitorID {
			return true, nil
		}
	}

	return false, nil
}

func (r *ExecutionEventRepository) CountByWorkflow(_ context.Context, workflowID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64

	for _, e := range r.events {
		if e.WorkflowID == workflowID {
			count++
		}
	}

	return count, nil
}

func (r *ExecutionEventRepository) DeleteOlderThan(_ context.Context, cutoffHours int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().Add(-time.Duration(cutoffHours) * time.Hour)

	kept := r.events[:0]

	var deleted int64

	for _, e := range r.events {
		if e.Timestamp.Before(cutoff) {
			deleted++

			continue
		}

		kept = append(kept, e)
	}

	r.events = kept

	return deleted, nil
}

// SubscriptionRepository is the in-memory usage counter store. Reservation is
// atomic under the repository lock.
type SubscriptionRepository struct {
	mu            sync.Mutex
	subscriptions map[string]*models.Subscription
}

func (r *SubscriptionRepository) Subscription(_ context.Context, accountID string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, persistence.ErrSubscriptionNotFound)
	}

	return sub, nil
}

func (r *SubscriptionRepository) CheckAndReserve(_ context.Context, accountID string, resource models.UsageResource, count int64) (*models.QuotaDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, persistence.ErrSubscriptionNotFound)
	}

	if sub.Plan == models.PlanUnlimited {
		return &models.QuotaDecision{Allowed: true, Resource: resource, Limit: models.UnlimitedLimit}, nil
	}

	usage := sub.Usage[resource]
	limit := sub.Limits[resource]

	if usage+count > limit {
		return &models.QuotaDecision{Allowed: false, Resource: resource, Usage: usage, Limit: limit}, nil
	}

	if sub.Usage == nil {
		sub.Usage = make(map[models.UsageResource]int64)
	}

	sub.Usage[resource] = usage + count

	return &models.QuotaDecision{Allowed: true, Resource: resource, Usage: usage + count, Limit: limit}, nil
}

func (r *SubscriptionRepository) ResetMonthlyUsage(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, persistence.ErrSubscriptionNotFound)
	}

	if sub.Usage != nil {
		sub.Usage[models.ResourceMonthlyEvents] = 0
		sub.Usage[models.ResourceAIOptimizations] = 0
	}

	return nil
}

func (r *SubscriptionRepository) ResetAllMonthlyUsage(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reset int64

	for _, sub := range r.subscriptions {
		if sub.Usage != nil {
			sub.Usage[models.ResourceMonthlyEvents] = 0
			sub.Usage[models.ResourceAIOptimizations] = 0
		}

		reset++
	}

	return reset, nil
}
