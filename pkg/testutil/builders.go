// Package testutil provides test data builders shared across packages.
package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nudgekit/nudgekit/pkg/models"
)

// CreateTestNode creates a WorkflowNode with default values that can be
// overridden.
func CreateTestNode(overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:       uuid.New().String(),
		Kind:     models.NodeKindAction,
		Type:     models.NodeTypeAddTag,
		Name:     "Test Node",
		Settings: map[string]any{"tagName": "test-tag"},
		Enabled:  true,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithTrigger configures the node as a Page View trigger.
func WithTrigger() func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Kind = models.NodeKindTrigger
		n.Type = models.NodeTypePageView
		n.Name = "Page View"
		n.Settings = map[string]any{}
	}
}

// WithCondition configures the node as a condition of the given type.
func WithCondition(conditionType string, settings map[string]any) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Kind = models.NodeKindCondition
		n.Type = conditionType
		n.Name = conditionType
		n.Settings = settings
	}
}

// WithSettings sets the node settings payload.
func WithSettings(settings map[string]any) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Settings = settings
	}
}

// WithType sets the node type.
func WithType(nodeType string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Type = nodeType
	}
}

// WithID sets the node ID.
func WithID(id string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.ID = id
	}
}

// WithName sets the node name.
func WithName(name string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Name = name
	}
}

// WithEnabled sets the node enabled status.
func WithEnabled(enabled bool) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Enabled = enabled
	}
}

// CreateTestWorkflow creates an active workflow with default values that can
// be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:        uuid.New().String(),
		SiteID:    "site-1",
		AccountID: "account-1",
		Name:      "Test Workflow",
		Status:    models.WorkflowStatusActive,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithNodes sets the workflow nodes.
func WithNodes(nodes ...*models.WorkflowNode) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = append(w.Nodes, nodes...)
	}
}

// WithChain connects the given node IDs in sequence.
func WithChain(nodeIDs ...string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		for i := 0; i+1 < len(nodeIDs); i++ {
			w.Connections = append(w.Connections, &models.Connection{
				ID:       fmt.Sprintf("conn-%02d", len(w.Connections)),
				SourceID: nodeIDs[i],
				TargetID: nodeIDs[i+1],
			})
		}
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithSite sets the workflow's site ID.
func WithSite(siteID string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.SiteID = siteID
	}
}

// WithAccount sets the workflow's account ID.
func WithAccount(accountID string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.AccountID = accountID
	}
}

// CreateTestEvent creates a Page View browser event with default values that
// can be overridden.
func CreateTestEvent(overrides ...func(*models.BrowserEvent)) *models.BrowserEvent {
	event := &models.BrowserEvent{
		SiteID:    "site-1",
		VisitorID: "visitor-1",
		Type:      models.NodeTypePageView,
		Payload:   map[string]any{"path": "/"},
		Device:    models.DeviceFacts{Class: models.DeviceDesktop},
	}

	for _, override := range overrides {
		override(event)
	}

	return event
}

// WithPage sets the page path the event carries.
func WithPage(path string) func(*models.BrowserEvent) {
	return func(e *models.BrowserEvent) {
		if e.Payload == nil {
			e.Payload = map[string]any{}
		}

		e.Payload["path"] = path
	}
}

// WithDevice sets the visitor's device class.
func WithDevice(class models.DeviceClass) func(*models.BrowserEvent) {
	return func(e *models.BrowserEvent) {
		e.Device.Class = class
	}
}

// WithVisitor sets the visitor ID.
func WithVisitor(visitorID string) func(*models.BrowserEvent) {
	return func(e *models.BrowserEvent) {
		e.VisitorID = visitorID
	}
}

// WithEventSite sets the site ID the event reports.
func WithEventSite(siteID string) func(*models.BrowserEvent) {
	return func(e *models.BrowserEvent) {
		e.SiteID = siteID
	}
}

// WithEventType sets the event type.
func WithEventType(eventType string) func(*models.BrowserEvent) {
	return func(e *models.BrowserEvent) {
		e.Type = eventType
	}
}

// CreateTestSubscription creates a subscription with default limits that can
// be overridden.
func CreateTestSubscription(overrides ...func(*models.Subscription)) *models.Subscription {
	sub := &models.Subscription{
		AccountID: "account-1",
		Plan:      "growth",
		Usage: map[models.UsageResource]int64{
			models.ResourceMonthlyEvents: 0,
		},
		Limits: map[models.UsageResource]int64{
			models.ResourceMonthlyEvents: 1000,
		},
	}

	for _, override := range overrides {
		override(sub)
	}

	return sub
}

// WithPlan sets the subscription plan name.
func WithPlan(plan string) func(*models.Subscription) {
	return func(s *models.Subscription) {
		s.Plan = plan
	}
}

// WithUsage sets one usage counter.
func WithUsage(resource models.UsageResource, usage int64) func(*models.Subscription) {
	return func(s *models.Subscription) {
		s.Usage[resource] = usage
	}
}

// WithLimit sets one limit.
func WithLimit(resource models.UsageResource, limit int64) func(*models.Subscription) {
	return func(s *models.Subscription) {
		s.Limits[resource] = limit
	}
}
