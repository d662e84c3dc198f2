// Package models defines the core domain models for visitor behavior automation.
package models

// NodeKind represents the role a node plays in a workflow graph.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"   // Workflow entry, matched against browser events
	NodeKindCondition NodeKind = "condition" // Boolean gate, evaluated in graph order
	NodeKindAction    NodeKind = "action"    // Side effect or client directive
)

// Built-in trigger node types. Matching against browser events is by exact
// type equality, no fuzzy matching.
const (
	NodeTypePageView     = "Page View"
	NodeTypeTimeSpent    = "Time Spent"
	NodeTypeExitIntent   = "Exit Intent"
	NodeTypeScrollDepth  = "Scroll Depth"
	NodeTypeElementClick = "Element Click"
	NodeTypeCustomEvent  = "Custom Event"
)

// Built-in condition node types.
const (
	NodeTypeURLPath      = "URL Path"
	NodeTypeDeviceType   = "Device Type"
	NodeTypeNewReturning = "New vs Returning"
	NodeTypeTag          = "Tag"
	NodeTypeTimeWindow   = "Time Window"
)

// Built-in action node types.
const (
	NodeTypeAddTag     = "Add Tag"
	NodeTypeRemoveTag  = "Remove Tag"
	NodeTypeSendEmail  = "Send Email"
	NodeTypeWebhook    = "Webhook"
	NodeTypeShowModal  = "Show Modal"
	NodeTypeShowBanner = "Show Banner"
	NodeTypeTrackEvent = "Track Event"
)

// WorkflowNode is a node instance in a workflow graph. Settings carry the
// per-type payload (URL patterns, tag names, email templates, ...).
type WorkflowNode struct {
	ID       string         `json:"id"       validate:"required"`
	Kind     NodeKind       `json:"kind"     validate:"required,oneof=trigger condition action"`
	Type     string         `json:"type"     validate:"required"`
	Name     string         `json:"name"`
	Settings map[string]any `json:"settings"`
	Enabled  bool           `json:"enabled"`
}

func (n *WorkflowNode) IsTrigger() bool   { return n.Kind == NodeKindTrigger }
func (n *WorkflowNode) IsCondition() bool { return n.Kind == NodeKindCondition }
func (n *WorkflowNode) IsAction() bool    { return n.Kind == NodeKindAction }

// SettingString reads a string-valued settings field, returning "" when the
// field is absent or not a string.
func (n *WorkflowNode) SettingString(key string) string {
	v, _ := n.Settings[key].(string)

	return v
}

// SettingFloat reads a numeric settings field. JSON decoding yields float64
// for numbers, settings built in code may carry int.
func (n *WorkflowNode) SettingFloat(key string) (float64, bool) {
	switch v := n.Settings[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// Connection is a successor edge between two nodes of the same workflow.
type Connection struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}
