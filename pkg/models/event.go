package models

import "time"

// BrowserEvent is an inbound event from the tracker script. Type names the
// trigger family it may activate ("Page View", "Exit Intent", ...). NodeHint
// optionally pins the event to one node, used by the client-driven triggers
// that already know which workflow node fired.
type BrowserEvent struct {
	SiteID    string         `json:"site_id"    validate:"required"`
	VisitorID string         `json:"visitor_id" validate:"required"`
	Type      string         `json:"type"       validate:"required"`
	NodeHint  string         `json:"node_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`

	// Context forwarded by the tracker, never persisted client-side.
	IdentifiedUser *IdentifiedUser   `json:"identified_user,omitempty"`
	LocalStorage   map[string]string `json:"local_storage,omitempty"`
	Device         DeviceFacts       `json:"device,omitempty"`
}

// Page returns the current page path carried in the payload.
func (e *BrowserEvent) Page() string {
	p, _ := e.Payload["path"].(string)

	return p
}

// EventKind classifies an execution event by the node role that produced it.
type EventKind string

const (
	EventKindTrigger   EventKind = "trigger"
	EventKindCondition EventKind = "condition"
	EventKindAction    EventKind = "action"
	EventKindCustom    EventKind = "custom" // Track Event action output
)

// ExecutionEvent is the immutable, append-only record of one node outcome.
// RunID groups all events of one trigger-to-completion attempt; StepOrder is
// the node's position in the workflow's canonical ordering.
type ExecutionEvent struct {
	ID              string         `json:"id"`
	SiteID          string         `json:"site_id"`
	WorkflowID      string         `json:"workflow_id"`
	VisitorID       string         `json:"visitor_id"`
	RunID           string         `json:"run_id"`
	NodeID          string         `json:"node_id"`
	NodeName        string         `json:"node_name"`
	NodeType        string         `json:"node_type"`
	Kind            EventKind      `json:"kind"`
	StepOrder       int            `json:"step_order"`
	Timestamp       time.Time      `json:"timestamp"`
	Success         bool           `json:"success"`
	Detail          string         `json:"detail,omitempty"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Payload         map[string]any `json:"payload,omitempty"`
}

// RunState is the per-run lifecycle. Every state transitions exactly once per
// run; ConditionFailed and Failed are absorbing.
type RunState string

const (
	RunTriggered         RunState = "triggered"
	RunConditionsPassing RunState = "conditions_passing"
	RunConditionFailed   RunState = "condition_failed"
	RunActionDispatched  RunState = "action_dispatched"
	RunCompleted         RunState = "completed"
	RunFailed            RunState = "failed"
)

var runTransitions = map[RunState][]RunState{
	RunTriggered:         {RunConditionsPassing},
	RunConditionsPassing: {RunActionDispatched, RunConditionFailed},
	RunActionDispatched:  {RunCompleted, RunFailed},
}

// CanTransition reports whether the run state machine permits moving from
// one state to another.
func (s RunState) CanTransition(to RunState) bool {
	for _, next := range runTransitions[s] {
		if next == to {
			return true
		}
	}

	return false
}

// Terminal reports whether the state is absorbing.
func (s RunState) Terminal() bool {
	return len(runTransitions[s]) == 0
}
