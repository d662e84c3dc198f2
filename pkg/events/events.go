// Package events defines the queue message types exchanged between the
// engine and the action workers.
package events

import (
	"errors"
	"time"

	"github.com/nudgekit/nudgekit/pkg/models"
)

type EventType string

// Kafka topics.
const DispatchTopic = "nudgekit.action-dispatches"
const DeadLetterTopic = "nudgekit.action-dispatches.dlq"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ActionDispatchEvent   EventType = "action.dispatch"
	ActionDeadLetterEvent EventType = "action.dead-letter"
)

var ErrInvalidDispatch = errors.New("invalid action dispatch")

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ActionDispatch asks a worker to execute one action node. The run id plus
// node id form the dedupe key: delivery is at-least-once, so a worker seeing
// the same pair twice must treat the second as a no-op.
type ActionDispatch struct {
	BaseEvent

	RunID     string                `json:"run_id"`
	NodeID    string                `json:"node_id"`
	NodeType  string                `json:"node_type"`
	StepOrder int                   `json:"step_order"`
	Visitor   models.VisitorContext `json:"visitor"`
	Attempt   int                   `json:"attempt"`
}

func (a ActionDispatch) GetType() EventType {
	return ActionDispatchEvent
}

func (a *ActionDispatch) Validate() error {
	if a.WorkflowID == "" || a.RunID == "" || a.NodeID == "" {
		return ErrInvalidDispatch
	}

	if a.Visitor.SiteID == "" || a.Visitor.VisitorID == "" {
		return ErrInvalidDispatch
	}

	return nil
}

// ActionDeadLetter records a dispatch whose retries were exhausted. It keeps
// the original message so an operator can replay it.
type ActionDeadLetter struct {
	BaseEvent

	Dispatch ActionDispatch `json:"dispatch"`
	Error    string         `json:"error"`
	Attempts int            `json:"attempts"`
	FailedAt time.Time      `json:"failed_at"`
}

func (a ActionDeadLetter) GetType() EventType {
	return ActionDeadLetterEvent
}
