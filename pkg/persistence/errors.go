// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrVisitorNotFound indicates no record exists for the (site, visitor) pair.
	ErrVisitorNotFound = errors.New("visitor not found")

	// ErrSubscriptionNotFound indicates no subscription exists for the account.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrEventNotFound indicates an execution event was not found.
	ErrEventNotFound = errors.New("execution event not found")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "ActiveWorkflows", "WorkflowByID")
	WorkflowID string // Workflow ID if applicable
	SiteID     string // Site ID if applicable
	Err        error  // Underlying error
}

func (e *WorkflowError) Error() string {
	target := e.WorkflowID
	if target == "" {
		target = fmt.Sprintf("site %s", e.SiteID)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, target, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{Op: op, WorkflowID: workflowID, Err: err}
}

// TagError wraps visitor tag store errors with additional context.
type TagError struct {
	Op        string
	SiteID    string
	VisitorID string
	Tag       string
	Err       error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("%s operation failed for visitor %s/%s tag %q: %v", e.Op, e.SiteID, e.VisitorID, e.Tag, e.Err)
}

func (e *TagError) Unwrap() error {
	return e.Err
}

func (e *TagError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsSubscriptionNotFound checks if an error indicates a missing subscription.
func IsSubscriptionNotFound(err error) bool {
	return errors.Is(err, ErrSubscriptionNotFound)
}

// IsNotFound checks for any of the not-found sentinels. Events racing ahead
// of definition propagation are treated as no-ops, not hard failures.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrVisitorNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrEventNotFound)
}
