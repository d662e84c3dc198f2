package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "draft"  // Editable, never executed
	WorkflowStatusActive WorkflowStatus = "active" // Matched against live traffic
	WorkflowStatusPaused WorkflowStatus = "paused" // Kept, not executed
)

var (
	ErrNoTriggerNode   = errors.New("workflow has no enabled trigger node")
	ErrGraphCycle      = errors.New("workflow graph contains a cycle")
	ErrDanglingEdge    = errors.New("workflow connection references unknown node")
	ErrTriggerHasInput = errors.New("trigger node cannot have a predecessor")
)

// Workflow is a directed graph of trigger, condition, and action nodes owned
// by a site. The engine treats workflows as read-only: definition CRUD lives
// in an external service.
type Workflow struct {
	ID          string          `json:"id"`
	SiteID      string          `json:"site_id"     validate:"required"`
	AccountID   string          `json:"account_id"  validate:"required"`
	Name        string          `json:"name"        validate:"required,min=3"`
	Status      WorkflowStatus  `json:"status"      validate:"required"`
	Nodes       []*WorkflowNode `json:"nodes"`
	Connections []*Connection   `json:"connections"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// Node returns the node with the given id, or nil.
func (w *Workflow) Node(id string) *WorkflowNode {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// TriggerNodes returns the enabled trigger nodes. A workflow activates if any
// of its triggers match an event (OR semantics).
func (w *Workflow) TriggerNodes() []*WorkflowNode {
	var triggers []*WorkflowNode

	for _, n := range w.Nodes {
		if n.IsTrigger() && n.Enabled {
			triggers = append(triggers, n)
		}
	}

	return triggers
}

// Successors returns the nodes directly reachable from the given node,
// ordered by connection id for determinism.
func (w *Workflow) Successors(nodeID string) []*WorkflowNode {
	var edges []*Connection

	for _, c := range w.Connections {
		if c.SourceID == nodeID {
			edges = append(edges, c)
		}
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	succ := make([]*WorkflowNode, 0, len(edges))

	for _, c := range edges {
		if n := w.Node(c.TargetID); n != nil {
			succ = append(succ, n)
		}
	}

	return succ
}

// CanonicalOrder assigns each node its step order: a breadth-first index
// starting from the trigger nodes. The order is stable across executions and
// is what funnel reconstruction relies on, since execution events may arrive
// batched and out of order.
func (w *Workflow) CanonicalOrder() map[string]int {
	order := make(map[string]int, len(w.Nodes))

	queue := w.TriggerNodes()
	next := 0

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if _, seen := order[node.ID]; seen {
			continue
		}

		order[node.ID] = next
		next++

		queue = append(queue, w.Successors(node.ID)...)
	}

	return order
}

// ValidateGraph checks the structural invariants enforced at activation time,
// keeping the per-event hot path free of cycle checks: every connection
// resolves, at least one enabled trigger exists, triggers have no
// predecessors, and the graph is acyclic.
func (w *Workflow) ValidateGraph() error {
	if len(w.TriggerNodes()) == 0 {
		return ErrNoTriggerNode
	}

	for _, c := range w.Connections {
		if w.Node(c.SourceID) == nil || w.Node(c.TargetID) == nil {
			return fmt.Errorf("connection %s: %w", c.ID, ErrDanglingEdge)
		}

		if target := w.Node(c.TargetID); target.IsTrigger() {
			return fmt.Errorf("connection %s: %w", c.ID, ErrTriggerHasInput)
		}
	}

	return w.checkAcyclic()
}

func (w *Workflow) checkAcyclic() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)

	state := make(map[string]int, len(w.Nodes))

	var visit func(id string) error

	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("node %s: %w", id, ErrGraphCycle)
		case done:
			return nil
		}

		state[id] = visiting

		for _, succ := range w.Successors(id) {
			if err := visit(succ.ID); err != nil {
				return err
			}
		}

		state[id] = done

		return nil
	}

	for _, n := range w.Nodes {
		if err := visit(n.ID); err != nil {
			return err
		}
	}

	return nil
}
