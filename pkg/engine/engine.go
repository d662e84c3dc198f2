// Package engine is the per-event workflow execution core: trigger matching,
// condition evaluation, quota gating, and action dispatch for one inbound
// browser event.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nudgekit/nudgekit/pkg/dispatch"
	"github.com/nudgekit/nudgekit/pkg/events"
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/quota"
)

// Engine processes one browser event end to end. Each inbound event runs on
// its own goroutine; the engine holds no per-run state between events.
type Engine struct {
	workflows  persistence.WorkflowRepository
	eventLog   persistence.ExecutionEventRepository
	resolver   *ContextResolver
	conditions *ConditionEvaluator
	gate       *quota.Gate
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

func New(
	store persistence.Persistence,
	gate *quota.Gate,
	dispatcher *dispatch.Dispatcher,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		workflows:  store.WorkflowRepository(),
		eventLog:   store.ExecutionEventRepository(),
		resolver:   NewContextResolver(store.VisitorTagRepository(), store.ExecutionEventRepository(), logger),
		conditions: NewConditionEvaluator(store.VisitorTagRepository(), logger),
		gate:       gate,
		dispatcher: dispatcher,
		logger:     logger.With("module", "engine"),
	}
}

// RunResult summarizes one workflow run started by an event.
type RunResult struct {
	RunID      string                      `json:"run_id"`
	WorkflowID string                      `json:"workflow_id"`
	State      models.RunState             `json:"state"`
	Directives []*protocol.ClientDirective `json:"directives,omitempty"`
}

// ProcessEvent matches the event against the site's active workflows and
// executes every activated run. Node-level failures are recorded in the
// execution log, never returned: the only errors surfaced here are store
// failures that prevent processing at all.
func (e *Engine) ProcessEvent(ctx context.Context, event *models.BrowserEvent) ([]RunResult, error) {
	workflows, err := e.workflows.ActiveWorkflows(ctx, event.SiteID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("loading active workflows for site %s: %w", event.SiteID, err)
	}

	matches := MatchTriggers(event, workflows)
	if len(matches) == 0 {
		return nil, nil
	}

	visitor, err := e.resolver.Resolve(ctx, event)
	if err != nil {
		return nil, err
	}

	results := make([]RunResult, 0, len(matches))

	for _, match := range matches {
		results = append(results, e.executeRun(ctx, match, visitor))
	}

	return results, nil
}

// run tracks the state of one trigger-to-completion attempt while the graph
// is walked.
type run struct {
	id       string
	workflow *models.Workflow
	order    map[string]int
	visitor  *models.VisitorContext
	state    models.RunState

	dispatched bool
	failed     bool
	directives []*protocol.ClientDirective
}

func (e *Engine) executeRun(ctx context.Context, match TriggerMatch, visitor *models.VisitorContext) RunResult {
	r := &run{
		id:       uuid.NewString(),
		workflow: match.Workflow,
		order:    match.Workflow.CanonicalOrder(),
		visitor:  visitor,
		state:    models.RunTriggered,
	}

	e.logger.DebugContext(ctx, "Run triggered",
		"run_id", r.id,
		"workflow_id", r.workflow.ID,
		"trigger", match.Trigger.Type,
		"visitor_id", visitor.VisitorID)

	e.appendEvent(ctx, r, match.Trigger, models.EventKindTrigger, true, "trigger matched", 0)
	e.transition(ctx, r, models.RunConditionsPassing)

	for _, next := range r.workflow.Successors(match.Trigger.ID) {
		e.walkPath(ctx, r, next)
	}

	e.finishRun(ctx, r)

	return RunResult{
		RunID:      r.id,
		WorkflowID: r.workflow.ID,
		State:      r.state,
		Directives: r.directives,
	}
}

// walkPath executes one branch of the graph. Branches fan out independently:
// a failing condition short-circuits its own path only.
func (e *Engine) walkPath(ctx context.Context, r *run, node *models.WorkflowNode) {
	if !node.Enabled {
		for _, next := range r.workflow.Successors(node.ID) {
			e.walkPath(ctx, r, next)
		}

		return
	}

	switch node.Kind {
	case models.NodeKindCondition:
		start := time.Now()
		passed, detail := e.conditions.Evaluate(ctx, node, r.visitor)
		e.appendEvent(ctx, r, node, models.EventKindCondition, passed, detail, time.Since(start).Milliseconds())

		if !passed {
			// Short-circuit: nothing downstream of this node runs.
			e.transition(ctx, r, models.RunConditionFailed)

			return
		}

	case models.NodeKindAction:
		if !e.dispatchAction(ctx, r, node) {
			return
		}

	case models.NodeKindTrigger:
		// Triggers are entry points only; one appearing mid-graph is a
		// definition bug caught at activation time. Skip defensively.
		e.logger.WarnContext(ctx, "Trigger node encountered mid-graph",
			"workflow_id", r.workflow.ID,
			"node_id", node.ID)

		return
	}

	for _, next := range r.workflow.Successors(node.ID) {
		e.walkPath(ctx, r, next)
	}
}

// dispatchAction gates the action on quota and hands it to the dispatcher.
// Returns whether the walk may continue past this node.
func (e *Engine) dispatchAction(ctx context.Context, r *run, node *models.WorkflowNode) bool {
	if err := e.gate.Reserve(ctx, r.workflow.AccountID); err != nil {
		r.failed = true

		detail := "quota reservation failed: " + err.Error()
		if errors.Is(err, quota.ErrQuotaExceeded) {
			detail = err.Error()
		}

		e.appendEvent(ctx, r, node, models.EventKindAction, false, detail, 0)

		// The refused reservation still counts as the run's dispatch
		// attempt: the run takes the dispatch transition and finishRun
		// resolves it to Failed. There is no separate refused state.
		e.transition(ctx, r, models.RunActionDispatched)

		return false
	}

	e.transition(ctx, r, models.RunActionDispatched)

	msg := &events.ActionDispatch{
		BaseEvent: events.BaseEvent{
			ID:         uuid.NewString(),
			Type:       events.ActionDispatchEvent,
			Timestamp:  time.Now().UTC(),
			WorkflowID: r.workflow.ID,
		},
		RunID:     r.id,
		NodeID:    node.ID,
		NodeType:  node.Type,
		StepOrder: r.order[node.ID],
		Visitor:   *r.visitor,
	}

	outcome := e.dispatcher.Dispatch(ctx, msg)
	r.dispatched = true

	if outcome.Err != nil {
		// The executor already recorded the failure event.
		r.failed = true

		return false
	}

	if outcome.Directive != nil {
		r.directives = append(r.directives, outcome.Directive)
	}

	return true
}

// finishRun resolves the run to its terminal state. Branches fan out
// independently, so the first branch to reach a terminal state names the
// whole run: a sibling branch may still have dispatched an action after a
// condition branch failed, and its events are in the log either way.
func (e *Engine) finishRun(ctx context.Context, r *run) {
	switch {
	case r.state.Terminal():
		// ConditionFailed is absorbing.
	case r.state == models.RunActionDispatched && r.failed:
		e.transition(ctx, r, models.RunFailed)
	case r.state == models.RunActionDispatched:
		e.transition(ctx, r, models.RunCompleted)
	default:
		// Conditions all passed but no action node was reachable. The run
		// ends where it stands; there is no further transition to take.
		e.logger.DebugContext(ctx, "Run ended without actions",
			"run_id", r.id,
			"workflow_id", r.workflow.ID,
			"state", string(r.state))
	}
}

func (e *Engine) transition(ctx context.Context, r *run, to models.RunState) {
	if r.state == to || r.state.Terminal() {
		return
	}

	if !r.state.CanTransition(to) {
		e.logger.WarnContext(ctx, "Illegal run state transition",
			"run_id", r.id,
			"from", string(r.state),
			"to", string(to))

		return
	}

	r.state = to
}

func (e *Engine) appendEvent(ctx context.Context, r *run, node *models.WorkflowNode, kind models.EventKind, success bool, detail string, elapsedMs int64) {
	event := &models.ExecutionEvent{
		ID:              uuid.NewString(),
		SiteID:          r.visitor.SiteID,
		WorkflowID:      r.workflow.ID,
		VisitorID:       r.visitor.VisitorID,
		RunID:           r.id,
		NodeID:          node.ID,
		NodeName:        node.Name,
		NodeType:        node.Type,
		Kind:            kind,
		StepOrder:       r.order[node.ID],
		Timestamp:       time.Now().UTC(),
		Success:         success,
		Detail:          detail,
		ExecutionTimeMs: elapsedMs,
	}

	if err := e.eventLog.Append(ctx, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to append execution event",
			"error", err,
			"run_id", r.id,
			"node_id", node.ID)
	}
}
