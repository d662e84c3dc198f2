// Package dispatch routes matched action nodes to execution: through the
// queue when the broker accepts the message in time, synchronously in the
// request path otherwise.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nudgekit/nudgekit/pkg/events"
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/otelhelper"
	"github.com/nudgekit/nudgekit/pkg/persistence"
	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/registry"
)

// Executor runs one action node and records the outcome in the execution
// log. Both the queue worker and the synchronous fallback share it.
type Executor struct {
	workflows persistence.WorkflowRepository
	eventLog  persistence.ExecutionEventRepository
	registry  *registry.Registry
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewExecutor(
	workflows persistence.WorkflowRepository,
	eventLog persistence.ExecutionEventRepository,
	reg *registry.Registry,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		workflows: workflows,
		eventLog:  eventLog,
		registry:  reg,
		tracer:    noop.NewTracerProvider().Tracer("executor"),
		logger:    logger.With("module", "executor"),
	}
}

// WithTracer replaces the no-op tracer, used when OTEL export is enabled.
func (e *Executor) WithTracer(tracer trace.Tracer) *Executor {
	e.tracer = tracer

	return e
}

// Execute runs the action named by the dispatch and appends the outcome
// event. The returned result carries any client directive; the error is the
// action failure, already recorded in the log.
func (e *Executor) Execute(ctx context.Context, msg *events.ActionDispatch) (*protocol.ActionResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "action.execute",
		attribute.String(otelhelper.WorkflowIDKey, msg.WorkflowID),
		attribute.String(otelhelper.RunIDKey, msg.RunID),
		attribute.String(otelhelper.NodeIDKey, msg.NodeID),
		attribute.String(otelhelper.VisitorIDKey, msg.Visitor.VisitorID),
	)
	defer span.End()

	workflow, err := e.workflows.WorkflowByID(ctx, msg.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("loading workflow %s: %w", msg.WorkflowID, err)
	}

	node := workflow.Node(msg.NodeID)
	if node == nil {
		return nil, fmt.Errorf("workflow %s has no node %s", msg.WorkflowID, msg.NodeID)
	}

	action, err := e.registry.CreateAction(node.Type, node.Settings)
	if err != nil {
		e.record(ctx, msg, node, false, err.Error(), 0)

		return nil, fmt.Errorf("creating action for node %s: %w", msg.NodeID, err)
	}

	input := protocol.ActionInput{
		Workflow: workflow,
		Node:     node,
		RunID:    msg.RunID,
		Visitor:  &msg.Visitor,
	}

	start := time.Now()
	result, execErr := action.Execute(ctx, input, e.logger)
	elapsed := time.Since(start).Milliseconds()

	if execErr != nil {
		otelhelper.SetError(span, execErr,
			attribute.String(otelhelper.NodeTypeKey, node.Type))
		e.record(ctx, msg, node, false, execErr.Error(), elapsed)

		return nil, execErr
	}

	detail := ""
	if result != nil {
		detail = result.Detail
	}

	e.record(ctx, msg, node, true, detail, elapsed)

	return result, nil
}

func (e *Executor) record(ctx context.Context, msg *events.ActionDispatch, node *models.WorkflowNode, success bool, detail string, elapsedMs int64) {
	event := &models.ExecutionEvent{
		ID:              uuid.NewString(),
		SiteID:          msg.Visitor.SiteID,
		WorkflowID:      msg.WorkflowID,
		VisitorID:       msg.Visitor.VisitorID,
		RunID:           msg.RunID,
		NodeID:          node.ID,
		NodeName:        node.Name,
		NodeType:        node.Type,
		Kind:            models.EventKindAction,
		StepOrder:       msg.StepOrder,
		Timestamp:       time.Now().UTC(),
		Success:         success,
		Detail:          detail,
		ExecutionTimeMs: elapsedMs,
	}

	if err := e.eventLog.Append(ctx, event); err != nil {
		// The action already ran: losing the log entry must not fail or
		// re-run the action.
		e.logger.ErrorContext(ctx, "Failed to append action event",
			"error", err,
			"run_id", msg.RunID,
			"node_id", node.ID)
	}
}
