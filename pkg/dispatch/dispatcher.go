package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/nudgekit/nudgekit/pkg/eventbus"
	"github.com/nudgekit/nudgekit/pkg/events"
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/protocol"
)

const (
	// enqueueTimeout bounds how long the request path waits for the broker
	// before falling back to synchronous execution.
	enqueueTimeout = 1 * time.Second
	// syncTimeout bounds the fallback execution itself.
	syncTimeout = 5 * time.Second
)

// Outcome reports how a dispatch left the request path.
type Outcome struct {
	Queued bool
	// Directive is only populated when the action ran inline: display
	// actions always do, other actions only on the broker fallback.
	Directive *protocol.ClientDirective
	Err       error
}

// Dispatcher prefers the queue and degrades to inline execution when the
// broker is slow or down. The fallback runs the action exactly once, without
// retries, so a broker outage degrades latency rather than dropping actions.
type Dispatcher struct {
	bus      eventbus.EventPublisher
	executor *Executor
	logger   *slog.Logger
}

func NewDispatcher(bus eventbus.EventPublisher, executor *Executor, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		bus:      bus,
		executor: executor,
		logger:   logger.With("module", "dispatcher"),
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg *events.ActionDispatch) Outcome {
	// Display actions only produce a client directive, and a worker has no
	// channel back to the visitor's browser. They always run inline so the
	// directive rides the event response.
	if isDisplay(msg.NodeType) {
		return d.executeInline(ctx, msg)
	}

	enqueueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()

	err := d.bus.Publish(enqueueCtx, msg.WorkflowID, *msg)
	if err == nil {
		return Outcome{Queued: true}
	}

	d.logger.WarnContext(ctx, "Enqueue failed, executing action synchronously",
		"error", err,
		"run_id", msg.RunID,
		"node_id", msg.NodeID)

	return d.executeInline(ctx, msg)
}

func (d *Dispatcher) executeInline(ctx context.Context, msg *events.ActionDispatch) Outcome {
	syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), syncTimeout)
	defer cancel()

	result, execErr := d.executor.Execute(syncCtx, msg)

	outcome := Outcome{Err: execErr}
	if result != nil {
		outcome.Directive = result.Directive
	}

	return outcome
}

func isDisplay(nodeType string) bool {
	return nodeType == models.NodeTypeShowModal || nodeType == models.NodeTypeShowBanner
}
