package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nudgekit/nudgekit/pkg/eventbus"
	"github.com/nudgekit/nudgekit/pkg/events"
)

const (
	// maxRetries is the number of re-attempts after the first failure, five
	// attempts total.
	maxRetries       = 4
	initialBackoff   = 1 * time.Second
	maxBackoff       = 20 * time.Second
	deadLetterWindow = 10 * time.Second
)

// Worker consumes dispatch messages off the queue and executes them with
// exponential backoff. Exhausted dispatches go to the dead letter topic and
// the message is acked: redelivering a poisoned dispatch forever would stall
// the partition.
type Worker struct {
	bus      eventbus.EventBus
	executor *Executor
	logger   *slog.Logger
}

func NewWorker(bus eventbus.EventBus, executor *Executor, logger *slog.Logger) *Worker {
	return &Worker{
		bus:      bus,
		executor: executor,
		logger:   logger.With("module", "worker"),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	err := w.bus.Handle(events.ActionDispatchEvent, w.handleDispatch)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Action worker subscribing", "topic", events.DispatchTopic)

	return w.bus.Subscribe(ctx)
}

func (w *Worker) handleDispatch(ctx context.Context, event any) error {
	msg, ok := event.(*events.ActionDispatch)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	if err := msg.Validate(); err != nil {
		w.logger.ErrorContext(ctx, "Dropping malformed dispatch", "error", err, "event_id", msg.ID)

		return nil
	}

	backoff := retry.WithMaxRetries(maxRetries,
		retry.WithCappedDuration(maxBackoff,
			retry.NewExponential(initialBackoff)))

	attempts := 0

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		msg.Attempt = attempts

		// Display dispatches never reach the queue, so the result carries
		// no directive to deliver; the outcome event is the record.
		_, execErr := w.executor.Execute(ctx, msg)
		if execErr != nil {
			w.logger.WarnContext(ctx, "Action attempt failed",
				"error", execErr,
				"run_id", msg.RunID,
				"node_id", msg.NodeID,
				"attempt", attempts)

			return retry.RetryableError(execErr)
		}

		return nil
	})
	if err != nil {
		w.deadLetter(ctx, msg, err, attempts)
	}

	return nil
}

func (w *Worker) deadLetter(ctx context.Context, msg *events.ActionDispatch, cause error, attempts int) {
	w.logger.ErrorContext(ctx, "Dispatch exhausted retries, dead-lettering",
		"error", cause,
		"run_id", msg.RunID,
		"node_id", msg.NodeID,
		"attempts", attempts)

	now := time.Now().UTC()
	letter := events.ActionDeadLetter{
		BaseEvent: events.BaseEvent{
			ID:         w.bus.GenerateID(),
			Type:       events.ActionDeadLetterEvent,
			Timestamp:  now,
			WorkflowID: msg.WorkflowID,
		},
		Dispatch: *msg,
		Error:    cause.Error(),
		Attempts: attempts,
		FailedAt: now,
	}

	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deadLetterWindow)
	defer cancel()

	if err := w.bus.Publish(dlqCtx, msg.WorkflowID, letter); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish dead letter",
			"error", err,
			"run_id", msg.RunID,
			"node_id", msg.NodeID)
	}
}
