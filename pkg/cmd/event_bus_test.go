package cmd

import (
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgekit/nudgekit/pkg/dispatch"
	"github.com/nudgekit/nudgekit/pkg/engine"
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence/memory"
	"github.com/nudgekit/nudgekit/pkg/quota"
	"github.com/nudgekit/nudgekit/pkg/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInProcessProvider(t *testing.T) {
	assert.True(t, InProcessProvider("gochannel"))
	assert.True(t, InProcessProvider(""))
	assert.False(t, InProcessProvider("kafka"))
}

// Mirrors the engine binary's gochannel wiring: the process that publishes
// dispatches also runs the worker that drains them, so a queued action must
// land its side effect without any other process involved.
func TestGoChannelBus_QueuedActionsExecuteInProcess(t *testing.T) {
	logger := testLogger()

	store := memory.NewPersistence()
	store.AddSubscription(testutil.CreateTestSubscription())

	trigger := testutil.CreateTestNode(testutil.WithTrigger(), testutil.WithID("t"))
	action := testutil.CreateTestNode(
		testutil.WithID("a"),
		testutil.WithSettings(map[string]any{"tagName": "queued-tag"}),
	)
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(trigger, action),
		testutil.WithChain("t", "a"),
	)
	store.AddWorkflow(workflow)

	bus := NewEventBus("gochannel", "engine", logger)
	t.Cleanup(func() { _ = bus.Close() })

	reg := NewRegistry(logger, store, TransportConfig{Timeout: time.Second})
	executor := dispatch.NewExecutor(
		store.WorkflowRepository(),
		store.ExecutionEventRepository(),
		reg,
		logger,
	)

	worker := dispatch.NewWorker(bus, executor, logger)
	require.NoError(t, worker.Start(t.Context()))

	dispatcher := dispatch.NewDispatcher(bus, executor, logger)
	gate := quota.NewGate(store.SubscriptionRepository(), logger)
	eng := engine.New(store, gate, dispatcher, logger)

	results, err := eng.ProcessEvent(t.Context(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.RunCompleted, results[0].State)

	assert.Eventually(t, func() bool {
		tags, tagErr := store.VisitorTagRepository().Tags(t.Context(), "site-1", "visitor-1")

		return tagErr == nil && slices.Contains(tags, "queued-tag")
	}, 2*time.Second, 10*time.Millisecond, "queued action never executed")
}
