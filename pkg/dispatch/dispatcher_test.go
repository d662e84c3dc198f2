package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgekit/nudgekit/pkg/actions/display"
	"github.com/nudgekit/nudgekit/pkg/actions/tag"
	"github.com/nudgekit/nudgekit/pkg/eventbus"
	"github.com/nudgekit/nudgekit/pkg/events"
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence/memory"
	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/registry"
	"github.com/nudgekit/nudgekit/pkg/testutil"
)

type stubPublisher struct {
	err       error
	published []eventbus.Event
}

func (p *stubPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	if p.err != nil {
		return p.err
	}

	p.published = append(p.published, event)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExecutor(t *testing.T) (*Executor, *memory.Persistence, *models.Workflow) {
	t.Helper()

	store := memory.NewPersistence()

	trigger := testutil.CreateTestNode(testutil.WithTrigger(), testutil.WithID("t"))
	action := testutil.CreateTestNode(
		testutil.WithID("a"),
		testutil.WithSettings(map[string]any{"tagName": "dispatched"}),
	)
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(trigger, action),
		testutil.WithChain("t", "a"),
	)
	store.AddWorkflow(workflow)

	logger := testLogger()
	reg := registry.NewRegistry(logger)
	reg.RegisterAction(tag.NewAddTagFactory(store.VisitorTagRepository()))

	executor := NewExecutor(
		store.WorkflowRepository(),
		store.ExecutionEventRepository(),
		reg,
		logger,
	)

	return executor, store, workflow
}

func dispatchFor(workflow *models.Workflow, nodeID string) *events.ActionDispatch {
	return &events.ActionDispatch{
		BaseEvent: events.BaseEvent{WorkflowID: workflow.ID},
		RunID:     "run-1",
		NodeID:    nodeID,
		StepOrder: 1,
		Visitor: models.VisitorContext{
			SiteID:    "site-1",
			VisitorID: "visitor-1",
		},
	}
}

func TestDispatch_QueuesWhenBrokerHealthy(t *testing.T) {
	executor, store, workflow := newTestExecutor(t)
	bus := &stubPublisher{}
	dispatcher := NewDispatcher(bus, executor, testLogger())

	outcome := dispatcher.Dispatch(t.Context(), dispatchFor(workflow, "a"))

	assert.True(t, outcome.Queued)
	assert.NoError(t, outcome.Err)
	assert.Nil(t, outcome.Directive)
	require.Len(t, bus.published, 1)

	// Queued means not executed on the request path.
	tags, err := store.VisitorTagRepository().Tags(t.Context(), "site-1", "visitor-1")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestDispatch_FallsBackToSyncOnPublishError(t *testing.T) {
	executor, store, workflow := newTestExecutor(t)
	bus := &stubPublisher{err: errors.New("broker down")}
	dispatcher := NewDispatcher(bus, executor, testLogger())

	outcome := dispatcher.Dispatch(t.Context(), dispatchFor(workflow, "a"))

	assert.False(t, outcome.Queued)
	assert.NoError(t, outcome.Err)

	tags, err := store.VisitorTagRepository().Tags(t.Context(), "site-1", "visitor-1")
	require.NoError(t, err)
	assert.Contains(t, tags, "dispatched")

	// The sync path records the action event itself.
	logged, err := store.ExecutionEventRepository().Query(t.Context(), workflow.ID, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.True(t, logged[0].Success)
	assert.Equal(t, models.EventKindAction, logged[0].Kind)
}

func TestDispatch_DisplayActionsRunInline(t *testing.T) {
	store := memory.NewPersistence()

	trigger := testutil.CreateTestNode(testutil.WithTrigger(), testutil.WithID("t"))
	modal := testutil.CreateTestNode(
		testutil.WithID("m"),
		testutil.WithType(models.NodeTypeShowModal),
		testutil.WithName("Show Modal"),
		testutil.WithSettings(map[string]any{"title": "Welcome back"}),
	)
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(trigger, modal),
		testutil.WithChain("t", "m"),
	)
	store.AddWorkflow(workflow)

	logger := testLogger()
	reg := registry.NewRegistry(logger)
	reg.RegisterAction(display.ModalFactory{})

	executor := NewExecutor(
		store.WorkflowRepository(),
		store.ExecutionEventRepository(),
		reg,
		logger,
	)

	// The broker is healthy, but a display dispatch must still bypass the
	// queue: a worker cannot hand the directive back to the browser.
	bus := &stubPublisher{}
	dispatcher := NewDispatcher(bus, executor, logger)

	msg := dispatchFor(workflow, "m")
	msg.NodeType = models.NodeTypeShowModal

	outcome := dispatcher.Dispatch(t.Context(), msg)

	assert.False(t, outcome.Queued)
	assert.NoError(t, outcome.Err)
	require.NotNil(t, outcome.Directive)
	assert.Equal(t, protocol.DirectiveModal, outcome.Directive.Kind)
	assert.Equal(t, "Welcome back", outcome.Directive.Settings["title"])
	assert.Empty(t, bus.published)

	logged, err := store.ExecutionEventRepository().Query(t.Context(), workflow.ID, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.True(t, logged[0].Success)
}

func TestDispatch_SyncFallbackReportsActionError(t *testing.T) {
	executor, store, workflow := newTestExecutor(t)

	// Empty settings make the tag action fail at execution time.
	workflow.Node("a").Settings = map[string]any{}

	bus := &stubPublisher{err: errors.New("broker down")}
	dispatcher := NewDispatcher(bus, executor, testLogger())

	outcome := dispatcher.Dispatch(t.Context(), dispatchFor(workflow, "a"))

	assert.False(t, outcome.Queued)
	assert.Error(t, outcome.Err)

	logged, err := store.ExecutionEventRepository().Query(t.Context(), workflow.ID, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.False(t, logged[0].Success)
}

func TestExecute_UnknownNode(t *testing.T) {
	executor, _, workflow := newTestExecutor(t)

	_, err := executor.Execute(t.Context(), dispatchFor(workflow, "ghost"))
	assert.Error(t, err)
}

func TestExecute_UnknownWorkflow(t *testing.T) {
	executor, _, _ := newTestExecutor(t)

	msg := &events.ActionDispatch{
		BaseEvent: events.BaseEvent{WorkflowID: "missing"},
		RunID:     "run-1",
		NodeID:    "a",
		Visitor:   models.VisitorContext{SiteID: "site-1", VisitorID: "visitor-1"},
	}

	_, err := executor.Execute(t.Context(), msg)
	assert.Error(t, err)
}
