package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence/memory"
)

func seedSummaryEvents(t *testing.T, store *memory.Persistence, workflowID string) {
	t.Helper()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	append := func(kind models.EventKind, nodeID string, success bool, at time.Time, durationMs int64) {
		err := store.ExecutionEventRepository().Append(t.Context(), &models.ExecutionEvent{
			SiteID:          "site-1",
			WorkflowID:      workflowID,
			VisitorID:       "visitor-1",
			RunID:           "run-" + nodeID + at.Format("150405"),
			NodeID:          nodeID,
			NodeName:        nodeID,
			NodeType:        "Test",
			Kind:            kind,
			Timestamp:       at,
			Success:         success,
			ExecutionTimeMs: durationMs,
		})
		require.NoError(t, err)
	}

	// Three triggers across two days, two successful actions, one failed.
	append(models.EventKindTrigger, "t", true, base, 0)
	append(models.EventKindAction, "a", true, base.Add(time.Second), 120)
	append(models.EventKindTrigger, "t", true, base.Add(time.Hour), 0)
	append(models.EventKindAction, "a", false, base.Add(time.Hour+time.Second), 80)
	append(models.EventKindTrigger, "t", true, base.Add(24*time.Hour), 0)
	append(models.EventKindAction, "a", true, base.Add(24*time.Hour+time.Second), 100)
}

func TestWorkflowSummary(t *testing.T) {
	store := memory.NewPersistence()
	seedSummaryEvents(t, store, "wf-1")

	agg := NewAggregator(store.WorkflowRepository(), store.ExecutionEventRepository(), testLogger())

	summary, err := agg.WorkflowSummary(t.Context(), "wf-1", models.DateRange{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalTriggers)
	// Only successful actions count.
	assert.Equal(t, 2, summary.TotalActions)
	assert.InDelta(t, 2.0/3.0, summary.ConversionRate, 1e-9)

	require.Len(t, summary.Daily, 2)
	assert.Equal(t, "2026-08-01", summary.Daily[0].Date)
	assert.Equal(t, 2, summary.Daily[0].Triggers)
	assert.Equal(t, 1, summary.Daily[0].Completions)

	assert.NotEmpty(t, summary.Hourly)
	assert.NotEmpty(t, summary.RecentEvents)
}

func TestWorkflowSummary_Empty(t *testing.T) {
	store := memory.NewPersistence()
	agg := NewAggregator(store.WorkflowRepository(), store.ExecutionEventRepository(), testLogger())

	summary, err := agg.WorkflowSummary(t.Context(), "wf-none", models.DateRange{})
	require.NoError(t, err)

	assert.Zero(t, summary.TotalTriggers)
	assert.Zero(t, summary.ConversionRate)
}

func TestNodePerformance(t *testing.T) {
	store := memory.NewPersistence()
	seedSummaryEvents(t, store, "wf-1")

	agg := NewAggregator(store.WorkflowRepository(), store.ExecutionEventRepository(), testLogger())

	perf, err := agg.NodePerformance(t.Context(), "wf-1", models.DateRange{})
	require.NoError(t, err)
	require.Len(t, perf, 2)

	// Both nodes ran three times; ties break by node id.
	assert.Equal(t, "a", perf[0].NodeID)
	assert.Equal(t, 3, perf[0].Executions)
	assert.Equal(t, 2, perf[0].Successes)
	assert.InDelta(t, 2.0/3.0, perf[0].SuccessRate, 1e-9)
	assert.Equal(t, int64(100), perf[0].AvgDurationMs)

	assert.Equal(t, "t", perf[1].NodeID)
	assert.InDelta(t, 1.0, perf[1].SuccessRate, 1e-9)
}

func TestTypeBreakdown(t *testing.T) {
	store := memory.NewPersistence()
	seedSummaryEvents(t, store, "wf-1")

	agg := NewAggregator(store.WorkflowRepository(), store.ExecutionEventRepository(), testLogger())

	triggers, err := agg.TypeBreakdown(t.Context(), "wf-1", models.EventKindTrigger, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, 3, triggers[0].Count)

	actions, err := agg.TypeBreakdown(t.Context(), "wf-1", models.EventKindAction, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	// Breakdown counts executions regardless of outcome.
	assert.Equal(t, 3, actions[0].Count)
}

func TestActivity_Pagination(t *testing.T) {
	store := memory.NewPersistence()
	seedSummaryEvents(t, store, "wf-1")

	agg := NewAggregator(store.WorkflowRepository(), store.ExecutionEventRepository(), testLogger())

	page, err := agg.Activity(t.Context(), "wf-1", 4, 0)
	require.NoError(t, err)

	assert.Len(t, page.Events, 4)
	assert.Equal(t, int64(6), page.TotalCount)
	assert.True(t, page.HasMore)

	// Newest first.
	for i := 1; i < len(page.Events); i++ {
		assert.False(t, page.Events[i].Timestamp.After(page.Events[i-1].Timestamp))
	}

	last, err := agg.Activity(t.Context(), "wf-1", 4, 4)
	require.NoError(t, err)
	assert.Len(t, last.Events, 2)
	assert.False(t, last.HasMore)
}
