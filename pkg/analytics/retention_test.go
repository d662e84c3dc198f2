package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence/memory"
	"github.com/nudgekit/nudgekit/pkg/testutil"
)

func TestRunRetention(t *testing.T) {
	store := memory.NewPersistence()
	repo := store.ExecutionEventRepository()

	old := &models.ExecutionEvent{
		SiteID:     "site-1",
		WorkflowID: "wf-1",
		VisitorID:  "visitor-1",
		RunID:      "run-old",
		NodeID:     "t",
		Kind:       models.EventKindTrigger,
		Timestamp:  time.Now().UTC().Add(-48 * time.Hour),
	}
	fresh := &models.ExecutionEvent{
		SiteID:     "site-1",
		WorkflowID: "wf-1",
		VisitorID:  "visitor-1",
		RunID:      "run-new",
		NodeID:     "t",
		Kind:       models.EventKindTrigger,
		Timestamp:  time.Now().UTC(),
	}
	require.NoError(t, repo.Append(t.Context(), old))
	require.NoError(t, repo.Append(t.Context(), fresh))

	m := NewMaintenance(repo, store.SubscriptionRepository(), 24, testLogger())
	m.RunRetention(t.Context())

	remaining, err := repo.Query(t.Context(), "wf-1", models.DateRange{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "run-new", remaining[0].RunID)
}

func TestRunMonthlyReset(t *testing.T) {
	store := memory.NewPersistence()
	store.AddSubscription(testutil.CreateTestSubscription(
		testutil.WithUsage(models.ResourceMonthlyEvents, 800),
	))

	m := NewMaintenance(
		store.ExecutionEventRepository(),
		store.SubscriptionRepository(),
		DefaultRetentionHours,
		testLogger(),
	)
	m.RunMonthlyReset(t.Context())

	sub, err := store.SubscriptionRepository().Subscription(t.Context(), "account-1")
	require.NoError(t, err)
	assert.Zero(t, sub.Usage[models.ResourceMonthlyEvents])
}
