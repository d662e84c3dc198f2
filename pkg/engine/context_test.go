package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence/memory"
	"github.com/nudgekit/nudgekit/pkg/testutil"
)

func TestResolve(t *testing.T) {
	store := memory.NewPersistence()
	resolver := NewContextResolver(
		store.VisitorTagRepository(),
		store.ExecutionEventRepository(),
		testLogger(),
	)

	require.NoError(t, store.VisitorTagRepository().AddTag(t.Context(), "site-1", "visitor-1", "vip"))

	event := testutil.CreateTestEvent(testutil.WithPage("/pricing"))
	event.IdentifiedUser = &models.IdentifiedUser{Email: "jane@example.com"}
	event.LocalStorage = map[string]string{"cart_total": "49.90"}

	visitor, err := resolver.Resolve(t.Context(), event)
	require.NoError(t, err)

	assert.Equal(t, "site-1", visitor.SiteID)
	assert.Equal(t, "visitor-1", visitor.VisitorID)
	assert.Equal(t, "/pricing", visitor.Page)
	assert.Equal(t, []string{"vip"}, visitor.Tags)
	assert.Equal(t, "jane@example.com", visitor.IdentifiedUser.Email)
	assert.Equal(t, "49.90", visitor.LocalStorage["cart_total"])
	assert.False(t, visitor.Returning)
}

func TestResolve_ReturningAfterFirstRun(t *testing.T) {
	store := memory.NewPersistence()
	resolver := NewContextResolver(
		store.VisitorTagRepository(),
		store.ExecutionEventRepository(),
		testLogger(),
	)

	event := testutil.CreateTestEvent()

	visitor, err := resolver.Resolve(t.Context(), event)
	require.NoError(t, err)
	assert.False(t, visitor.Returning)

	// Any prior execution event on this site marks the visitor returning.
	require.NoError(t, store.ExecutionEventRepository().Append(t.Context(), &models.ExecutionEvent{
		SiteID:     "site-1",
		WorkflowID: "wf-1",
		VisitorID:  "visitor-1",
		RunID:      "run-1",
		NodeID:     "t",
		Kind:       models.EventKindTrigger,
		Timestamp:  time.Now().UTC(),
		Success:    true,
	}))

	visitor, err = resolver.Resolve(t.Context(), event)
	require.NoError(t, err)
	assert.True(t, visitor.Returning)

	// History is per site.
	other := testutil.CreateTestEvent(testutil.WithEventSite("site-2"))
	visitor, err = resolver.Resolve(t.Context(), other)
	require.NoError(t, err)
	assert.False(t, visitor.Returning)
}
