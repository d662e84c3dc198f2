package tag

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence/memory"
	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/testutil"
)

func testInput() protocol.ActionInput {
	return protocol.ActionInput{
		Node:  testutil.CreateTestNode(),
		RunID: "run-1",
		Visitor: &models.VisitorContext{
			SiteID:    "site-1",
			VisitorID: "visitor-1",
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAction_RequiresTagName(t *testing.T) {
	store := memory.NewPersistence()

	_, err := NewAction(OpAdd, map[string]any{}, store.VisitorTagRepository())
	assert.ErrorIs(t, err, ErrTagNameRequired)

	_, err = NewAction(OpAdd, map[string]any{"tagName": ""}, store.VisitorTagRepository())
	assert.ErrorIs(t, err, ErrTagNameRequired)
}

func TestAddTag_Idempotent(t *testing.T) {
	store := memory.NewPersistence()
	tags := store.VisitorTagRepository()

	action, err := NewAction(OpAdd, map[string]any{"tagName": "vip"}, tags)
	require.NoError(t, err)

	for range 3 {
		_, err = action.Execute(t.Context(), testInput(), testLogger())
		require.NoError(t, err)
	}

	stored, err := tags.Tags(t.Context(), "site-1", "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"vip"}, stored)
}

func TestRemoveTag(t *testing.T) {
	store := memory.NewPersistence()
	tags := store.VisitorTagRepository()

	require.NoError(t, tags.AddTag(t.Context(), "site-1", "visitor-1", "vip"))

	action, err := NewAction(OpRemove, map[string]any{"tagName": "vip"}, tags)
	require.NoError(t, err)

	_, err = action.Execute(t.Context(), testInput(), testLogger())
	require.NoError(t, err)

	stored, err := tags.Tags(t.Context(), "site-1", "visitor-1")
	require.NoError(t, err)
	assert.Empty(t, stored)

	// Removing an absent tag is a no-op, not an error.
	_, err = action.Execute(t.Context(), testInput(), testLogger())
	assert.NoError(t, err)
}
