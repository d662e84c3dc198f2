package display

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/protocol"
	"github.com/nudgekit/nudgekit/pkg/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testInput() protocol.ActionInput {
	return protocol.ActionInput{
		Node:  testutil.CreateTestNode(),
		RunID: "run-1",
		Visitor: &models.VisitorContext{
			SiteID:    "site-1",
			VisitorID: "visitor-1",
			IdentifiedUser: &models.IdentifiedUser{
				Name: "Jane",
			},
		},
	}
}

func TestExecute_EmitsModalDirective(t *testing.T) {
	action := NewAction(protocol.DirectiveModal, map[string]any{
		"title":       "Hello {{identifiedUser.name}}",
		"dismissible": true,
	})

	result, err := action.Execute(t.Context(), testInput(), testLogger())
	require.NoError(t, err)
	require.NotNil(t, result.Directive)

	assert.Equal(t, protocol.DirectiveModal, result.Directive.Kind)
	// String settings are rendered, other types pass through untouched.
	assert.Equal(t, "Hello Jane", result.Directive.Settings["title"])
	assert.Equal(t, true, result.Directive.Settings["dismissible"])
}

func TestExecute_EmitsBannerDirective(t *testing.T) {
	action := NewAction(protocol.DirectiveBanner, map[string]any{
		"message":  "Free shipping today",
		"position": "top",
	})

	result, err := action.Execute(t.Context(), testInput(), testLogger())
	require.NoError(t, err)
	require.NotNil(t, result.Directive)

	assert.Equal(t, protocol.DirectiveBanner, result.Directive.Kind)
	assert.Equal(t, "Free shipping today", result.Directive.Settings["message"])
}

func TestFactories(t *testing.T) {
	modal, err := ModalFactory{}.Create(map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.NotNil(t, modal)
	assert.Equal(t, models.NodeTypeShowModal, ModalFactory{}.ID())

	banner, err := BannerFactory{}.Create(map[string]any{"message": "y"})
	require.NoError(t, err)
	assert.NotNil(t, banner)
	assert.Equal(t, models.NodeTypeShowBanner, BannerFactory{}.ID())
}
