package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nudgekit/nudgekit/pkg/models"
)

func validDispatch() *ActionDispatch {
	return &ActionDispatch{
		BaseEvent: BaseEvent{WorkflowID: "wf-1"},
		RunID:     "run-1",
		NodeID:    "node-1",
		Visitor:   models.VisitorContext{SiteID: "site-1", VisitorID: "visitor-1"},
	}
}

func TestActionDispatchValidate(t *testing.T) {
	assert.NoError(t, validDispatch().Validate())

	mutations := []func(*ActionDispatch){
		func(d *ActionDispatch) { d.WorkflowID = "" },
		func(d *ActionDispatch) { d.RunID = "" },
		func(d *ActionDispatch) { d.NodeID = "" },
		func(d *ActionDispatch) { d.Visitor.SiteID = "" },
		func(d *ActionDispatch) { d.Visitor.VisitorID = "" },
	}

	for _, mutate := range mutations {
		d := validDispatch()
		mutate(d)
		assert.ErrorIs(t, d.Validate(), ErrInvalidDispatch)
	}
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, ActionDispatchEvent, ActionDispatch{}.GetType())
	assert.Equal(t, ActionDeadLetterEvent, ActionDeadLetter{}.GetType())
}
