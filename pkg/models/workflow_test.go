package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, kind NodeKind) *WorkflowNode {
	return &WorkflowNode{ID: id, Kind: kind, Type: "Test", Name: id, Enabled: true}
}

func edge(id, source, target string) *Connection {
	return &Connection{ID: id, SourceID: source, TargetID: target}
}

func TestCanonicalOrder_Chain(t *testing.T) {
	w := &Workflow{
		Nodes: []*WorkflowNode{
			node("t", NodeKindTrigger),
			node("c", NodeKindCondition),
			node("a", NodeKindAction),
		},
		Connections: []*Connection{
			edge("e1", "t", "c"),
			edge("e2", "c", "a"),
		},
	}

	order := w.CanonicalOrder()
	assert.Equal(t, map[string]int{"t": 0, "c": 1, "a": 2}, order)
}

func TestCanonicalOrder_BranchesBreadthFirst(t *testing.T) {
	// t fans out to two branches; siblings get consecutive orders before
	// either branch's children.
	w := &Workflow{
		Nodes: []*WorkflowNode{
			node("t", NodeKindTrigger),
			node("b1", NodeKindCondition),
			node("b2", NodeKindCondition),
			node("a1", NodeKindAction),
			node("a2", NodeKindAction),
		},
		Connections: []*Connection{
			edge("e1", "t", "b1"),
			edge("e2", "t", "b2"),
			edge("e3", "b1", "a1"),
			edge("e4", "b2", "a2"),
		},
	}

	order := w.CanonicalOrder()
	assert.Equal(t, 0, order["t"])
	assert.Equal(t, 1, order["b1"])
	assert.Equal(t, 2, order["b2"])
	assert.Equal(t, 3, order["a1"])
	assert.Equal(t, 4, order["a2"])
}

func TestCanonicalOrder_StableAcrossConnectionOrder(t *testing.T) {
	nodes := []*WorkflowNode{
		node("t", NodeKindTrigger),
		node("b1", NodeKindCondition),
		node("b2", NodeKindCondition),
	}

	forward := &Workflow{Nodes: nodes, Connections: []*Connection{
		edge("e1", "t", "b1"),
		edge("e2", "t", "b2"),
	}}
	reversed := &Workflow{Nodes: nodes, Connections: []*Connection{
		edge("e2", "t", "b2"),
		edge("e1", "t", "b1"),
	}}

	assert.Equal(t, forward.CanonicalOrder(), reversed.CanonicalOrder())
}

func TestCanonicalOrder_UnreachableNodeExcluded(t *testing.T) {
	w := &Workflow{
		Nodes: []*WorkflowNode{
			node("t", NodeKindTrigger),
			node("orphan", NodeKindAction),
		},
	}

	order := w.CanonicalOrder()
	require.Len(t, order, 1)
	assert.NotContains(t, order, "orphan")
}

func TestValidateGraph(t *testing.T) {
	valid := &Workflow{
		Nodes: []*WorkflowNode{
			node("t", NodeKindTrigger),
			node("a", NodeKindAction),
		},
		Connections: []*Connection{edge("e1", "t", "a")},
	}
	assert.NoError(t, valid.ValidateGraph())
}

func TestValidateGraph_NoTrigger(t *testing.T) {
	w := &Workflow{Nodes: []*WorkflowNode{node("a", NodeKindAction)}}
	assert.ErrorIs(t, w.ValidateGraph(), ErrNoTriggerNode)

	// A disabled trigger does not count.
	disabled := node("t", NodeKindTrigger)
	disabled.Enabled = false
	w.Nodes = append(w.Nodes, disabled)
	assert.ErrorIs(t, w.ValidateGraph(), ErrNoTriggerNode)
}

func TestValidateGraph_DanglingEdge(t *testing.T) {
	w := &Workflow{
		Nodes:       []*WorkflowNode{node("t", NodeKindTrigger)},
		Connections: []*Connection{edge("e1", "t", "ghost")},
	}
	assert.ErrorIs(t, w.ValidateGraph(), ErrDanglingEdge)
}

func TestValidateGraph_TriggerWithPredecessor(t *testing.T) {
	w := &Workflow{
		Nodes: []*WorkflowNode{
			node("t", NodeKindTrigger),
			node("a", NodeKindAction),
		},
		Connections: []*Connection{edge("e1", "a", "t")},
	}
	assert.ErrorIs(t, w.ValidateGraph(), ErrTriggerHasInput)
}

func TestValidateGraph_Cycle(t *testing.T) {
	w := &Workflow{
		Nodes: []*WorkflowNode{
			node("t", NodeKindTrigger),
			node("a", NodeKindAction),
			node("b", NodeKindAction),
		},
		Connections: []*Connection{
			edge("e1", "t", "a"),
			edge("e2", "a", "b"),
			edge("e3", "b", "a"),
		},
	}
	assert.ErrorIs(t, w.ValidateGraph(), ErrGraphCycle)
}

func TestRunStateTransitions(t *testing.T) {
	assert.True(t, RunTriggered.CanTransition(RunConditionsPassing))
	assert.True(t, RunConditionsPassing.CanTransition(RunConditionFailed))
	assert.True(t, RunActionDispatched.CanTransition(RunCompleted))
	assert.True(t, RunActionDispatched.CanTransition(RunFailed))

	// ConditionFailed is absorbing.
	assert.False(t, RunConditionFailed.CanTransition(RunActionDispatched))
	assert.False(t, RunConditionFailed.CanTransition(RunCompleted))

	// No skipping forward.
	assert.False(t, RunTriggered.CanTransition(RunActionDispatched))
	assert.False(t, RunCompleted.CanTransition(RunTriggered))
}
