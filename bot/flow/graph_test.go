package flow

import (
	"encoding/json"
	"testing"

	"AgentFlow/entity"

	"github.com/stretchr/testify/require"
)

func testNode(id string, typ entity.NodeType, data string) entity.Node {
	return entity.Node{ID: id, Type: typ, Data: json.RawMessage(data)}
}

func testEdge(source, handle, target string) entity.Edge {
	return entity.Edge{ID: source + "->" + target, Source: source, SourceHandle: handle, Target: target}
}

func testDef(nodes []entity.Node, edges []entity.Edge) *entity.WorkflowDefinition {
	return &entity.WorkflowDefinition{
		ID:    "wf-1",
		Name:  "test",
		Nodes: nodes,
		Edges: edges,
	}
}

func TestCompile_ValidGraph(t *testing.T) {
	t.Parallel()

	g, err := Compile(testDef(
		[]entity.Node{
			testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`),
			testNode("msg", entity.NodeMessage, `{"label":"Welcome"}`),
		},
		[]entity.Edge{testEdge("start", "", "msg")},
	))
	require.NoError(t, err)
	require.Equal(t, "start", g.Start())

	target, ok := g.next("start")
	require.True(t, ok)
	require.Equal(t, "msg", target)
}

func TestCompile_StructuralErrors(t *testing.T) {
	t.Parallel()

	trigger := testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`)
	msg := testNode("msg", entity.NodeMessage, `{"label":"Welcome"}`)

	tests := []struct {
		name   string
		nodes  []entity.Node
		edges  []entity.Edge
		reason string
	}{
		{
			name:   "empty graph",
			reason: "no nodes",
		},
		{
			name:   "no trigger",
			nodes:  []entity.Node{msg},
			reason: "exactly one trigger",
		},
		{
			name: "two triggers",
			nodes: []entity.Node{
				trigger,
				testNode("start2", entity.NodeTrigger, `{"triggerKeyword":"yo"}`),
			},
			reason: "exactly one trigger",
		},
		{
			name: "duplicate node id",
			nodes: []entity.Node{
				trigger,
				testNode("msg", entity.NodeMessage, `{"label":"a"}`),
				testNode("msg", entity.NodeMessage, `{"label":"b"}`),
			},
			reason: "duplicate node id",
		},
		{
			name:  "edge to missing node",
			nodes: []entity.Node{trigger, msg},
			edges: []entity.Edge{testEdge("start", "", "ghost")},
			reason: "edge target does not exist",
		},
		{
			name: "condition missing false branch",
			nodes: []entity.Node{
				trigger,
				testNode("cond", entity.NodeCondition, `{"variable":"x","operator":"equals","value":"1"}`),
				msg,
			},
			edges: []entity.Edge{
				testEdge("start", "", "cond"),
				testEdge("cond", HandleTrue, "msg"),
			},
			reason: "no false edge",
		},
		{
			name: "loop with a single edge",
			nodes: []entity.Node{
				trigger,
				testNode("loop", entity.NodeLoop, `{"count":3}`),
				msg,
			},
			edges: []entity.Edge{
				testEdge("start", "", "loop"),
				testEdge("loop", "", "msg"),
			},
			reason: "body and an exit edge",
		},
		{
			name: "button without options",
			nodes: []entity.Node{
				trigger,
				testNode("btn", entity.NodeButton, `{"label":"Pick one","options":[]}`),
			},
			edges:  []entity.Edge{testEdge("start", "", "btn")},
			reason: "invalid node data",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Compile(testDef(tc.nodes, tc.edges))
			require.Error(t, err)
			var verr *GraphValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, err.Error(), tc.reason)
		})
	}
}

func TestCompile_CycleWithoutLoopNodeRejected(t *testing.T) {
	t.Parallel()

	_, err := Compile(testDef(
		[]entity.Node{
			testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`),
			testNode("a", entity.NodeMessage, `{"label":"a"}`),
			testNode("b", entity.NodeMessage, `{"label":"b"}`),
		},
		[]entity.Edge{
			testEdge("start", "", "a"),
			testEdge("a", "", "b"),
			testEdge("b", "", "a"),
		},
	))
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle without a loop node")
}

func TestCompile_CycleThroughLoopNodeAccepted(t *testing.T) {
	t.Parallel()

	_, err := Compile(testDef(
		[]entity.Node{
			testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`),
			testNode("loop", entity.NodeLoop, `{"count":3}`),
			testNode("body", entity.NodeMessage, `{"label":"again"}`),
			testNode("done", entity.NodeMessage, `{"label":"done"}`),
		},
		[]entity.Edge{
			testEdge("start", "", "loop"),
			testEdge("loop", "", "body"),
			testEdge("loop", "", "done"),
			testEdge("body", "", "loop"),
		},
	))
	require.NoError(t, err)
}
