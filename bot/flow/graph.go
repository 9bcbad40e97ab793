package flow

import (
	"AgentFlow/entity"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// compiledNode is a workflow node with its payload decoded and its outgoing
// edges resolved into lookup tables, so the traversal path never parses
// strings or re-decodes payloads.
type compiledNode struct {
	node     entity.Node
	payload  any
	out      []entity.Edge     // declaration order
	byHandle map[string]string // source handle -> target node id
}

// Graph is a validated, immutable compiled form of a WorkflowDefinition.
// It is read-only during execution; republishing produces a new Graph.
type Graph struct {
	def   *entity.WorkflowDefinition
	nodes map[string]*compiledNode
	start string
	// stepBudget bounds a single traversal. Sized by graph size times the
	// iterations every loop node admits, so nested loops run to completion
	// while a runaway walk still terminates.
	stepBudget int
}

// Compile decodes, validates and indexes a workflow definition. It returns a
// *GraphValidationError for any structural problem; invalid workflows must
// never enter the active set.
func Compile(def *entity.WorkflowDefinition) (*Graph, error) {
	g := &Graph{
		def:   def,
		nodes: make(map[string]*compiledNode, len(def.Nodes)),
	}

	if len(def.Nodes) == 0 {
		return nil, &GraphValidationError{Reason: "workflow has no nodes"}
	}

	for _, n := range def.Nodes {
		if n.ID == "" {
			return nil, &GraphValidationError{Reason: "node without id"}
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, &GraphValidationError{NodeID: n.ID, Reason: "duplicate node id"}
		}
		payload, err := entity.DecodeNodeData(n)
		if err != nil {
			return nil, &GraphValidationError{NodeID: n.ID, Reason: err.Error()}
		}
		if err := validate.Struct(payload); err != nil {
			return nil, &GraphValidationError{NodeID: n.ID, Reason: "invalid node data: " + err.Error()}
		}
		g.nodes[n.ID] = &compiledNode{
			node:     n,
			payload:  payload,
			byHandle: make(map[string]string),
		}
	}

	for _, e := range def.Edges {
		src, ok := g.nodes[e.Source]
		if !ok {
			return nil, &GraphValidationError{EdgeID: e.ID, Reason: "edge source does not exist: " + e.Source}
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return nil, &GraphValidationError{EdgeID: e.ID, Reason: "edge target does not exist: " + e.Target}
		}
		src.out = append(src.out, e)
		if e.SourceHandle != "" {
			if _, dup := src.byHandle[e.SourceHandle]; !dup {
				src.byHandle[e.SourceHandle] = e.Target
			}
		}
	}

	if err := g.checkStructure(); err != nil {
		return nil, err
	}

	g.stepBudget = stepBudget(g)

	return g, nil
}

// stepBudget computes the traversal bound for a compiled graph: base graph
// size multiplied by (count+1) for every loop node, since nested loops
// multiply body passes. Clamped so pathological graphs cannot overflow.
func stepBudget(g *Graph) int {
	const maxBudget = 1 << 30

	budget := (len(g.nodes) + 1) * 64
	for _, n := range g.nodes {
		d, ok := n.payload.(entity.LoopData)
		if !ok {
			continue
		}
		budget *= d.Count + 1
		if budget <= 0 || budget > maxBudget {
			return maxBudget
		}
	}
	return budget
}

// Definition returns the workflow definition this graph was compiled from.
func (g *Graph) Definition() *entity.WorkflowDefinition {
	return g.def
}

// Start returns the id of the trigger node.
func (g *Graph) Start() string {
	return g.start
}

// next resolves the single-successor edge of a node. When a non-branching
// node unexpectedly has several outgoing edges, the first declared edge wins.
func (g *Graph) next(nodeID string) (string, bool) {
	n, ok := g.nodes[nodeID]
	if !ok || len(n.out) == 0 {
		return "", false
	}
	return n.out[0].Target, true
}

// handleTarget resolves a branch edge by its source handle.
func (g *Graph) handleTarget(nodeID, handle string) (string, bool) {
	n, ok := g.nodes[nodeID]
	if !ok {
		return "", false
	}
	target, ok := n.byHandle[handle]
	return target, ok
}
