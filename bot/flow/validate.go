package flow

import (
	"fmt"

	"AgentFlow/entity"
)

// GraphValidationError describes a malformed or incomplete workflow graph.
// It blocks activation and is surfaced to the publishing caller.
type GraphValidationError struct {
	NodeID string
	EdgeID string
	Reason string
}

func (e *GraphValidationError) Error() string {
	switch {
	case e.NodeID != "":
		return fmt.Sprintf("invalid workflow graph: node %s: %s", e.NodeID, e.Reason)
	case e.EdgeID != "":
		return fmt.Sprintf("invalid workflow graph: edge %s: %s", e.EdgeID, e.Reason)
	default:
		return "invalid workflow graph: " + e.Reason
	}
}

// checkStructure runs the activation-time graph checks: exactly one trigger,
// branch nodes carry their required edges, and every cycle passes through a
// loop node.
func (g *Graph) checkStructure() error {
	triggers := 0
	for id, n := range g.nodes {
		switch n.node.Type {
		case entity.NodeTrigger:
			triggers++
			g.start = id
		case entity.NodeCondition:
			if _, ok := n.byHandle[HandleTrue]; !ok {
				return &GraphValidationError{NodeID: id, Reason: "condition node has no true edge"}
			}
			if _, ok := n.byHandle[HandleFalse]; !ok {
				return &GraphValidationError{NodeID: id, Reason: "condition node has no false edge"}
			}
		case entity.NodeLoop:
			if len(n.out) != 2 {
				return &GraphValidationError{NodeID: id, Reason: fmt.Sprintf("loop node needs a body and an exit edge, has %d", len(n.out))}
			}
		}
	}
	if triggers != 1 {
		return &GraphValidationError{Reason: fmt.Sprintf("workflow must have exactly one trigger node, has %d", triggers)}
	}

	return g.checkCycles()
}

// checkCycles rejects cycles that do not pass through a loop node. Loop nodes
// are the only sanctioned back-edge points, so the walk simply never enters
// them: any cycle left over is unbounded.
func (g *Graph) checkCycles() error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))

	var visit func(id string) *GraphValidationError
	visit = func(id string) *GraphValidationError {
		color[id] = grey
		for _, e := range g.nodes[id].out {
			if g.nodes[e.Target].node.Type == entity.NodeLoop {
				continue
			}
			switch color[e.Target] {
			case grey:
				return &GraphValidationError{EdgeID: e.ID, Reason: "cycle without a loop node"}
			case white:
				if err := visit(e.Target); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for id, n := range g.nodes {
		if n.node.Type == entity.NodeLoop {
			continue
		}
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
