package entity

import (
	"encoding/json"
	"strings"
	"time"
)

// NodeType identifies the kind of a workflow node.
type NodeType string

const (
	NodeTrigger   NodeType = "trigger"
	NodeMessage   NodeType = "message"
	NodeInput     NodeType = "input"
	NodeButton    NodeType = "button"
	NodeMenu      NodeType = "menu"
	NodeCondition NodeType = "condition"
	NodeLoop      NodeType = "loop"
	NodeDelay     NodeType = "delay"
)

// Node is one step of a workflow graph. Data carries the type-specific
// payload as the authoring UI ships it; it is decoded into a typed payload
// when the graph is compiled.
type Node struct {
	ID   string          `json:"id"`
	Type NodeType        `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Edge connects two nodes. SourceHandle disambiguates fan-out:
// "option-{i}" for button/menu branches, "true"/"false" for conditions,
// empty for single-successor nodes.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target"`
}

// WorkflowSettings is the per-workflow configuration surface.
type WorkflowSettings struct {
	SessionTimeoutMinutes int  `json:"session_timeout_minutes" bson:"session_timeout_minutes"`
	ResetOnInactivity     bool `json:"reset_on_inactivity" bson:"reset_on_inactivity"`
}

// WorkflowDefinition is a published conversation flow. Once activated it is
// immutable; re-publishing replaces it with a new version.
type WorkflowDefinition struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Nodes          []Node           `json:"nodes"`
	Edges          []Edge           `json:"edges"`
	TriggerKeyword string           `json:"trigger_keyword"`
	IsActive       bool             `json:"is_active"`
	Settings       WorkflowSettings `json:"settings"`
	CreatedAt      time.Time        `json:"created_at"`
	ActivatedAt    time.Time        `json:"activated_at"`
}

// Keywords splits the comma-separated trigger keyword list into normalized
// (trimmed, lowercased) entries. Empty entries are dropped.
func (w *WorkflowDefinition) Keywords() []string {
	parts := strings.Split(w.TriggerKeyword, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		k := strings.ToLower(strings.TrimSpace(p))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// DecodeNodes parses the nodes payload from the authoring UI. The builder
// historically double-encodes nodes as a JSON string inside the record, so
// both the string and the plain array form are accepted.
func DecodeNodes(raw json.RawMessage) ([]Node, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}
	var nodes []Node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// DecodeEdges parses the edges payload from the authoring UI, accepting the
// same double-encoded form as DecodeNodes.
func DecodeEdges(raw json.RawMessage) ([]Edge, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}
	var edges []Edge
	if err := json.Unmarshal(raw, &edges); err != nil {
		return nil, err
	}
	return edges, nil
}
