package entity

import "time"

// AwaitingKind is the reason a session is currently suspended.
type AwaitingKind string

const (
	AwaitNone   AwaitingKind = "none"
	AwaitInput  AwaitingKind = "input"
	AwaitChoice AwaitingKind = "choice"
	AwaitTimer  AwaitingKind = "timer"
)

// Awaiting describes what a suspended session is waiting for. NodeID pins
// the wait to the node that created it so stale replies can be detected.
type Awaiting struct {
	Kind     AwaitingKind `json:"kind" bson:"kind"`
	NodeID   string       `json:"node_id,omitempty" bson:"node_id,omitempty"`
	Variable string       `json:"variable,omitempty" bson:"variable,omitempty"`
	Handles  []string     `json:"handles,omitempty" bson:"handles,omitempty"`
	TimerID  string       `json:"timer_id,omitempty" bson:"timer_id,omitempty"`
}

// Session is the live execution state of one contact's walk through one
// workflow graph. At most one active session exists per contact.
type Session struct {
	ContactID      string            `json:"contact_id" bson:"contact_id"`
	WorkflowID     string            `json:"workflow_id" bson:"workflow_id"`
	CurrentNodeID  string            `json:"current_node_id" bson:"current_node_id"`
	Context        map[string]string `json:"context" bson:"context"`
	Awaiting       Awaiting          `json:"awaiting" bson:"awaiting"`
	LoopCounters   map[string]int    `json:"loop_counters" bson:"loop_counters"`
	ChoiceRetries  int               `json:"choice_retries" bson:"choice_retries"`
	Stalled        bool              `json:"stalled" bson:"stalled"`
	LastActivityAt time.Time         `json:"last_activity_at" bson:"last_activity_at"`
	CreatedAt      time.Time         `json:"created_at" bson:"created_at"`
}

// NewSession creates a session positioned at the workflow's trigger node.
func NewSession(contactID, workflowID, startNodeID string) *Session {
	now := time.Now()
	return &Session{
		ContactID:      contactID,
		WorkflowID:     workflowID,
		CurrentNodeID:  startNodeID,
		Context:        make(map[string]string),
		Awaiting:       Awaiting{Kind: AwaitNone},
		LoopCounters:   make(map[string]int),
		LastActivityAt: now,
		CreatedAt:      now,
	}
}

// SetVar stores a captured value in the session context.
func (s *Session) SetVar(key, value string) {
	if s.Context == nil {
		s.Context = make(map[string]string)
	}
	s.Context[key] = value
}

// Var returns the context value for key, or "" when unbound.
func (s *Session) Var(key string) string {
	return s.Context[key]
}

// ClearAwaiting resets the suspension state after a resume.
func (s *Session) ClearAwaiting() {
	s.Awaiting = Awaiting{Kind: AwaitNone}
	s.ChoiceRetries = 0
}
