package entity

import "time"

// SessionEventType classifies engine lifecycle events for operators.
type SessionEventType string

const (
	SessionStarted    SessionEventType = "session_started"
	SessionSuspended  SessionEventType = "session_suspended"
	SessionTerminated SessionEventType = "session_terminated"
	SessionStalled    SessionEventType = "session_stalled"
	SendFailed        SessionEventType = "send_failed"
)

// SessionEvent is broadcast to operator dashboards over the WebSocket hub.
// A terminated or stalled session stops producing automated messages; these
// events are how that becomes visible.
type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	ContactID  string           `json:"contact_id"`
	WorkflowID string           `json:"workflow_id,omitempty"`
	NodeID     string           `json:"node_id,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Time       time.Time        `json:"time"`
}
