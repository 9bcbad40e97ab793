package entity

import "time"

// TimerRecord is a persisted one-shot delay timer. Delay waits may span
// arbitrary real time, so the due time must survive process restarts; the
// Fired flag makes replay-after-restart fire each timer exactly once.
type TimerRecord struct {
	ID         string    `json:"id" bson:"_id"`
	ContactID  string    `json:"contact_id" bson:"contact_id"`
	WorkflowID string    `json:"workflow_id" bson:"workflow_id"`
	NodeID     string    `json:"node_id" bson:"node_id"`
	DueAt      time.Time `json:"due_at" bson:"due_at"`
	Fired      bool      `json:"fired" bson:"fired"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
