package session

import (
	"context"

	"AgentFlow/entity"
)

// Core is the engine surface the session handlers need.
type Core interface {
	GetActiveSession(ctx context.Context, contactID string) (*entity.Session, error)
	ResetSession(ctx context.Context, contactID string) error
}
