package events

import "context"

// Core is the engine surface the inbound event handlers need.
type Core interface {
	HandleIncomingText(ctx context.Context, contactID, text string) error
	HandleSelection(ctx context.Context, contactID string, selection int) error
}
