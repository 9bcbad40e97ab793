package core

import (
	"AgentFlow/entity"
	"context"
	"fmt"
)

func (c *Core) HandleIncomingText(ctx context.Context, contactID, text string) error {
	if c.engine == nil {
		return fmt.Errorf("not set Engine")
	}
	return c.engine.HandleIncomingText(ctx, contactID, text)
}

func (c *Core) HandleSelection(ctx context.Context, contactID string, selection int) error {
	if c.engine == nil {
		return fmt.Errorf("not set Engine")
	}
	return c.engine.HandleSelection(ctx, contactID, selection)
}

func (c *Core) GetActiveSession(ctx context.Context, contactID string) (*entity.Session, error) {
	if c.engine == nil {
		return nil, fmt.Errorf("not set Engine")
	}
	return c.engine.GetActiveSession(ctx, contactID)
}

func (c *Core) ResetSession(ctx context.Context, contactID string) error {
	if c.engine == nil {
		return fmt.Errorf("not set Engine")
	}
	return c.engine.Reset(ctx, contactID)
}
