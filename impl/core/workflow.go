package core

import (
	"AgentFlow/bot/flow"
	"AgentFlow/entity"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PublishWorkflow validates and stores a workflow definition, making it the
// active version for its trigger keywords. The definition is compiled first
// so a structurally broken graph never reaches the database.
func (c *Core) PublishWorkflow(ctx context.Context, def *entity.WorkflowDefinition) (*entity.WorkflowDefinition, error) {
	if _, err := flow.Compile(def); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if def.ID == "" {
		def.ID = uuid.NewString()
		def.CreatedAt = now
	} else {
		prev, err := c.repo.LoadWorkflow(ctx, def.ID)
		if err != nil {
			return nil, fmt.Errorf("load previous version: %w", err)
		}
		if prev != nil {
			def.CreatedAt = prev.CreatedAt
		} else {
			def.CreatedAt = now
		}
	}
	if def.IsActive {
		def.ActivatedAt = now
	}

	if err := c.repo.SaveWorkflow(ctx, def); err != nil {
		return nil, fmt.Errorf("save workflow: %w", err)
	}

	if c.engine != nil {
		c.engine.InvalidateGraph(def.ID)
	}

	c.log.With(
		slog.String("workflow_id", def.ID),
		slog.String("name", def.Name),
		slog.Bool("active", def.IsActive),
	).Info("workflow published")

	return def, nil
}

func (c *Core) ListActiveWorkflows(ctx context.Context) ([]*entity.WorkflowDefinition, error) {
	return c.repo.ListActiveWorkflows(ctx)
}

func (c *Core) DeactivateWorkflow(ctx context.Context, id string) error {
	if err := c.repo.DeactivateWorkflow(ctx, id); err != nil {
		return err
	}
	if c.engine != nil {
		c.engine.InvalidateGraph(id)
	}
	c.log.With(slog.String("workflow_id", id)).Info("workflow deactivated")
	return nil
}
