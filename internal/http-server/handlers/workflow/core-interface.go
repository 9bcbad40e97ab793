package workflow

import (
	"context"

	"AgentFlow/entity"
)

// Core is the engine surface the workflow handlers need.
type Core interface {
	PublishWorkflow(ctx context.Context, def *entity.WorkflowDefinition) (*entity.WorkflowDefinition, error)
	ListActiveWorkflows(ctx context.Context) ([]*entity.WorkflowDefinition, error)
	DeactivateWorkflow(ctx context.Context, id string) error
}
