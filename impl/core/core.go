package core

import (
	"AgentFlow/entity"
	"AgentFlow/internal/lib/sl"
	"context"
	"log/slog"
	"sync"
)

type Repository interface {
	CheckApiKey(key string) (string, error)

	SaveWorkflow(ctx context.Context, def *entity.WorkflowDefinition) error
	LoadWorkflow(ctx context.Context, id string) (*entity.WorkflowDefinition, error)
	ListActiveWorkflows(ctx context.Context) ([]*entity.WorkflowDefinition, error)
	DeactivateWorkflow(ctx context.Context, id string) error
}

type Engine interface {
	HandleIncomingText(ctx context.Context, contactID, text string) error
	HandleSelection(ctx context.Context, contactID string, selection int) error
	GetActiveSession(ctx context.Context, contactID string) (*entity.Session, error)
	Reset(ctx context.Context, contactID string) error
	InvalidateGraph(workflowID string)
}

type Core struct {
	repo    Repository
	engine  Engine
	authKey string
	keys    map[string]string
	keysMu  sync.Mutex
	log     *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		log:  log.With(sl.Module("core")),
		keys: make(map[string]string),
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetEngine(engine Engine) {
	c.engine = engine
}

func (c *Core) SetAuthKey(key string) {
	c.authKey = key
}
