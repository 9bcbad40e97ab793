package workflow

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"AgentFlow/bot/flow"
	"AgentFlow/entity"
	"AgentFlow/internal/lib/api/response"
	"AgentFlow/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// PublishRequest is the payload from the workflow builder. Nodes and edges
// arrive either as JSON arrays or as JSON-encoded strings; both are accepted.
type PublishRequest struct {
	Name           string           `json:"name"`
	Nodes          json.RawMessage  `json:"nodes"`
	Edges          json.RawMessage  `json:"edges"`
	TriggerKeyword string           `json:"triggerKeyword"`
	IsActive       bool             `json:"isActive"`
	Settings       *workflowOptions `json:"settings,omitempty"`
}

type workflowOptions struct {
	SessionTimeoutMinutes int  `json:"sessionTimeout"`
	ResetOnInactivity     bool `json:"resetOnInactivity"`
}

// Publish validates and activates a workflow. Graph validation failures
// block activation with a 422; invalid workflows never enter the active set.
// With a URL id this is a re-publish that replaces the existing version.
func Publish(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.workflow"))

		var req PublishRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}

		if req.Name == "" || req.TriggerKeyword == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Name and trigger keyword are required"))
			return
		}

		nodes, err := entity.DecodeNodes(req.Nodes)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid nodes payload"))
			return
		}
		edges, err := entity.DecodeEdges(req.Edges)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid edges payload"))
			return
		}

		def := &entity.WorkflowDefinition{
			ID:             chi.URLParam(r, "id"),
			Name:           req.Name,
			Nodes:          nodes,
			Edges:          edges,
			TriggerKeyword: req.TriggerKeyword,
			IsActive:       req.IsActive,
		}
		if req.Settings != nil {
			def.Settings = entity.WorkflowSettings{
				SessionTimeoutMinutes: req.Settings.SessionTimeoutMinutes,
				ResetOnInactivity:     req.Settings.ResetOnInactivity,
			}
		}

		saved, err := handler.PublishWorkflow(r.Context(), def)
		if err != nil {
			var vErr *flow.GraphValidationError
			if errors.As(err, &vErr) {
				logger.Warn("workflow rejected", slog.String("name", req.Name), sl.Err(err))
				render.Status(r, http.StatusUnprocessableEntity)
				render.JSON(w, r, response.Error(vErr.Error()))
				return
			}
			logger.Error("publishing workflow", slog.String("name", req.Name), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to publish workflow"))
			return
		}

		logger.Info("workflow published",
			slog.String("workflow_id", saved.ID),
			slog.String("name", saved.Name),
		)
		render.JSON(w, r, response.OK(saved))
	}
}
