package workflow

import (
	"log/slog"
	"net/http"

	"AgentFlow/internal/lib/api/response"
	"AgentFlow/internal/lib/sl"

	"github.com/go-chi/render"
)

// List returns all workflows in the active set.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defs, err := handler.ListActiveWorkflows(r.Context())
		if err != nil {
			log.Error("listing workflows", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to list workflows"))
			return
		}
		render.JSON(w, r, response.OK(defs))
	}
}
