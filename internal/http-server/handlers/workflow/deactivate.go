package workflow

import (
	"log/slog"
	"net/http"

	"AgentFlow/internal/lib/api/response"
	"AgentFlow/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Deactivate removes a workflow from the active set. Running sessions keep
// their compiled graph until they finish.
func Deactivate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Workflow id is required"))
			return
		}

		if err := handler.DeactivateWorkflow(r.Context(), id); err != nil {
			log.Error("deactivating workflow", slog.String("workflow_id", id), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to deactivate workflow"))
			return
		}
		render.JSON(w, r, response.OK(nil))
	}
}
