package session

import (
	"log/slog"
	"net/http"

	"AgentFlow/internal/lib/api/response"
	"AgentFlow/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Get returns a contact's active session, 404 when there is none.
func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contactID := chi.URLParam(r, "contactId")

		s, err := handler.GetActiveSession(r.Context(), contactID)
		if err != nil {
			log.Error("loading session", slog.String("contact_id", contactID), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to load session"))
			return
		}
		if s == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("No active session"))
			return
		}
		render.JSON(w, r, response.OK(s))
	}
}
