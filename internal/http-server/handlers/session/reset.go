package session

import (
	"log/slog"
	"net/http"

	"AgentFlow/internal/lib/api/response"
	"AgentFlow/internal/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Reset clears a contact's active session unconditionally.
func Reset(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contactID := chi.URLParam(r, "contactId")

		if err := handler.ResetSession(r.Context(), contactID); err != nil {
			log.Error("resetting session", slog.String("contact_id", contactID), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to reset session"))
			return
		}
		render.JSON(w, r, response.OK(nil))
	}
}
