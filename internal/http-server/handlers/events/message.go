package events

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"AgentFlow/entity"
	"AgentFlow/internal/lib/api/response"
	"AgentFlow/internal/lib/sl"

	"github.com/go-chi/render"
)

// Message accepts a free-text inbound event from the messaging gateway.
func Message(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entity.InboundMessage
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		if req.ContactID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("contactId is required"))
			return
		}

		if err := handler.HandleIncomingText(r.Context(), req.ContactID, req.Text); err != nil {
			log.Error("handling inbound message",
				slog.String("contact_id", req.ContactID),
				sl.Err(err),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to process message"))
			return
		}
		render.JSON(w, r, response.OK(nil))
	}
}
