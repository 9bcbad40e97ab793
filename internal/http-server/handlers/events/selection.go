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

// Selection accepts a button/menu choice event from the messaging gateway.
func Selection(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entity.InboundSelection
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

		if err := handler.HandleSelection(r.Context(), req.ContactID, req.Selection); err != nil {
			log.Error("handling inbound selection",
				slog.String("contact_id", req.ContactID),
				sl.Err(err),
			)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to process selection"))
			return
		}
		render.JSON(w, r, response.OK(nil))
	}
}
