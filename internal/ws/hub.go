package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"AgentFlow/entity"
)

// Hub maintains the set of connected operator dashboards and broadcasts
// engine events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *entity.SessionEvent
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *entity.SessionEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// SessionEvent implements the session manager's listener: every engine
// lifecycle event is fanned out to connected dashboards. A full broadcast
// queue drops the event rather than blocking event processing.
func (h *Hub) SessionEvent(evt entity.SessionEvent) {
	select {
	case h.broadcast <- &evt:
	default:
		h.log.Warn("operator event dropped, broadcast queue full",
			slog.String("type", string(evt.Type)),
			slog.String("contact_id", evt.ContactID),
		)
	}
}
