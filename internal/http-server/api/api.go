package api

import (
	"AgentFlow/bot/whatsapp"
	"AgentFlow/internal/config"
	"AgentFlow/internal/http-server/handlers/errors"
	"AgentFlow/internal/http-server/handlers/events"
	"AgentFlow/internal/http-server/handlers/session"
	whhandler "AgentFlow/internal/http-server/handlers/whatsapp"
	"AgentFlow/internal/http-server/handlers/workflow"
	"AgentFlow/internal/http-server/middleware/authenticate"
	"AgentFlow/internal/lib/sl"
	"AgentFlow/internal/ws"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	ws.Authenticator
	workflow.Core
	events.Core
	session.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub, waBot *whatsapp.WhatsAppBot) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	if waBot != nil {
		router.Get("/webhook/whatsapp", whhandler.WebhookVerify(log, waBot))
		router.Post("/webhook/whatsapp", whhandler.WebhookHandler(log, waBot))
	}

	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, handler, log, w, r)
	})

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.Timeout(15 * time.Second))
		v1.Use(render.SetContentType(render.ContentTypeJSON))
		v1.Use(authenticate.New(log, handler))

		v1.Route("/workflows", func(r chi.Router) {
			r.Get("/", workflow.List(log, handler))
			r.Post("/", workflow.Publish(log, handler))
			r.Put("/{id}", workflow.Publish(log, handler))
			r.Post("/{id}/deactivate", workflow.Deactivate(log, handler))
		})
		v1.Route("/events", func(r chi.Router) {
			r.Post("/message", events.Message(log, handler))
			r.Post("/selection", events.Selection(log, handler))
		})
		v1.Route("/sessions", func(r chi.Router) {
			r.Get("/{contactId}", session.Get(log, handler))
			r.Post("/{contactId}/reset", session.Reset(log, handler))
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  router,
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
