package main

import (
	"AgentFlow/bot"
	"AgentFlow/bot/flow"
	"AgentFlow/bot/session"
	"AgentFlow/bot/timer"
	"AgentFlow/bot/whatsapp"
	"AgentFlow/entity"
	"AgentFlow/impl/core"
	"AgentFlow/internal/config"
	repository "AgentFlow/internal/database"
	"AgentFlow/internal/http-server/api"
	"AgentFlow/internal/lib/logger"
	"AgentFlow/internal/lib/sl"
	"AgentFlow/internal/ws"
	"context"
	"flag"
	"log/slog"
	"time"
)

// logGateway stands in for the messaging gateway when WhatsApp is disabled,
// so flows can be exercised through the HTTP event endpoints alone.
type logGateway struct {
	log *slog.Logger
}

func (g *logGateway) Send(_ context.Context, action entity.Action) error {
	g.log.With(
		slog.String("contact_id", action.ContactID),
		slog.String("text", action.Text),
		slog.Int("options", len(action.Options)),
	).Info("outbound action")
	return nil
}

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	// Initialize Telegram bot if enabled
	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.BotName, conf.Telegram.ApiKey, conf.Telegram.AdminId, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", slog.String("error", err.Error()))
		} else {
			lg = logger.SetupTelegramHandler(lg, tgBot, slog.LevelWarn)
			lg.With(
				slog.String("bot_name", conf.Telegram.BotName),
			).Info("telegram bot initialized")
		}
	}

	lg.Info("starting agentflow", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	handler := core.New(lg)
	handler.SetAuthKey(conf.Listen.ApiKey)

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.With(
			sl.Err(err),
		).Error("mongo client")
		return
	}
	if db == nil {
		lg.Error("mongo is required, enable it in config")
		return
	}
	handler.SetRepository(db)
	lg.With(
		slog.String("host", conf.Mongo.Host),
		slog.String("port", conf.Mongo.Port),
		slog.String("user", conf.Mongo.User),
		slog.String("database", conf.Mongo.Database),
	).Info("mongo client initialized")

	var waBot *whatsapp.WhatsAppBot
	var gateway session.Gateway
	if conf.WhatsApp.Enabled {
		waBot = whatsapp.NewWhatsAppBot(
			conf.WhatsApp.AccessToken,
			conf.WhatsApp.VerifyToken,
			conf.WhatsApp.AppSecret,
			conf.WhatsApp.PhoneNumberID,
			lg,
		)
		gateway = waBot
		lg.With(
			sl.Secret("access_token", conf.WhatsApp.AccessToken),
			slog.String("phone_number_id", conf.WhatsApp.PhoneNumberID),
		).Info("whatsapp bot initialized")
	} else {
		gateway = &logGateway{log: lg.With(sl.Module("gateway.log"))}
		lg.Info("whatsapp disabled, outbound actions are logged only")
	}

	timers := timer.NewService(db, timer.RealClock{}, lg)

	interp := flow.NewInterpreter(conf.Engine.MaxChoiceRetries)
	defaultTimeout := time.Duration(conf.Engine.SessionTimeoutMinutes) * time.Minute
	manager := session.NewManager(db, db, timers, gateway, interp, defaultTimeout, lg)
	timers.SetSink(manager)
	handler.SetEngine(manager)
	if waBot != nil {
		waBot.SetSink(manager)
	}

	hub := ws.NewHub(lg)
	go hub.Run()
	manager.SetListener(hub)

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	rearmed, err := timers.Replay(startupCtx)
	if err != nil {
		lg.With(sl.Err(err)).Error("replaying delay timers")
	} else {
		lg.With(slog.Int("count", rearmed)).Info("delay timers rearmed")
	}
	sessions, err := db.ListSessions(startupCtx)
	if err != nil {
		lg.With(sl.Err(err)).Error("listing sessions for inactivity rearm")
	} else {
		manager.RearmInactivity(startupCtx, sessions)
		lg.With(slog.Int("count", len(sessions))).Info("inactivity timers rearmed")
	}
	cancel()

	// *** blocking start with http server ***
	err = api.New(conf, lg, handler, hub, waBot)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}
