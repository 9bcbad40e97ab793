package bot

import (
	"fmt"
	"log/slog"

	"AgentFlow/internal/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// TgBot is the ops alert channel: warnings and errors from the engine are
// forwarded to the admin chat.
type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	botUsername string
	adminId     int64
}

func NewTgBot(botName, apiKey string, adminId int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		adminId:     adminId,
		botUsername: botName,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

// SendAlert implements the logger's Alerter: one plain-text message to the
// admin chat per forwarded log record.
func (t *TgBot) SendAlert(text string) error {
	if t.adminId == 0 {
		return nil
	}
	const maxLen = 4000
	if len(text) > maxLen {
		text = text[:maxLen]
	}
	_, err := t.api.SendMessage(t.adminId, text, nil)
	if err != nil {
		return fmt.Errorf("sending alert: %w", err)
	}
	return nil
}
