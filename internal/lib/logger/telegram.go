package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Alerter delivers a plain-text alert to the ops channel.
type Alerter interface {
	SendAlert(text string) error
}

// telegramHandler fans log records out to the wrapped handler and forwards
// records at or above min to the ops alert channel.
type telegramHandler struct {
	inner   slog.Handler
	alerter Alerter
	min     slog.Level
}

// SetupTelegramHandler wraps an existing logger so that warnings and errors
// also reach the Telegram admin chat.
func SetupTelegramHandler(log *slog.Logger, alerter Alerter, min slog.Level) *slog.Logger {
	return slog.New(&telegramHandler{
		inner:   log.Handler(),
		alerter: alerter,
		min:     min,
	})
}

func (h *telegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.min
}

func (h *telegramHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.min {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("[%s] %s", r.Level, r.Message))
		r.Attrs(func(a slog.Attr) bool {
			sb.WriteString(fmt.Sprintf("\n%s: %s", a.Key, a.Value))
			return true
		})
		text := sb.String()
		// Alerts must never block or fail the logging path.
		go func() {
			_ = h.alerter.SendAlert(text)
		}()
	}
	return h.inner.Handle(ctx, r)
}

func (h *telegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &telegramHandler{inner: h.inner.WithAttrs(attrs), alerter: h.alerter, min: h.min}
}

func (h *telegramHandler) WithGroup(name string) slog.Handler {
	return &telegramHandler{inner: h.inner.WithGroup(name), alerter: h.alerter, min: h.min}
}
