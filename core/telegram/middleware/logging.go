package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/photodesk/core/config"
	"github.com/m3rciful/photodesk/core/logger"
	tghelpers "github.com/m3rciful/photodesk/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware sets the update context with rid and logs a sampled
// receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		var chatID, userID int64
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithRID(context.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.TG)
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", UpdateKind(upd)),
			}
			if chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if msg := upd.Message; msg != nil {
				if t := msg.Text; t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
				} else if msg.Caption != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(msg.Caption, 256)))
				}
				if msg.Photo != nil {
					attrs = append(attrs, slog.String("file_unique_id", msg.Photo.UniqueID))
				}
			}
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		}

		return next(c)
	}
}

// UpdateKind classifies an update for logging and rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Message != nil && strings.HasPrefix(upd.Message.Text, "/"):
		return coreconfig.UpdateCommand
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	case upd.Callback != nil:
		return "callback"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}
