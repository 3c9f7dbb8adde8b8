package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/photodesk/core/logger"
	"github.com/m3rciful/photodesk/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
// A nil dispatcher makes helpers send synchronously.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action string, withKeyboard bool, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return runAndRecord(c, withKeyboard, run)
	}

	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, action, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return runAndRecord(c, withKeyboard, run)
	}
	if err == nil {
		RecordSend(c, withKeyboard)
	}
	return err
}

func runAndRecord(c tele.Context, withKeyboard bool, run func() error) error {
	if err := run(); err != nil {
		return err
	}
	RecordSend(c, withKeyboard)
	return nil
}

// SendText sends plain text to the current chat.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", sendOpts != nil && sendOpts.ReplyMarkup != nil, func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendWithMarkup sends plain text with a reply keyboard or keyboard removal.
func SendWithMarkup(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup == nil {
		return SendText(c, text)
	}
	return SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}
