package middleware

import (
	tghelpers "github.com/m3rciful/photodesk/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// MessageMetricsMiddleware resets the reply counters that helper sends
// update for the handler summary.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		tghelpers.ResetCounters(c)
		return next(c)
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	return tghelpers.Counters(c)
}
