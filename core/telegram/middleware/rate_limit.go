package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/photodesk/core/logger"
	tghelpers "github.com/m3rciful/photodesk/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	var (
		lastSeen   = make(map[int64]time.Time)
		lastSeenMu sync.Mutex
	)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[UpdateKind(c.Update())]; skip {
				return next(c)
			}

			t := now()
			lastSeenMu.Lock()
			if last, ok := lastSeen[user.ID]; ok && t.Sub(last) < opts.Interval {
				lastSeenMu.Unlock()
				logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.rate_limit",
					slog.String("status", "rate_limited"),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			lastSeen[user.ID] = t
			for id, seen := range lastSeen {
				if t.Sub(seen) > opts.Interval {
					delete(lastSeen, id)
				}
			}
			lastSeenMu.Unlock()
			return next(c)
		}
	}
}
