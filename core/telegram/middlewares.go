package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/photodesk/core/config"
	"github.com/m3rciful/photodesk/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain: recover, rate limit
// when configured, update logging and reply counters. Commands bypass the
// rate limit so /start and /cancel always get an answer.
func DefaultMiddlewares(cfg *coreconfig.Config) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := map[string]struct{}{coreconfig.UpdateCommand: {}}
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[t] = struct{}{}
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use:  middleware.RateLimitMiddleware(middleware.RateLimitOptions{Interval: interval, Exclude: ex}),
			})
		}
	}

	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
	return mws
}
