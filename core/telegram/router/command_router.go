package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/photodesk/core/logger"
	tg "github.com/m3rciful/photodesk/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command to its endpoint with a handler summary.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for name, def := range reg.Commands() {
		handlerName := "command." + normalizeHandlerName(name)
		h := def.Handler
		routes = append(routes, tg.Route{
			Endpoint: name,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, handlerName, time.Now(), "", "", func() error {
					return h(c)
				})
			},
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "commands.routed"),
		slog.Int("commands", len(routes)),
	)
	return routes
}
