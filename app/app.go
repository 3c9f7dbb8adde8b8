// Package app wires the intake bot: conversation, relay pipeline, mailer,
// Telegram routes and the optional health server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/photodesk/app/bot"
	"github.com/m3rciful/photodesk/app/conversation"
	"github.com/m3rciful/photodesk/app/mailer"
	"github.com/m3rciful/photodesk/app/relay"
	coreconfig "github.com/m3rciful/photodesk/core/config"
	"github.com/m3rciful/photodesk/core/health"
	"github.com/m3rciful/photodesk/core/logger"
	"github.com/m3rciful/photodesk/core/session"
	tg "github.com/m3rciful/photodesk/core/telegram"
	"github.com/m3rciful/photodesk/core/telegram/router"
	tgsender "github.com/m3rciful/photodesk/core/telegram/sender"
)

// App holds the wired components for one process.
type App struct {
	cfg      *coreconfig.Config
	mailer   *mailer.Mailer
	pipeline *relay.Pipeline
	machine  *conversation.Machine
	handler  *bot.Handler
	fetcher  *bot.Fetcher
	registry *tg.Registry
	health   *health.Server

	dispatcher atomic.Pointer[tgsender.Dispatcher]
}

// New builds the application from a normalized config.
func New(cfg *coreconfig.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}

	a := &App{cfg: cfg, fetcher: &bot.Fetcher{}, registry: tg.NewRegistry()}
	a.mailer = mailer.New(mailer.Config{
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		Username:    cfg.Mail.Username,
		Password:    cfg.Mail.Password,
		DialTimeout: time.Duration(cfg.Mail.DialTimeoutSeconds) * time.Second,
		Timeout:     time.Duration(cfg.Mail.TimeoutSeconds) * time.Second,
	})
	a.pipeline = relay.NewPipeline(a.fetcher, a.mailer, relay.Settings{
		From:          cfg.Mail.Sender,
		To:            cfg.Mail.Receiver,
		TempDir:       cfg.Intake.TempDir,
		MaxConcurrent: cfg.Intake.MaxConcurrentSubmissions,
	})

	machine, err := conversation.NewMachine(
		cfg.Intake.Departments,
		session.NewMemory[conversation.Key, conversation.Session](),
		a.pipeline,
		textsFrom(cfg.Messages),
	)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.machine = machine
	a.handler = bot.NewHandler(machine)
	a.handler.Register(a.registry)

	if cfg.Health.Listen != "" {
		a.health = health.New(cfg.Health.Listen, a.Report)
	}
	return a, nil
}

func textsFrom(m coreconfig.MessagesConfig) conversation.Texts {
	return conversation.Texts{
		Greeting:          m.Greeting,
		Chosen:            m.Chosen,
		NotInList:         m.NotInList,
		OnlyPhotos:        m.OnlyPhotos,
		MissingCaption:    m.MissingCaption,
		MissingDepartment: m.MissingDepartment,
		Sent:              m.Sent,
		Failed:            m.Failed,
		Cancelled:         m.Cancelled,
		NotStarted:        m.NotStarted,
	}
}

// CoreConfig returns the configuration the app was built from.
func (a *App) CoreConfig() *coreconfig.Config {
	return a.cfg
}

// Services returns background services to run next to the bot.
func (a *App) Services() []func(context.Context) error {
	if a.health == nil {
		return nil
	}
	return []func(context.Context) error{a.health.Run}
}

// TelegramRunOptions assembles middleware, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry)
	routes = append(routes, router.MessageRoutes(a.handler, a.registry)...)

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(a.cfg),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	a.fetcher.Bind(rt.Bot)
	a.dispatcher.Store(rt.Dispatcher)
	if a.health != nil {
		a.health.MarkReady(true)
	}
	logger.LogEvent(ctx, logger.Component("app"), slog.LevelInfo, "intake.ready",
		slog.Int("departments", len(a.machine.Departments())),
		slog.String("smtp_host", a.cfg.Mail.Host),
		slog.Int("smtp_port", a.cfg.Mail.Port),
	)
	return nil
}

func (a *App) onStop(context.Context, tg.Runtime) error {
	if a.health != nil {
		a.health.MarkReady(false)
	}
	a.fetcher.Bind(nil)
	return nil
}

// Report feeds runtime counters into /healthz.
func (a *App) Report() map[string]any {
	out := map[string]any{
		"sessions":    a.machine.Sessions(),
		"submissions": a.pipeline.Stats(),
	}
	if d := a.dispatcher.Load(); d != nil {
		sent, failed := d.Stats()
		out["replies"] = map[string]uint64{"sent": sent, "failed": failed}
	}
	return out
}
