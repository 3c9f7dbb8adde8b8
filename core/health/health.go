// Package health serves liveness and readiness probes over HTTP.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/photodesk/core/buildinfo"
	"github.com/m3rciful/photodesk/core/logger"
)

// Reporter adds runtime details to the /healthz body.
type Reporter func() map[string]any

// Server exposes /healthz and /readyz.
type Server struct {
	addr   string
	report Reporter
	ready  atomic.Bool
}

// New returns a server listening on addr once Run is called.
func New(addr string, report Reporter) *Server {
	return &Server{addr: addr, report: report}
}

// MarkReady flips the readiness probe.
func (s *Server) MarkReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the probe routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	}
	if s.report != nil {
		for k, v := range s.report() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.Component("health")
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.LogEvent(ctx, log, slog.LevelInfo, "health.listen", slog.String("listen", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health: listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("health: shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
