// Package server exposes the analytics and perspective services over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/emberjournal/ember/insight"
	"github.com/emberjournal/ember/journal"
	"github.com/emberjournal/ember/perspective"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Server is the HTTP server for emberd.
type Server struct {
	store       *journal.Store
	synthesizer *insight.Synthesizer
	engine      *perspective.Engine
	shaper      *perspective.Shaper
	logger      zerolog.Logger

	httpServer *http.Server
	startedAt  time.Time
}

// Config holds server configuration options.
type Config struct {
	Addr   string
	Logger zerolog.Logger
}

// New creates the HTTP server and wires its routes.
func New(cfg Config, store *journal.Store, synthesizer *insight.Synthesizer, engine *perspective.Engine, shaper *perspective.Shaper) *Server {
	s := &Server{
		store:       store,
		synthesizer: synthesizer,
		engine:      engine,
		shaper:      shaper,
		logger:      cfg.Logger.With().Str("component", "http-server").Logger(),
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Routes builds the chi router. Exposed so tests can drive handlers through
// httptest without binding a socket.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/users/{userID}", func(u chi.Router) {
		u.Get("/report", s.handleReport)
		u.Get("/perspective", s.handlePerspective)
		u.Post("/entries", s.handleSaveEntry)
		u.Post("/memories", s.handleSaveMemory)
		u.Post("/reply", s.handleReply)
	})

	return r
}

// Serve starts listening and blocks until the context is cancelled or the
// listener fails.
func (s *Server) Serve(ctx context.Context) error {
	s.startedAt = time.Now()
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("Shutting down HTTP server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
