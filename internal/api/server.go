// Package api implements the HTTP layer for the SuppTracker insights
// service. Handlers are methods on *Server. The layer owns request
// decoding, error-to-status mapping, and nothing else — all explanation
// logic lives behind the ai.Explainer interface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/supptracker/insights-backend/internal/ai"
	"github.com/supptracker/insights-backend/internal/config"
)

// Server holds all shared dependencies. The explainer is constructed once
// in main and passed in — there is no ambient client state.
type Server struct {
	explainer ai.Explainer
	cfg       *config.Config
	logger    *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(explainer ai.Explainer, cfg *config.Config, logger *slog.Logger) http.Handler {
	s := &Server{
		explainer: explainer,
		cfg:       cfg,
		logger:    logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api/insights", func(r chi.Router) {
		r.Post("/explain-risk", s.handleExplainRisk)
	})

	return r
}
