// Package httpapi is the HTTP boundary in front of the adaptive engine.
// It exposes the engine's operations 1:1, maps the engine's error taxonomy
// to status codes, and owns the after-call concerns the engine must never
// wait on: event logging and dashboard cache invalidation.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cyber-sensei/backend/internal/catalog"
	"github.com/cyber-sensei/backend/internal/engine"
	"github.com/cyber-sensei/backend/internal/learner"
	"github.com/cyber-sensei/backend/internal/platform/cache"
	"github.com/cyber-sensei/backend/internal/progress"
)

// ServerConfig holds dependencies for the HTTP server.
type ServerConfig struct {
	Grader    *engine.Grader
	Estimator *engine.Estimator
	Selector  *engine.Selector
	Catalog   catalog.Store
	Learners  learner.Store
	Events    progress.EventLogger // defaults to NopEventLogger

	// Cache is optional; nil disables dashboard caching.
	Cache        *cache.Cache
	DashboardTTL time.Duration

	// Ready reports backend readiness for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Server handles the learning API.
type Server struct {
	grader    *engine.Grader
	estimator *engine.Estimator
	selector  *engine.Selector
	catalog   catalog.Store
	learners  learner.Store
	events    progress.EventLogger

	cache        *cache.Cache
	dashboardTTL time.Duration

	ready func(ctx context.Context) error
}

// NewServer creates the API server.
func NewServer(cfg ServerConfig) *Server {
	events := cfg.Events
	if events == nil {
		events = progress.NopEventLogger{}
	}
	ttl := cfg.DashboardTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	return &Server{
		grader:       cfg.Grader,
		estimator:    cfg.Estimator,
		selector:     cfg.Selector,
		catalog:      cfg.Catalog,
		learners:     cfg.Learners,
		events:       events,
		cache:        cfg.Cache,
		dashboardTTL: ttl,
		ready:        cfg.Ready,
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/learners/{id}/next-step", s.handleNextStep)
	mux.HandleFunc("GET /api/learners/{id}/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/learners/{id}/dashboard/export", s.handleDashboardExport)
	mux.HandleFunc("POST /api/learners/{id}/topics/{topicID}/quiz", s.handleSubmitQuiz)
	mux.HandleFunc("POST /api/learners/{id}/topics/{topicID}/complete", s.handleMarkComplete)

	mux.HandleFunc("GET /api/topics/{id}", s.handleTopicContent)
	mux.HandleFunc("GET /api/topics/{id}/quiz", s.handleGetQuiz)

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
