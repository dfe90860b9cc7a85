package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mafadubu/google-docs-resizer/internal/config"
	"github.com/mafadubu/google-docs-resizer/internal/metrics"
	"github.com/mafadubu/google-docs-resizer/internal/pipeline"
	"github.com/mafadubu/google-docs-resizer/internal/store"
)

// DocsFactory returns a Docs API client acting with the caller's token.
type DocsFactory func(ctx context.Context, token string) pipeline.DocsAPI

// UsageStats reports resize counters.
type UsageStats interface {
	Stats(ctx context.Context) (store.Stats, error)
}

// Deps are the collaborators the server routes to. Usage, BatchStats,
// Metrics and Proxy may be nil; their endpoints then answer 503 or 404.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Docs         DocsFactory
	Usage        UsageStats
	BatchStats   *pipeline.BatchStats
	Metrics      *metrics.Metrics
	Proxy        http.Handler
}

// Server is the HTTP API server for the resizer.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(RequestMetrics(s.deps.Metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}
	r.Get("/api/stats", s.handleUsageStats)
	r.Get("/api/stats/batch", s.handleBatchStats)
	if s.deps.Proxy != nil {
		r.Method(http.MethodGet, "/api/image-proxy", s.deps.Proxy)
	}

	// Endpoints acting on a document with the caller's Google token.
	r.Group(func(r chi.Router) {
		r.Use(BearerToken(s.log))
		r.Use(LimitBody(s.cfg.MaxRequestBytes))

		r.Post("/api/doc/structure", s.handleStructure)
		r.Post("/api/doc/resize", s.handleResize)
		r.Post("/api/doc/resize/jobs", s.handleSubmitJob)
		r.Get("/api/doc/resize/jobs/{jobID}", s.handleJobStatus)
		r.Delete("/api/doc/resize/jobs/{jobID}", s.handleCancelJob)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
