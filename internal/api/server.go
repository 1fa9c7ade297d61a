package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/star/darksky/internal/auth"
	"github.com/star/darksky/internal/cache"
	"github.com/star/darksky/internal/catalog"
	"github.com/star/darksky/internal/health"
	"github.com/star/darksky/internal/httputil"
	"github.com/star/darksky/internal/metrics"
	"github.com/star/darksky/internal/nights"
	"github.com/star/darksky/internal/planner"
	"github.com/star/darksky/internal/sessions"
	"github.com/star/darksky/internal/stream"
)

// Service is the planning surface the handlers call.
type Service interface {
	OptimalTimes(ctx context.Context, req planner.OptimalTimesRequest) ([]string, error)
	TargetSessions(ctx context.Context, req planner.TargetSessionsRequest) ([]sessions.Session, error)
	Warm(ctx context.Context, req planner.WarmRequest, progress cache.Progress) (cache.WarmResult, error)
	Nights(ctx context.Context, req planner.NightsRequest) ([]nights.Night, error)
	Target(ctx context.Context, idOrName string) (catalog.Target, error)
	SearchTargets(prefix string, limit int) []catalog.Suggestion
	CacheStats() cache.Stats
}

// Config holds listener settings.
type Config struct {
	Addr       string
	TrustProxy bool
	Auth       auth.Config
	Stream     stream.Config
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, logger *slog.Logger, svc Service, probes *health.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg, logger, svc, probes),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// Generating several uncached months can take a while.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter builds the route table and middleware chain:
// request id -> metrics -> logging -> recoverer -> auth -> routes.
func NewRouter(cfg Config, logger *slog.Logger, svc Service, probes *health.Handler) chi.Router {
	h := &handler{svc: svc, logger: logger}
	streamCfg := cfg.Stream
	streamCfg.TrustProxy = cfg.TrustProxy
	warmStream := stream.NewHandler(svc, streamCfg, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware(logger, cfg.TrustProxy))
	r.Use(middleware.Recoverer)
	r.Use(auth.Middleware(cfg.Auth))

	r.Get("/healthz", probes.Healthz)
	r.Get("/readyz", probes.Readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/openapi.yaml", openAPI)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/optimal-times", h.optimalTimes)
		r.Post("/optimal-times/generate", h.generate)
		r.Get("/optimal-times/generate/stream", warmStream.HandleWarm)
		r.Get("/target-sessions", h.targetSessions)
		r.Get("/nights", h.nights)
		r.Get("/targets/search", h.searchTargets)
		r.Get("/targets/{id}", h.target)
		r.Get("/cache/stats", h.cacheStats)
	})

	return r
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the connection.
func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}
			if sr.statusCode >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
