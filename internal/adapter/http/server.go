package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/emissions-globe-service/internal/domain"
	"github.com/couchcryptid/emissions-globe-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TableSource hands out the current region table, nil until it is built.
type TableSource interface {
	Table() *domain.Table
}

// Server exposes health, readiness, metrics, and the globe API endpoints.
type Server struct {
	httpServer *http.Server
	tables     TableSource
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, tables TableSource, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		tables:  tables,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/meta", s.withTable(s.handleMeta))
	mux.HandleFunc("GET /api/frame", s.withTable(s.handleFrame))
	mux.HandleFunc("POST /api/viewport", s.handleViewport)
	mux.HandleFunc("GET /api/regions", s.withTable(s.handleRegions))
	mux.HandleFunc("GET /api/regions/{code}", s.withTable(s.handleRegion))
	mux.HandleFunc("GET /api/resolve", s.withTable(s.handleResolve))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type tableHandler func(w http.ResponseWriter, r *http.Request, table *domain.Table)

func (s *Server) withTable(h tableHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := s.tables.Table()
		if table == nil {
			writeError(w, http.StatusServiceUnavailable, "region table is not built yet")
			return
		}
		h(w, r, table)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
