package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/psws-hapi/internal/catalog"
	"github.com/couchcryptid/psws-hapi/internal/observability"
	"github.com/couchcryptid/psws-hapi/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// DataSource prepares and streams data requests. *pipeline.Extractor
// implements it.
type DataSource interface {
	Prepare(req pipeline.Request) (*pipeline.Plan, error)
	Stream(ctx context.Context, plan *pipeline.Plan, w io.Writer) (pipeline.Summary, error)
}

// Catalog lists datasets and describes them. *catalog.Catalog implements it.
type Catalog interface {
	Datasets() []catalog.Dataset
	Info(id, parameters string) (catalog.Info, error)
}

// Options tunes the HAPI data endpoint.
type Options struct {
	RateLimit float64 // data requests per second; 0 disables limiting
	RateBurst int
}

// Server exposes the HAPI endpoints alongside health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	data       DataSource
	catalog    Catalog
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with the /hapi routes plus /healthz,
// /readyz, and /metrics.
func NewServer(addr string, ready sharedobs.ReadinessChecker, data DataSource, cat Catalog, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		data:    data,
		catalog: cat,
		logger:  logger,
		metrics: metrics,
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := max(opts.RateBurst, 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /hapi/capabilities", s.handleCapabilities)
	mux.HandleFunc("GET /hapi/catalog", s.handleCatalog)
	mux.HandleFunc("GET /hapi/info", s.handleInfo)
	mux.Handle("GET /hapi/data", s.limit(limiter, http.HandlerFunc(s.handleData)))

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

// limit rejects requests beyond the limiter's rate with 429. A nil limiter
// passes every request.
func (s *Server) limit(limiter *rate.Limiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			s.metrics.RateLimited.Inc()
			w.Header().Set("Retry-After", "1")
			writeStatus(w, http.StatusTooManyRequests, hapiStatus{Code: 1500, Message: "Internal server error - too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
