// Package api serves the control surface over HTTP: snapshot reads with
// ETag revalidation, batched patch updates, reset, permission expansion,
// reports, the tool catalog, health and metrics. The MCP streamable
// transport can be mounted on the same listener.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/cjrt007/Tornado.Ai/pkg/audit"
	"github.com/cjrt007/Tornado.Ai/pkg/catalog"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/duration"
	"github.com/cjrt007/Tornado.Ai/pkg/logging"
	"github.com/cjrt007/Tornado.Ai/pkg/metrics"
	"github.com/cjrt007/Tornado.Ai/pkg/tracing"
)

// Server is the control API. Build it with New; serve Handler() or call
// ListenAndServe.
type Server struct {
	store   *control.Store
	catalog *catalog.Catalog
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
	mcp     http.Handler
	audit   AuditStatus
	now     func() time.Time

	corsEnabled bool
	corsOrigins []string
}

// AuditStatus reports the audit trail summary shown by the health endpoint.
// *audit.Log implements it.
type AuditStatus interface {
	Status() audit.Status
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and application logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records request metrics and exposes /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithTracer records a server span per request.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// WithCatalog replaces catalog.Default().
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Server) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithMCP mounts h at defaults.PathMCP.
func WithMCP(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// WithAudit adds the audit trail summary to the health response.
func WithAudit(a AuditStatus) Option {
	return func(s *Server) { s.audit = a }
}

// WithCORS enables CORS. An empty origin list allows any origin.
func WithCORS(enabled bool, origins []string) Option {
	return func(s *Server) {
		s.corsEnabled = enabled
		s.corsOrigins = origins
	}
}

// WithClock sets the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a server backed by store.
func New(store *control.Store, opts ...Option) *Server {
	s := &Server{
		store:   store,
		catalog: catalog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)
	s.tracer = tracing.OrNoop(s.tracer)
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(defaults.PathControl, s.handleSurface)
	mux.HandleFunc(defaults.PathFeatures, s.handleFeatures)
	mux.HandleFunc(defaults.PathRoles, s.handleRoles)
	mux.HandleFunc(defaults.PathScans, s.handleScans)
	mux.HandleFunc(defaults.PathReset, s.handleReset)
	mux.HandleFunc(defaults.PathRoles+"/{role}/permissions", s.handlePermissions)
	mux.HandleFunc(defaults.PathReport, s.handleReport)
	mux.HandleFunc(defaults.PathTools, s.handleTools)
	mux.HandleFunc(defaults.PathHealth, s.handleHealth)
	if s.metrics != nil {
		mux.Handle(defaults.PathMetrics, s.metrics.Handler())
	}
	if s.mcp != nil {
		mux.Handle(defaults.PathMCP, s.mcp)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	var h http.Handler = mux
	h = securityHeaders(h)
	h = s.recovery(h)
	h = s.observe(h)
	h = requestID(h)
	if s.corsEnabled {
		h = newCORS(s.corsOrigins).Handler(h)
	}
	return h
}

func newCORS(origins []string) *cors.Cors {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"ETag", headerRequestID, "Mcp-Session-Id"},
		MaxAge:         int(duration.CORSMaxAge.Seconds()),
	}
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(opts)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within duration.ShutdownGrace. HTTP/2 cleartext is accepted.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{IdleTimeout: duration.IdleTimeout}),
		ReadHeaderTimeout: duration.ReadHeaderTimeout,
		ReadTimeout:       duration.ReadTimeout,
		WriteTimeout:      duration.WriteTimeout,
		IdleTimeout:       duration.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("control api listening", slog.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), duration.ShutdownGrace)
	defer cancel()
	s.logger.Info("control api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}
