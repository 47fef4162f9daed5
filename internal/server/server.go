package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/urlscan/internal/cache"
	"github.com/nao1215/urlscan/internal/scan"
)

// Defaults used when no option overrides them.
const (
	DefaultRequestTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	maxBodyBytes           = 64 << 10
)

// CacheRecorder is notified of every cache lookup.
// *metrics.Metrics implements it.
type CacheRecorder interface {
	CacheLookup(hit bool)
}

type nopCacheRecorder struct{}

func (nopCacheRecorder) CacheLookup(bool) {}

// Server serves the scan API.
//
// Design decision: We use the standard library ServeMux with method
// patterns instead of a router framework because the API has five fixed
// routes and no path parameters.
type Server struct {
	scanner        *scan.Scanner
	cache          cache.Cache
	cacheEnabled   bool
	lookups        CacheRecorder
	gatherer       prometheus.Gatherer
	allowedOrigins []string
	requestTimeout time.Duration
	version        string
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithCache enables the result cache.
func WithCache(c cache.Cache) Option {
	return func(s *Server) {
		if c != nil {
			s.cache = c
			s.cacheEnabled = true
		}
	}
}

// WithCacheRecorder sets the recorder of cache hits and misses.
func WithCacheRecorder(r CacheRecorder) Option {
	return func(s *Server) {
		if r != nil {
			s.lookups = r
		}
	}
}

// WithGatherer exposes the gatherer's metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithAllowedOrigins sets the CORS origins. "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithRequestTimeout bounds the work done for one request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithVersion sets the version reported by the root endpoint.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server around a Scanner.
func New(scanner *scan.Scanner, opts ...Option) *Server {
	s := &Server{
		scanner:        scanner,
		cache:          cache.Noop{},
		lookups:        nopCacheRecorder{},
		allowedOrigins: []string{"*"},
		requestTimeout: DefaultRequestTimeout,
		version:        "dev",
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with every route and middleware installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /test-connection", s.handleTestConnection)
	mux.HandleFunc("GET /scan-url", s.handleScanGet)
	mux.HandleFunc("POST /scan-url", s.handleScanPost)

	for _, path := range []string{"/{$}", "/health", "/test-connection", "/scan-url"} {
		mux.HandleFunc("OPTIONS "+path, s.handlePreflight)
	}

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return s.logRequests(s.cors(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
