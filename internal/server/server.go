// Package server exposes the metrics endpoint and the runner's status API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/git-tag-exporter/internal/auth"
	"github.com/dreschagin/git-tag-exporter/internal/httpx"
	"github.com/dreschagin/git-tag-exporter/internal/metrics"
	"github.com/dreschagin/git-tag-exporter/internal/poller"
	"github.com/dreschagin/git-tag-exporter/internal/ratelimit"
)

// Runner is the part of poller.Runner the HTTP surface needs.
type Runner interface {
	RunOnce(ctx context.Context, trigger poller.Trigger) (*poller.CycleSummary, error)
	Snapshot() poller.Snapshot
}

type config struct {
	addr            string
	runToken        string
	rps             float64
	burst           int
	runTimeout      time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the listen address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithRunToken protects POST /api/v1/run with a bearer token
func WithRunToken(token string) Option {
	return func(c *config) {
		c.runToken = token
	}
}

// WithRateLimit sets the inbound request limit
func WithRateLimit(rps float64, burst int) Option {
	return func(c *config) {
		c.rps = rps
		c.burst = burst
	}
}

// WithRunTimeout bounds a manually triggered cycle
func WithRunTimeout(d time.Duration) Option {
	return func(c *config) {
		c.runTimeout = d
	}
}

// WithShutdownTimeout bounds graceful shutdown
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		c.shutdownTimeout = d
	}
}

// WithLogger sets the access and lifecycle logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Server serves /metrics and the status API.
type Server struct {
	*http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New builds the router. registry is exposed on /metrics as is.
func New(runner Runner, registry *prometheus.Registry, m *metrics.Metrics, opts ...Option) *Server {
	cfg := &config{
		addr:            "0.0.0.0:9090",
		rps:             20,
		burst:           40,
		runTimeout:      2 * time.Minute,
		shutdownTimeout: 20 * time.Second,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiter := ratelimit.New(cfg.rps, cfg.burst)
	h := &handler{runner: runner, runTimeout: cfg.runTimeout, logger: cfg.logger}

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(httpx.WithRequestID)
	router.Use(httpx.WithLogging(cfg.logger))
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)
	router.Use(limiter.Middleware(m))

	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		Registry:      registry,
		ErrorHandling: promhttp.ContinueOnError,
	}))
	router.Get("/healthz", h.healthz)
	router.Get("/readyz", h.readyz)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", h.summary)
		r.With(auth.Middleware(cfg.runToken, m)).Post("/run", h.runNow)
	})

	return &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger:          cfg.logger,
		shutdownTimeout: cfg.shutdownTimeout,
	}
}

// Run listens until ctx is done, then shuts down gracefully. It returns an
// error if the listener fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return goerr.Wrap(err, "failed to listen", goerr.V("addr", s.Addr))
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("exporter server started", "addr", ln.Addr().String())
		errCh <- s.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return goerr.Wrap(err, "exporter server failed")
	case <-ctx.Done():
	}

	s.logger.Info("shutting down exporter server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shutdown exporter server")
	}
	return nil
}
