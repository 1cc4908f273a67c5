package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"demo-observe/observe/pkg/config"
	"demo-observe/observe/pkg/middleware"
	"demo-observe/observe/pkg/server/handlers"
	"demo-observe/observe/pkg/telemetry"
	"demo-observe/observe/pkg/telemetry/health"
	"demo-observe/observe/pkg/telemetry/metrics"
	"demo-observe/observe/pkg/telemetry/tracing"
)

// BuildInfo is reported on /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Server is the instrumented HTTP server.
type Server struct {
	config     config.ServerConfig
	tel        *telemetry.Telemetry
	logger     *slog.Logger
	build      BuildInfo
	checker    *health.Checker
	httpServer *http.Server

	mu      sync.RWMutex
	baseURL string
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger of the server and its middleware.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithBuildInfo sets the build information reported on /version.
func WithBuildInfo(b BuildInfo) Option {
	return func(s *Server) { s.build = b }
}

// New creates a server recording through tel.
func New(cfg config.ServerConfig, tel *telemetry.Telemetry, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		tel:    tel,
		logger: slog.Default(),
		build:  BuildInfo{Version: telemetry.DefaultServiceVersion},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	tc := tel.Config()
	s.checker = health.New(tc.Health.CheckTimeout)
	if tc.Health.CheckExporter && tc.Exporter.Protocol != config.ProtocolStdout {
		s.checker.RegisterCheck("exporter", health.EndpointCheck(tc.Exporter.Endpoint))
	}
	s.logger.Debug("readiness checks registered", "checks", s.checker.ListChecks())

	s.httpServer = &http.Server{
		Handler:        s.routes(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	return s
}

// routes configures HTTP routes and the middleware chain.
func (s *Server) routes() http.Handler {
	client := tracing.NewClient(s.config.DownstreamTimeout, s.tel.TracerProvider(), s.tel.MeterProvider(), s.tel.Propagator())

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", handlers.NewRootHandler(client, s.URL, s.logger))
	mux.Handle("GET /health", handlers.NewHealthHandler())
	mux.Handle("GET /error", handlers.NewErrorHandler())
	mux.Handle("GET /ready", s.checker.ReadinessHandler())
	mux.Handle("GET /version", health.VersionHandler(s.build.Version, s.build.Commit, s.build.BuildTime))
	if h := s.tel.MetricsHandler(); h != nil {
		mux.Handle("GET "+s.tel.Config().Metrics.Prometheus.Path, h)
	}

	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		tracing.Middleware(&tracing.DefaultSpanBuilder{
			Tracer:     s.tel.Tracer(),
			Propagator: s.tel.Propagator(),
			Logger:     s.logger,
		}),
	}
	if inst := s.tel.Instruments(); inst != nil {
		chain = append(chain, metrics.Middleware(inst))
	}
	chain = append(chain, middleware.AccessLog(s.logger))

	return middleware.Chain(mux, chain...)
}

// Handler returns the instrumented handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Listen opens the configured address.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}
	return ln, nil
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.baseURL = baseURL(ln.Addr())
	s.mu.Unlock()

	s.logger.Info("starting server", "address", ln.Addr().String())

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// URL returns the base URL the server can be reached at, empty before
// Serve.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close closes every connection immediately.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// baseURL turns a listener address into a URL. A wildcard host is reached
// over loopback.
func baseURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
