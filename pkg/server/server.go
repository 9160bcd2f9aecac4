package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/suspense/pkg/render"
	"github.com/vango-dev/suspense/pkg/serverfn"
	"github.com/vango-dev/suspense/pkg/telemetry"
)

// Config configures a Server.
type Config struct {
	// Address to listen on (default ":3000").
	Address string

	// Renderer renders every page and live document. Required.
	Renderer *render.Renderer

	// Mode is used when a page request has no ?mode= parameter.
	// Default: out-of-order streaming.
	Mode render.Mode

	// Pages maps routes to documents.
	Pages map[string]render.PageData

	// ServerFns are mounted at POST /api/{name}.
	ServerFns *serverfn.Registry

	// Events and EventsWS serve the shared-state streams.
	Events   http.Handler
	EventsWS http.Handler

	// NewSession starts a live document for /api/live. Nil disables it.
	NewSession func() Session

	// Metrics instruments requests and server functions. Optional.
	Metrics *telemetry.Metrics

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Logger receives request and lifecycle logs. Default: slog.Default().
	Logger *slog.Logger

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	IdleTimeout       time.Duration

	// RenderTimeout bounds one page render, streaming included.
	RenderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with the server defaults filled in.
func DefaultConfig() Config {
	return Config{
		Address:           ":3000",
		Mode:              render.ModeOutOfOrder,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		RenderTimeout:     30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.Mode == render.ModeClient {
		c.Mode = d.Mode
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = d.RenderTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Renderer == nil {
		c.Renderer = render.NewRenderer(render.RendererConfig{Logger: c.Logger})
	}
	return c
}

// Server is the HTTP server.
type Server struct {
	config Config
	router chi.Router
	logger *slog.Logger

	mu         sync.Mutex
	sessions   map[*liveConn]struct{}
	httpServer *http.Server
}

// New creates a Server and mounts its routes.
func New(config Config) *Server {
	config = config.withDefaults()
	s := &Server{
		config:   config,
		logger:   config.Logger.With("component", "server"),
		sessions: make(map[*liveConn]struct{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(s.logger))
	r.Use(middleware.Recoverer)
	if s.config.Metrics != nil {
		r.Use(s.config.Metrics.Middleware)
	}

	routes := make([]string, 0, len(s.config.Pages))
	for route := range s.config.Pages {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	for _, route := range routes {
		r.Get(route, s.page(s.config.Pages[route]))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if s.config.Events != nil {
			r.Handle("/events", s.config.Events)
		}
		if s.config.EventsWS != nil {
			r.Handle("/events/ws", s.config.EventsWS)
		}
		if s.config.NewSession != nil {
			r.Get("/live", s.live)
		}
		if s.config.ServerFns != nil {
			hc := serverfn.HandlerConfig{Logger: s.logger}
			if s.config.Metrics != nil {
				hc.Recorder = s.config.Metrics
			}
			r.Handle("/{name}", s.config.ServerFns.Handler(hc))
		}
	})

	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server and blocks until ctx ends, a shutdown signal
// arrives or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes live documents, then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	conns := make([]*liveConn, 0, len(s.sessions))
	for c := range s.sessions {
		conns = append(conns, c)
	}
	srv := s.httpServer
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// LiveSessions returns the number of open live documents.
func (s *Server) LiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
