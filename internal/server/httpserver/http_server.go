// Package httpserver wires the worktime HTTP API.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	derrors "git.home.luguber.info/inful/worktime/internal/foundation/errors"
	"git.home.luguber.info/inful/worktime/internal/logfields"
	"git.home.luguber.info/inful/worktime/internal/metrics"
	"git.home.luguber.info/inful/worktime/internal/server/handlers"
	smw "git.home.luguber.info/inful/worktime/internal/server/middleware"
	"git.home.luguber.info/inful/worktime/internal/session"
)

// Options configures the server.
type Options struct {
	Address string
	// Registry is served on /metrics; nil disables the endpoint.
	Registry *prom.Registry
	Logger   *slog.Logger
	Stream   *handlers.StreamOptions
}

// Server serves the session API.
type Server struct {
	opts    Options
	handler http.Handler
	logger  *slog.Logger

	mu     sync.Mutex
	srv    *http.Server
	ln     net.Listener
	cancel context.CancelFunc
}

// New constructs the server and its routes.
func New(e handlers.SessionEngine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{opts: opts, logger: opts.Logger}

	sessionHandlers := handlers.NewSessionHandlers(e, opts.Logger)
	if opts.Stream != nil {
		sessionHandlers.WithStreamOptions(*opts.Stream)
	}
	monitoring := handlers.NewMonitoringHandlers(e, time.Now(), opts.Logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/session", sessionHandlers.HandleGet)
	mux.HandleFunc("GET /api/session/stream", sessionHandlers.HandleStream)
	mux.HandleFunc("POST /api/session/start", sessionHandlers.HandleAction(session.KindStart))
	mux.HandleFunc("POST /api/session/pause", sessionHandlers.HandleAction(session.KindPause))
	mux.HandleFunc("POST /api/session/resume", sessionHandlers.HandleAction(session.KindResume))
	mux.HandleFunc("POST /api/session/stop", sessionHandlers.HandleAction(session.KindStop))
	mux.HandleFunc("PUT /api/session/emergency-week", sessionHandlers.HandleEmergencyWeek)
	mux.HandleFunc("GET /healthz", monitoring.HandleHealthCheck)
	if opts.Registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(opts.Registry))
	}

	s.handler = smw.Chain(opts.Logger, derrors.NewHTTPErrorAdapter(opts.Logger))(mux)
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Start binds the address and serves in the background. Binding errors are
// returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("http startup failed: %w", err)
	}
	// Request contexts derive from base so Stop can end open streams.
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	s.mu.Lock()
	s.srv = srv
	s.ln = ln
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", logfields.Error(err))
		}
	}()
	s.logger.Info("HTTP server started", slog.String("address", ln.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts the server down. Open streams are cut when ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel := s.srv, s.cancel
	s.srv, s.cancel = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	cancel()
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
