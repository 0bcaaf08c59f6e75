package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hbmartin/webview-ipc/pkg/host"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

// Server serves one provider's views over WebSocket and its RPC handlers
// over JSON-RPC.
type Server struct {
	provider *host.Provider
	config   *Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   chi.Router

	// ctx is cancelled by Shutdown and closes every open view.
	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
	closed     bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a server for provider. A nil config uses DefaultConfig.
func New(provider *host.Provider, config *Config, opts ...Option) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	config = config.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		provider: provider,
		config:   config,
		logger:   slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get(s.config.Path, s.ServeWebSocket)
	r.Get("/healthz", s.serveHealth)

	if s.config.RPCPath != "" {
		gateway, err := newGateway(s.provider, s.logger)
		if err != nil {
			s.logger.Error("json-rpc gateway disabled", "error", err)
		} else {
			r.Handle(s.config.RPCPath, gateway)
		}
	}
	if s.config.MetricsPath != "" {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Config returns the server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// ServeWebSocket upgrades the request and attaches the connection to the
// provider until either side closes it. The view id comes from the viewId
// query parameter or is generated.
func (s *Server) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	s.conns.Add(1)
	s.mu.Unlock()
	defer s.conns.Done()

	viewID := r.URL.Query().Get("viewId")
	if viewID == "" {
		viewID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		s.logger.Warn("websocket upgrade failed", "viewId", viewID, "remote", r.RemoteAddr, "error", err)
		return
	}

	logger := s.logger.With("viewId", viewID)
	ws := transport.NewWebSocket(conn,
		transport.WithWriteTimeout(s.config.WriteTimeout),
		transport.WithReadLimit(s.config.MaxMessageSize),
		transport.WithLogger(logger),
	)
	detach := s.provider.Attach(s.ctx, viewID, ws)
	ws.Start()
	logger.Info("view connected", "remote", r.RemoteAddr)

	select {
	case <-ws.Done():
	case <-s.ctx.Done():
		ws.Close()
	}
	detach()
	logger.Info("view disconnected")
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"views":  s.provider.Count(),
	})
}

// ListenAndServe listens on the configured address and serves until ctx
// ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends or Shutdown is called.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}
	s.httpServer = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "address", ln.Addr().String(), "path", s.config.Path)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Addr returns the address the server is listening on, or nil before
// Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown stops accepting connections, closes every open view and waits
// for their handlers to return or ctx to end. The provider is not
// disposed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	srv := s.httpServer
	s.mu.Unlock()

	s.cancel()

	var err error
	if srv != nil {
		if err = srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	s.logger.Info("server shutdown complete")
	return err
}
