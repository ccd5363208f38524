package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/discovery"
	"github.com/villekr/wsgate/internal/event"
	"github.com/villekr/wsgate/internal/logging"
	"github.com/villekr/wsgate/internal/metrics"
	"github.com/villekr/wsgate/internal/version"
)

// shutdownTimeout caps how long Shutdown waits for connections to drain
const shutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Host         string
	Port         int
	CertPath     string   // Path to certificate file (optional if GenerateCert is true)
	KeyPath      string   // Path to private key file (optional if GenerateCert is true)
	GenerateCert bool     // If true and no files are given, serve TLS with a self-signed certificate
	Path         string   // URL path prefix accepting connections (default "/")
	MetricsPath  string   // Prometheus endpoint (empty = disabled)
	Announce     string   // mDNS instance name (empty = no announcement)
	Subprotocols []string // Advertised in the mDNS TXT record
	ReadLimit    int64    // Maximum inbound message size in bytes (0 = 1 MiB)
}

// App is the application driven by the server: the event dispatcher.
type App interface {
	Serve(ctx context.Context, scope event.Scope, receive event.ReceiveFunc, send event.SendFunc) error
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes m on Config.MetricsPath.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTLSConfig serves TLS with the given configuration instead of loading
// one from Config.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(s *Server) {
		s.tlsConfig = cfg
	}
}

// Server is the wsgate WebSocket server
type Server struct {
	config    *Config
	app       App
	metrics   *metrics.Metrics
	tlsConfig *tls.Config
	router    chi.Router
	http      *http.Server
	listener  net.Listener
	announce  *discovery.Announcement

	wg           sync.WaitGroup
	mu           sync.Mutex
	activeConns  map[string]func()
	closing      bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a new Server instance
func New(config *Config, app App, opts ...Option) (*Server, error) {
	if app == nil {
		return nil, errors.New("server needs an application")
	}
	if config.Path == "" {
		config.Path = "/"
	}

	s := &Server{
		config:      config,
		app:         app,
		activeConns: make(map[string]func()),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.tlsConfig == nil {
		var err error
		switch {
		case config.CertPath != "" || config.KeyPath != "":
			s.tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
			if err != nil {
				return nil, fmt.Errorf("failed to create TLS config: %w", err)
			}
		case config.GenerateCert:
			logging.Info("Generating self-signed server certificate")
			s.tlsConfig, err = GenerateSelfSigned(certHosts(config.Host))
			if err != nil {
				return nil, fmt.Errorf("failed to generate certificate: %w", err)
			}
		}
	}

	s.router = s.routes()
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: writeWait,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.config.MetricsPath != "" && s.metrics != nil {
		r.Handle(s.config.MetricsPath, s.metrics.Handler())
	}

	r.HandleFunc(s.config.Path, s.handleConnection)
	r.HandleFunc(path.Join(s.config.Path, "*"), s.handleConnection)
	return r
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listening address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start runs the lifespan startup, listens and serves until ctx is done, a
// signal arrives or the listener fails. It shuts the server down before
// returning.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Startup(ctx); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		// Startup already succeeded, so the application still gets its
		// shutdown event.
		return errors.Join(fmt.Errorf("failed to listen on %s: %w", addr, err), s.Shutdown(context.Background()))
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logging.Info("Server listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", s.config.Path),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)

	if s.config.Announce != "" {
		port := listener.Addr().(*net.TCPAddr).Port
		text := discovery.AnnouncementText(s.config.Path, s.tlsConfig != nil, s.config.Subprotocols, version.Version)
		ann, err := discovery.Announce(s.config.Announce, port, text)
		if err != nil {
			logging.Warn("mDNS announcement failed", zap.Error(err))
		} else {
			s.mu.Lock()
			s.announce = ann
			s.mu.Unlock()
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		shutdownErr := s.Shutdown(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return shutdownErr
		}
		return errors.Join(err, shutdownErr)
	}
}

// Startup runs the lifespan startup exchange. A startup.failed answer is
// returned as an error carrying its message.
func (s *Server) Startup(ctx context.Context) error {
	ack, err := s.lifespan(ctx, event.LifespanStartup)
	if err != nil {
		return fmt.Errorf("lifespan startup: %w", err)
	}
	if ack.Type == event.LifespanStartupFailed {
		return fmt.Errorf("application startup failed: %s", ack.Message)
	}
	return nil
}

// Shutdown stops accepting connections, closes the active ones, waits for
// them to finish (at most 10 seconds) and runs the lifespan shutdown. Later
// calls return the first result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown(ctx)
	})
	return s.shutdownErr
}

func (s *Server) shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	s.closing = true
	s.announce.Shutdown()
	closers := make(map[string]func(), len(s.activeConns))
	for addr, closeConn := range s.activeConns {
		closers[addr] = closeConn
	}
	s.mu.Unlock()

	// Each close writes a frame and may block, so run them unlocked.
	for addr, closeConn := range closers {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		closeConn()
	}

	drainCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(drainCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logging.Error("Error closing listener", zap.Error(err))
	}

	// Hijacked websocket connections are not tracked by http.Server
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-drainCtx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	var result error
	ack, err := s.lifespan(ctx, event.LifespanShutdown)
	switch {
	case err != nil:
		result = fmt.Errorf("lifespan shutdown: %w", err)
	case ack.Type == event.LifespanShutdownFailed:
		result = fmt.Errorf("application shutdown failed: %s", ack.Message)
	}

	logging.Sync()
	return result
}

// ActiveConnections returns the number of active connections
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":             "ok",
		"version":            version.Version,
		"active_connections": s.ActiveConnections(),
	})
}

// handleConnection bridges one request to the application, as a websocket
// scope when it asks for an upgrade and as an http scope otherwise.
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	if websocket.IsWebSocketUpgrade(r) {
		b := newWSBridge(w, r, s.config.ReadLimit)
		if !s.track(remoteAddr, b.shutdown) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		defer s.untrack(remoteAddr)

		logging.LogConnection(remoteAddr, "opened", zap.String("path", r.URL.Path))
		err := s.app.Serve(r.Context(), b.scope(), b.receive, b.send)
		if err != nil {
			logging.Warn("WebSocket connection error",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
		}
		b.finish(err)
		logging.LogConnection(remoteAddr, "closed")
		return
	}

	logging.LogHTTPRequest(remoteAddr, r.Method, r.URL.Path, flattenHeaders(r.Header))

	b := newHTTPBridge(w, r, s.config.ReadLimit)
	if !s.track(remoteAddr, func() {}) {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	defer s.untrack(remoteAddr)

	b.finish(s.app.Serve(r.Context(), b.scope(), b.receive, b.send))
}

// track registers an active connection. It reports false once shutdown
// began.
func (s *Server) track(addr string, closeConn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.activeConns[addr] = closeConn
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(addr string) {
	s.mu.Lock()
	delete(s.activeConns, addr)
	s.mu.Unlock()
	s.wg.Done()
}

func certHosts(host string) []string {
	hosts := []string{"localhost", "127.0.0.1", "::1"}
	if host != "" && host != "0.0.0.0" && host != "::" {
		hosts = append([]string{host}, hosts...)
	}
	if name, err := os.Hostname(); err == nil && name != "" {
		hosts = append(hosts, name)
	}
	return hosts
}
