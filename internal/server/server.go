package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/7etsuo/shellserve/internal/config"
	"github.com/7etsuo/shellserve/internal/logging"
)

// Server owns the listener and dispatches accepted connections to a
// handler supplied by the caller (typically the supervisor, which spawns
// an isolated worker process per connection).
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	handler  ConnectionHandler
	limiter  *ConnectionLimiter
	prebound net.Listener

	listener *Listener
	mu       sync.Mutex
}

// Config holds configuration for creating a new Server.
type Config struct {
	Cfg    *config.Config
	Logger *slog.Logger
	// Listener, when set, is used instead of calling net.Listen directly
	// (e.g. a tableflip-managed listener that survives a restart).
	Listener net.Listener
}

// New creates a new Server with the given configuration.
func New(sc Config) (*Server, error) {
	logger := sc.Logger
	if logger == nil {
		logger = logging.NewLogger(sc.Cfg.LogLevel)
	}

	return &Server{
		cfg:      sc.Cfg,
		logger:   logger,
		limiter:  NewConnectionLimiter(sc.Cfg.Limits.MaxConnections),
		prebound: sc.Listener,
	}, nil
}

// SetHandler sets the connection handler. Must be called before Run.
func (s *Server) SetHandler(handler ConnectionHandler) {
	s.handler = handler
}

// Run starts the listener and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.handler == nil {
		s.handler = s.defaultHandler
	}

	s.listener = NewListener(ListenerConfig{
		Address:        s.cfg.ListenAddress,
		CommandTimeout: s.cfg.Timeouts.CommandTimeout(),
		IdleTimeout:    s.cfg.Timeouts.IdleTimeout(),
		Limiter:        s.limiter,
		Logger:         s.logger,
		Handler:        s.handler,
		Prebound:       s.prebound,
	})
	s.mu.Unlock()

	s.logger.Info("starting server", slog.String("address", s.cfg.ListenAddress))

	err := s.listener.Start(ctx)
	if err == context.Canceled {
		s.logger.Info("server stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("listener %s: %w", s.listener.Address(), err)
	}
	return nil
}

// Shutdown gracefully stops the server, closing the listener.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// Config returns the server's configuration.
func (s *Server) Config() *config.Config { return s.cfg }

// Limiter returns the server's connection limiter.
func (s *Server) Limiter() *ConnectionLimiter { return s.limiter }

// defaultHandler is a placeholder handler used if SetHandler was never
// called; it logs and closes the connection.
func (s *Server) defaultHandler(ctx context.Context, conn *Connection) {
	logger := logging.FromContext(ctx)
	logger.Warn("no connection handler configured, closing connection")
	_ = conn.Close()
}
