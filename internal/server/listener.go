package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

// ConnectionHandler processes a single accepted connection. It owns the
// connection for its lifetime and is responsible for closing it.
type ConnectionHandler func(ctx context.Context, conn *Connection)

// ListenerConfig configures a single Listener.
type ListenerConfig struct {
	Address        string
	CommandTimeout time.Duration
	IdleTimeout    time.Duration
	Limiter        *ConnectionLimiter
	Logger         *slog.Logger
	Handler        ConnectionHandler

	// Prebound, when set, is used instead of calling net.Listen, so a
	// caller can hand in a socket obtained through an upgrade-aware
	// listener (e.g. tableflip.Fds.Listen) that survives a binary
	// replacement across a SIGHUP-triggered restart.
	Prebound net.Listener
}

// Listener accepts connections on a single address and dispatches each to
// the configured handler in its own goroutine.
type Listener struct {
	cfg  ListenerConfig
	ln   net.Listener
	addr atomic.Value
}

// NewListener creates a Listener bound to cfg.Address. The socket is not
// opened until Start is called.
func NewListener(cfg ListenerConfig) *Listener {
	l := &Listener{cfg: cfg}
	l.addr.Store(cfg.Address)
	return l
}

// Address returns the listener's address: the configured address before
// Start is called, and the actual bound address (with a concrete port,
// when the configured address used port 0) afterward.
func (l *Listener) Address() string { return l.addr.Load().(string) }

// Start opens the listening socket and accepts connections until ctx is
// canceled or Close is called.
func (l *Listener) Start(ctx context.Context) error {
	ln := l.cfg.Prebound
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", l.cfg.Address)
		if err != nil {
			return err
		}
	}
	l.ln = ln
	l.addr.Store(ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		rawConn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return context.Canceled
			}
			return err
		}

		if l.cfg.Limiter != nil && !l.cfg.Limiter.TryAcquire() {
			l.cfg.Logger.Warn("connection limit reached, rejecting", slog.String("remote", rawConn.RemoteAddr().String()))
			_ = rawConn.Close()
			continue
		}

		conn := NewConnection(rawConn, ConnectionConfig{
			CommandTimeout: l.cfg.CommandTimeout,
			IdleTimeout:    l.cfg.IdleTimeout,
		})

		go func() {
			defer func() {
				if l.cfg.Limiter != nil {
					l.cfg.Limiter.Release()
				}
			}()
			l.cfg.Handler(ctx, conn)
		}()
	}
}

// Close stops the listener, causing Start to return.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
