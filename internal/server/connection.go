package server

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Connection wraps a net.Conn with buffered I/O and deadline helpers used
// by the accept loop and, after a session worker takes over, by the
// command loop.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer

	commandTimeout time.Duration
	idleTimeout    time.Duration

	closed atomic.Bool
	mu     sync.Mutex
}

// ConnectionConfig configures a new Connection.
type ConnectionConfig struct {
	CommandTimeout time.Duration
	IdleTimeout    time.Duration
}

// NewConnection wraps conn with buffered reader/writer and the configured
// timeouts.
func NewConnection(conn net.Conn, cfg ConnectionConfig) *Connection {
	return &Connection{
		conn:           conn,
		reader:         bufio.NewReader(conn),
		writer:         bufio.NewWriter(conn),
		commandTimeout: cfg.CommandTimeout,
		idleTimeout:    cfg.IdleTimeout,
	}
}

// Reader returns the buffered reader for this connection.
func (c *Connection) Reader() *bufio.Reader { return c.reader }

// Writer returns the buffered writer for this connection.
func (c *Connection) Writer() *bufio.Writer { return c.writer }

// Flush flushes any buffered writes to the underlying connection.
func (c *Connection) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writer.Flush()
}

// RawConn returns the underlying net.Conn, for operations (such as taking
// its file descriptor) the buffered wrapper does not expose.
func (c *Connection) RawConn() net.Conn { return c.conn }

// SetCommandTimeout sets a read deadline commandTimeout in the future, or
// clears it if commandTimeout is zero.
func (c *Connection) SetCommandTimeout() error {
	if c.commandTimeout <= 0 {
		return c.conn.SetReadDeadline(time.Time{})
	}
	return c.conn.SetReadDeadline(time.Now().Add(c.commandTimeout))
}

// ResetIdleTimeout extends the read deadline by the configured idle
// timeout. Call after each successfully processed command.
func (c *Connection) ResetIdleTimeout() error {
	if c.idleTimeout <= 0 {
		return c.conn.SetReadDeadline(time.Time{})
	}
	return c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
}

// IsClosed reports whether Close has been called on this connection.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}
