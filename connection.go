package clamd

import (
	"context"
	"io"
	"net"
	"sync"
	"time"
)

// Conn is one side of a single command/response exchange with clamd.
//
// The daemon closes its half of the connection after replying, so a Conn is
// good for exactly one exchange: write the command (and, for INSTREAM, the
// chunk stream), read the reply to close, then Close.
type Conn interface {
	// Write writes all of p or fails; it follows the io.Writer contract.
	io.Writer

	// ReadToClose reads until the daemon closes its write side and returns
	// everything received. The reply protocol has no terminator other than
	// connection close.
	ReadToClose() ([]byte, error)

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Connection wraps a net.Conn as a single-exchange Conn.
type Connection struct {
	conn net.Conn

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

var _ Conn = (*Connection)(nil)

// NewConnection wraps an established net.Conn.
func NewConnection(netConn net.Conn) *Connection {
	return &Connection{
		conn: netConn,
		done: make(chan struct{}),
	}
}

func (c *Connection) Write(p []byte) (int, error) {
	n, err := c.conn.Write(p)
	if err != nil {
		return n, &IOError{Op: "write", Err: err}
	}
	return n, nil
}

// ReadToClose reads the daemon's reply until EOF.
func (c *Connection) ReadToClose() ([]byte, error) {
	data, err := io.ReadAll(c.conn)
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	return data, nil
}

// Close closes the underlying connection. The first call closes, later calls
// are no-ops, so deferred cleanup and explicit release can coexist.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// IsClosed reports whether Close has been called.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// setDeadline applies a context deadline to the socket, or clears any
// previous deadline when the context has none.
func (c *Connection) setDeadline(ctx context.Context) {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
	} else {
		c.conn.SetDeadline(time.Time{})
	}
}

// watch closes the connection when ctx is cancelled before the exchange
// finishes, which unblocks any in-flight read or write.
func (c *Connection) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		c.Close()
	case <-c.done:
	}
}
