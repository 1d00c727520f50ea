package clamd

import (
	"context"
	"net"
)

// Transport opens connections to a clamd instance. Two implementations are
// provided: BlockingTransport and ContextTransport. All protocol logic above
// this interface is transport-agnostic; both variants produce byte-identical
// wire traffic.
type Transport interface {
	Connect(ctx context.Context, addr Address) (Conn, error)
}

// BlockingTransport dials with plain blocking sockets. Every operation on the
// resulting connection blocks the calling goroutine until the OS completes
// it; the context is only consulted before the dial starts. Use it when the
// caller owns its own timeout policy or wants one scan per goroutine with no
// cancellation machinery.
type BlockingTransport struct {
	// Dialer is used to open connections. If nil, a zero net.Dialer is used
	// (no timeout, per the no-internal-timeout policy).
	Dialer *net.Dialer
}

var _ Transport = (*BlockingTransport)(nil)

func (t *BlockingTransport) Connect(ctx context.Context, addr Address) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	netConn, err := t.dialer().Dial(addr.Network(), addr.String())
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}
	return NewConnection(netConn), nil
}

func (t *BlockingTransport) dialer() *net.Dialer {
	if t.Dialer != nil {
		return t.Dialer
	}
	return &net.Dialer{}
}

// ContextTransport dials with DialContext and keeps the connection under the
// context's control: a context deadline becomes the socket deadline, and a
// watchdog closes the connection the moment the context is cancelled, which
// unblocks any in-flight read or write. This is the variant to use when many
// scans are multiplexed over a small number of goroutines and must be
// abandonable mid-stream.
type ContextTransport struct {
	// Dialer is used to open connections. If nil, a zero net.Dialer is used.
	Dialer *net.Dialer
}

var _ Transport = (*ContextTransport)(nil)

func (t *ContextTransport) Connect(ctx context.Context, addr Address) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	netConn, err := dialer.DialContext(ctx, addr.Network(), addr.String())
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	conn := NewConnection(netConn)
	conn.setDeadline(ctx)
	go conn.watch(ctx)
	return conn, nil
}
