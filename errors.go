package clamd

import (
	"errors"
	"fmt"
)

// Error types for clamd exchanges.
//
// Every failure surfaces to the caller as one of these; the library never
// retries and never suppresses. The connection involved is always released
// before the error is returned, so callers only decide policy (log, retry,
// alert), never cleanup.

// ConnectError indicates the daemon could not be reached: target unreachable,
// connection refused, permission denied on a socket path, or the socket type
// is unsupported on the running platform.
type ConnectError struct {
	Addr Address
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("clamd: connect %s %s: %v", e.Addr.Network(), e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IOError indicates a read or write failed mid-exchange, e.g. the peer reset
// the connection or the pipe broke while streaming chunks.
type IOError struct {
	Op  string // "read", "write", "stream"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("clamd: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ProtocolError indicates the daemon replied with something outside the
// recognized grammar for the command that was sent, e.g. a non-PONG reply to
// PING. It is the ceiling for unclassifiable replies: they never escalate
// past this error.
type ProtocolError struct {
	Response string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("clamd: unexpected response %q", e.Response)
}

// IsConnectError reports whether err is or wraps a ConnectError.
func IsConnectError(err error) bool {
	var e *ConnectError
	return errors.As(err, &e)
}

// IsIOError reports whether err is or wraps an IOError.
func IsIOError(err error) bool {
	var e *IOError
	return errors.As(err, &e)
}

// IsProtocolError reports whether err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var e *ProtocolError
	return errors.As(err, &e)
}
