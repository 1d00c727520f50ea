package clamd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pior/clamd/protocol"
)

// DefaultChunkSize is a reasonable INSTREAM chunk size for callers with no
// opinion of their own. Config.ChunkSize is still required: the daemon-side
// stream limit is not discoverable at encode time, so the choice is always
// the caller's.
const DefaultChunkSize = 4096

// Config holds the client configuration.
type Config struct {
	// ChunkSize is the maximum payload bytes per INSTREAM chunk frame.
	// Required: must be > 0. DefaultChunkSize is a sensible value.
	ChunkSize int

	// Transport opens connections to the daemon.
	// If nil, a ContextTransport is used.
	Transport Transport

	// NewCircuitBreaker creates a circuit breaker for the daemon address.
	// Called once when the client is created. If nil, no circuit breaker
	// is used.
	NewCircuitBreaker func(addr Address) CircuitBreaker

	// ScanConcurrency bounds the number of simultaneous connections opened
	// by ScanFiles. Zero means one connection per file, all at once.
	ScanConcurrency int
}

// Client talks to a single clamd instance. It holds no connection state:
// every operation opens one connection, performs one command/response
// exchange, and closes it, so a Client is safe for concurrent use from
// multiple goroutines.
type Client struct {
	addr            Address
	chunkSize       int
	transport       Transport
	breaker         CircuitBreaker
	scanConcurrency int
}

// New creates a client for the daemon at addr.
func New(addr Address, config Config) (*Client, error) {
	if addr == nil {
		return nil, fmt.Errorf("clamd: address is required")
	}
	if config.ChunkSize <= 0 {
		return nil, fmt.Errorf("clamd: ChunkSize must be > 0, got %d", config.ChunkSize)
	}

	transport := config.Transport
	if transport == nil {
		transport = &ContextTransport{}
	}

	var breaker CircuitBreaker
	if config.NewCircuitBreaker != nil {
		breaker = config.NewCircuitBreaker(addr)
	}

	return &Client{
		addr:            addr,
		chunkSize:       config.ChunkSize,
		transport:       transport,
		breaker:         breaker,
		scanConcurrency: config.ScanConcurrency,
	}, nil
}

// Addr returns the daemon address this client talks to.
func (c *Client) Addr() Address { return c.addr }

// PingContext checks that the daemon is up. It returns nil if the daemon
// answers PONG, a ProtocolError for any other reply, and a ConnectError or
// IOError if the exchange fails.
func (c *Client) PingContext(ctx context.Context) error {
	_, err := c.exec(func() (*protocol.Result, error) {
		reply, err := c.command(ctx, protocol.CmdPing)
		if err != nil {
			return nil, err
		}
		if !protocol.IsPong(reply) {
			return nil, &ProtocolError{Response: reply}
		}
		return nil, nil
	})
	return err
}

// Ping is the blocking form of PingContext.
func (c *Client) Ping() error {
	return c.PingContext(context.Background())
}

// VersionContext returns the daemon's version banner verbatim.
func (c *Client) VersionContext(ctx context.Context) (string, error) {
	var version string
	_, err := c.exec(func() (*protocol.Result, error) {
		reply, err := c.command(ctx, protocol.CmdVersion)
		if err != nil {
			return nil, err
		}
		v, ok := protocol.ParseVersion(reply)
		if !ok {
			return nil, &ProtocolError{Response: reply}
		}
		version = v
		return nil, nil
	})
	return version, err
}

// Version is the blocking form of VersionContext.
func (c *Client) Version() (string, error) {
	return c.VersionContext(context.Background())
}

// ScanContext streams src to the daemon for scanning and returns the
// classified result. src may be anything that reads bytes: an in-memory
// buffer, an open file, or a live producer; it is consumed once and never
// buffered in full.
//
// Daemon-side outcomes (clean, signature found, daemon error including the
// oversized-stream rejection) are carried on the Result; Go errors are
// reserved for transport failures.
func (c *Client) ScanContext(ctx context.Context, src io.Reader) (*Result, error) {
	return c.exec(func() (*protocol.Result, error) {
		return c.scan(ctx, src)
	})
}

// Scan is the blocking form of ScanContext.
func (c *Client) Scan(src io.Reader) (*Result, error) {
	return c.ScanContext(context.Background(), src)
}

// ScanBytesContext scans an in-memory buffer.
func (c *Client) ScanBytesContext(ctx context.Context, data []byte) (*Result, error) {
	return c.ScanContext(ctx, bytes.NewReader(data))
}

// ScanBytes is the blocking form of ScanBytesContext.
func (c *Client) ScanBytes(data []byte) (*Result, error) {
	return c.ScanBytesContext(context.Background(), data)
}

// ScanFileContext opens the file at path and scans it.
func (c *Client) ScanFileContext(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return c.ScanContext(ctx, f)
}

// ScanFile is the blocking form of ScanFileContext.
func (c *Client) ScanFile(path string) (*Result, error) {
	return c.ScanFileContext(context.Background(), path)
}

// ShutdownContext asks the daemon to perform a clean exit. The daemon closes
// the connection without a reply.
func (c *Client) ShutdownContext(ctx context.Context) error {
	_, err := c.exec(func() (*protocol.Result, error) {
		_, err := c.command(ctx, protocol.CmdShutdown)
		return nil, err
	})
	return err
}

// Shutdown is the blocking form of ShutdownContext.
func (c *Client) Shutdown() error {
	return c.ShutdownContext(context.Background())
}

// exec runs one exchange, through the circuit breaker when configured.
func (c *Client) exec(fn func() (*protocol.Result, error)) (*protocol.Result, error) {
	if c.breaker != nil {
		return c.breaker.Execute(fn)
	}
	return fn()
}

// command performs a plain command/response exchange: connect, write the
// frame, read the reply to close, release the connection.
func (c *Client) command(ctx context.Context, cmd protocol.Command) (string, error) {
	conn, err := c.transport.Connect(ctx, c.addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if _, err := conn.Write(cmd.Frame()); err != nil {
		return "", err
	}

	raw, err := conn.ReadToClose()
	if err != nil {
		return "", err
	}
	return protocol.Trim(raw), nil
}

// scan performs the INSTREAM exchange. The connection is released on every
// exit path; any transport failure aborts the exchange immediately.
func (c *Client) scan(ctx context.Context, src io.Reader) (*protocol.Result, error) {
	conn, err := c.transport.Connect(ctx, c.addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(protocol.CmdInstream.Frame()); err != nil {
		return nil, err
	}

	cw, err := protocol.NewChunkWriter(conn, c.chunkSize)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, c.chunkSize)
	if _, err := io.CopyBuffer(cw, src, buf); err != nil {
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			return nil, err
		}
		// Failure on the source side, not the socket.
		return nil, &IOError{Op: "stream", Err: err}
	}
	if err := cw.Terminate(); err != nil {
		return nil, err
	}

	raw, err := conn.ReadToClose()
	if err != nil {
		return nil, err
	}
	return protocol.ParseResult(protocol.Trim(raw)), nil
}
