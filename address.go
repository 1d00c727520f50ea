package clamd

import (
	"net"
	"strconv"
)

// Address identifies a clamd instance. Two variants exist: TCPAddress for a
// daemon listening on host:port, and UnixAddress for a daemon listening on a
// Unix domain socket.
//
// The interface mirrors net.Addr so an Address can be handed straight to a
// dialer.
type Address interface {
	// Network returns the dial network, "tcp" or "unix".
	Network() string
	// String returns the dialable address for that network.
	String() string
}

// TCPAddress locates a clamd instance over TCP.
type TCPAddress struct {
	Host string
	Port int
}

func (a TCPAddress) Network() string { return "tcp" }

func (a TCPAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// UnixAddress locates a clamd instance over a Unix domain socket.
// Dialing fails with a ConnectError on platforms without Unix socket support.
type UnixAddress struct {
	Path string
}

func (a UnixAddress) Network() string { return "unix" }

func (a UnixAddress) String() string { return a.Path }
