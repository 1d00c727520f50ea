// Package testutils provides test helpers for the clamd client: an
// in-process fake daemon speaking the wire protocol and a scripted
// connection mock.
package testutils

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
)

// EICAR is the standardized antivirus test file content. Every scanner is
// required to detect it; the fake daemon recognizes it as well.
var EICAR = []byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`)

// EICARSignature is the signature name the fake daemon reports for EICAR.
const EICARSignature = "Eicar-Test-Signature"

// DefaultVersion is the fake daemon's VERSION banner.
const DefaultVersion = "ClamAV 1.3.1/27253/Mon Aug 31 08:21:04 2026"

// DaemonConfig configures the fake daemon.
type DaemonConfig struct {
	// Version is the VERSION reply. Defaults to DefaultVersion.
	Version string

	// MaxStreamSize is the daemon-side StreamMaxLength in bytes. A stream
	// exceeding it is rejected with "INSTREAM size limit exceeded. ERROR".
	// Zero means unlimited.
	MaxStreamSize int64
}

// Daemon is a fake clamd listening on a real socket. It implements PING,
// VERSION, SHUTDOWN and INSTREAM, replies with null-terminated lines, and
// closes each connection after one exchange, like the real daemon.
type Daemon struct {
	listener net.Listener
	config   DaemonConfig

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// StartDaemon starts a fake daemon on the given network ("tcp" or "unix")
// and address. Use "127.0.0.1:0" to pick a free TCP port.
func StartDaemon(network, addr string, config DaemonConfig) (*Daemon, error) {
	if config.Version == "" {
		config.Version = DefaultVersion
	}

	listener, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		listener: listener,
		config:   config,
		conns:    make(map[net.Conn]struct{}),
	}
	d.wg.Add(1)
	go d.serve()
	return d, nil
}

// Addr returns the daemon's listen address.
func (d *Daemon) Addr() net.Addr {
	return d.listener.Addr()
}

// Port returns the TCP port the daemon listens on.
func (d *Daemon) Port() int {
	return d.listener.Addr().(*net.TCPAddr).Port
}

// Close stops the listener and tears down any active connections.
func (d *Daemon) Close() {
	d.listener.Close()

	d.mu.Lock()
	for conn := range d.conns {
		conn.Close()
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Daemon) serve() {
	defer d.wg.Done()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}

		d.mu.Lock()
		d.conns[conn] = struct{}{}
		d.mu.Unlock()

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer func() {
				d.mu.Lock()
				delete(d.conns, conn)
				d.mu.Unlock()
				conn.Close()
			}()
			d.handle(conn)
		}()
	}
}

func (d *Daemon) handle(conn net.Conn) {
	r := bufio.NewReader(conn)

	command, err := r.ReadString(0)
	if err != nil {
		return
	}
	command = strings.TrimSuffix(strings.TrimPrefix(command, "z"), "\x00")

	switch command {
	case "PING":
		reply(conn, "PONG")
	case "VERSION":
		reply(conn, d.config.Version)
	case "SHUTDOWN":
		// clean exit, no reply
	case "INSTREAM":
		d.handleInstream(conn, r)
	default:
		reply(conn, fmt.Sprintf("UNKNOWN COMMAND: %s", command))
	}
}

// handleInstream consumes chunk frames until the zero-length terminator,
// then replies with a verdict. A stream exceeding MaxStreamSize is rejected
// as soon as the limit is crossed, before the terminator arrives.
func (d *Daemon) handleInstream(conn net.Conn, r *bufio.Reader) {
	var total int64
	var data []byte
	header := make([]byte, 4)

	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return
		}

		size := binary.BigEndian.Uint32(header)
		if size == 0 {
			if bytes.Contains(data, EICAR) {
				reply(conn, fmt.Sprintf("stream: %s FOUND", EICARSignature))
			} else {
				reply(conn, "stream: OK")
			}
			return
		}

		total += int64(size)
		if d.config.MaxStreamSize > 0 && total > d.config.MaxStreamSize {
			replyAndDrain(conn, r, "INSTREAM size limit exceeded. ERROR")
			return
		}

		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return
		}
		data = append(data, chunk...)
	}
}

func reply(conn net.Conn, line string) {
	conn.Write([]byte(line + "\x00"))
}

// replyAndDrain sends the reply, half-closes the write side, and drains the
// client's remaining chunk frames so its in-flight writes never fail with a
// reset before it had a chance to read the reply.
func replyAndDrain(conn net.Conn, r *bufio.Reader, line string) {
	reply(conn, line)
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
		io.Copy(io.Discard, r)
	}
}
