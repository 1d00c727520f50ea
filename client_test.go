package clamd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/clamd/internal/testutils"
)

// transports returns the two execution variants; protocol behavior must be
// identical under both.
func transports() map[string]Transport {
	return map[string]Transport{
		"blocking": &BlockingTransport{},
		"context":  &ContextTransport{},
	}
}

func startDaemon(t *testing.T, config testutils.DaemonConfig) *testutils.Daemon {
	t.Helper()

	daemon, err := testutils.StartDaemon("tcp", "127.0.0.1:0", config)
	require.NoError(t, err)
	t.Cleanup(daemon.Close)
	return daemon
}

func newTestClient(t *testing.T, daemon *testutils.Daemon, transport Transport) *Client {
	t.Helper()

	client, err := New(
		TCPAddress{Host: "127.0.0.1", Port: daemon.Port()},
		Config{ChunkSize: 128, Transport: transport},
	)
	require.NoError(t, err)
	return client
}

// unreachableAddress returns a TCP address nothing listens on.
func unreachableAddress(t *testing.T) TCPAddress {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return TCPAddress{Host: "127.0.0.1", Port: port}
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Config{ChunkSize: 128})
	assert.Error(t, err)

	_, err = New(TCPAddress{Host: "localhost", Port: 3310}, Config{})
	assert.Error(t, err)

	_, err = New(TCPAddress{Host: "localhost", Port: 3310}, Config{ChunkSize: -1})
	assert.Error(t, err)

	client, err := New(TCPAddress{Host: "localhost", Port: 3310}, Config{ChunkSize: DefaultChunkSize})
	require.NoError(t, err)
	assert.Equal(t, "localhost:3310", client.Addr().String())
}

func TestPing(t *testing.T) {
	daemon := startDaemon(t, testutils.DaemonConfig{})

	for name, transport := range transports() {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, daemon, transport)
			require.NoError(t, client.Ping())
		})
	}
}

func TestPingUnreachable(t *testing.T) {
	addr := unreachableAddress(t)

	for name, transport := range transports() {
		t.Run(name, func(t *testing.T) {
			client, err := New(addr, Config{ChunkSize: 128, Transport: transport})
			require.NoError(t, err)

			err = client.Ping()
			require.Error(t, err)
			assert.True(t, IsConnectError(err), "expected ConnectError, got %v", err)
		})
	}
}

func TestVersion(t *testing.T) {
	daemon := startDaemon(t, testutils.DaemonConfig{Version: "ClamAV 1.3.1/27253/Mon Aug 31 08:21:04 2026"})

	for name, transport := range transports() {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, daemon, transport)

			version, err := client.Version()
			require.NoError(t, err)
			assert.Equal(t, "ClamAV 1.3.1/27253/Mon Aug 31 08:21:04 2026", version)
		})
	}
}

func TestScanClean(t *testing.T) {
	daemon := startDaemon(t, testutils.DaemonConfig{})
	client := newTestClient(t, daemon, nil)

	payload := bytes.Repeat([]byte("all quiet here. "), 100)
	result, err := client.ScanBytes(payload)
	require.NoError(t, err)
	assert.True(t, result.IsClean())
	assert.False(t, result.IsInfected())
	assert.Equal(t, StatusClean, result.Status)
}

func TestScanEmptyPayload(t *testing.T) {
	daemon := startDaemon(t, testutils.DaemonConfig{})
	client := newTestClient(t, daemon, nil)

	result, err := client.ScanBytes(nil)
	require.NoError(t, err)
	assert.True(t, result.IsClean())
}

func TestScanInfected(t *testing.T) {
	daemon := startDaemon(t, testutils.DaemonConfig{})

	for name, transport := range transports() {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, daemon, transport)

			// bury the signature mid-stream so it crosses chunk frames
			payload := append(bytes.Repeat([]byte("x"), 300), testutils.EICAR...)
			payload = append(payload, bytes.Repeat([]byte("y"), 300)...)

			result, err := client.ScanBytes(payload)
			require.NoError(t, err)
			assert.True(t, result.IsInfected())
			assert.Contains(t, result.Signature, "Eicar")
		})
	}
}

func TestScanOversized(t *testing.T) {
	daemon := startDaemon(t, testutils.DaemonConfig{MaxStreamSize: 1000})

	for name, transport := range transports() {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, daemon, transport)

			result, err := client.ScanBytes(make([]byte, 1001))
			require.NoError(t, err)
			assert.True(t, result.IsOversized())
			assert.Equal(t, StatusError, result.Status)
			assert.Contains(t, result.Message, "size limit exceeded")
		})
	}
}

func TestScanFile(t *testing.T) {
	daemon := startDaemon(t, testutils.DaemonConfig{})
	client := newTestClient(t, daemon, nil)

	path := filepath.Join(t.TempDir(), "eicar.txt")
	require.NoError(t, os.WriteFile(path, testutils.EICAR, 0o644))

	result, err := client.ScanFile(path)
	require.NoError(t, err)
	assert.True(t, result.IsInfected())

	_, err = client.ScanFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestScanSourceFailure(t *testing.T) {
	daemon := startDaemon(t, testutils.DaemonConfig{})
	client := newTestClient(t, daemon, nil)

	boom := errors.New("disk on fire")
	src := io.MultiReader(bytes.NewReader(make([]byte, 300)), &failingReader{err: boom})

	_, err := client.Scan(src)
	require.Error(t, err)
	assert.True(t, IsIOError(err))
	assert.ErrorIs(t, err, boom)
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestShutdown(t *testing.T) {
	daemon := startDaemon(t, testutils.DaemonConfig{})
	client := newTestClient(t, daemon, nil)

	require.NoError(t, client.Shutdown())
}

func TestUnixSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clamd.sock")

	daemon, err := testutils.StartDaemon("unix", path, testutils.DaemonConfig{})
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	t.Cleanup(daemon.Close)

	for name, transport := range transports() {
		t.Run(name, func(t *testing.T) {
			client, err := New(UnixAddress{Path: path}, Config{ChunkSize: 128, Transport: transport})
			require.NoError(t, err)

			require.NoError(t, client.Ping())

			result, err := client.ScanBytes(testutils.EICAR)
			require.NoError(t, err)
			assert.True(t, result.IsInfected())
		})
	}
}

// mockTransport hands out scripted connections and records lifecycle calls.
type mockTransport struct {
	conns      []*testutils.ConnMock
	reply      []byte
	writeErr   error
	readErr    error
	connectErr error
}

func (m *mockTransport) Connect(ctx context.Context, addr Address) (Conn, error) {
	if m.connectErr != nil {
		return nil, &ConnectError{Addr: addr, Err: m.connectErr}
	}
	conn := &testutils.ConnMock{Reply: m.reply, WriteErr: m.writeErr, ReadErr: m.readErr}
	m.conns = append(m.conns, conn)
	return conn, nil
}

func newMockClient(t *testing.T, transport *mockTransport, chunkSize int) *Client {
	t.Helper()

	client, err := New(TCPAddress{Host: "127.0.0.1", Port: 3310}, Config{
		ChunkSize: chunkSize,
		Transport: transport,
	})
	require.NoError(t, err)
	return client
}

func TestScanWireFormat(t *testing.T) {
	transport := &mockTransport{reply: []byte("stream: OK\x00")}
	client := newMockClient(t, transport, 4)

	result, err := client.ScanBytes([]byte("0123456789"))
	require.NoError(t, err)
	assert.True(t, result.IsClean())

	require.Len(t, transport.conns, 1)
	expected := "zINSTREAM\x00" +
		"\x00\x00\x00\x040123" +
		"\x00\x00\x00\x044567" +
		"\x00\x00\x00\x0289" +
		"\x00\x00\x00\x00"
	assert.Equal(t, []byte(expected), transport.conns[0].Written())
}

func TestPingWireFormat(t *testing.T) {
	transport := &mockTransport{reply: []byte("PONG\x00")}
	client := newMockClient(t, transport, 128)

	require.NoError(t, client.Ping())
	require.Len(t, transport.conns, 1)
	assert.Equal(t, []byte("zPING\x00"), transport.conns[0].Written())
}

func TestPingUnexpectedReply(t *testing.T) {
	transport := &mockTransport{reply: []byte("GOOD MORNING\x00")}
	client := newMockClient(t, transport, 128)

	err := client.Ping()
	require.Error(t, err)
	assert.True(t, IsProtocolError(err))
}

func TestVersionUnexpectedReply(t *testing.T) {
	transport := &mockTransport{reply: []byte("COMMAND READ TIMED OUT\x00")}
	client := newMockClient(t, transport, 128)

	_, err := client.Version()
	require.Error(t, err)
	assert.True(t, IsProtocolError(err))
}

// The connection must be closed exactly once per call, whatever the outcome.
func TestConnectionClosedOnEveryPath(t *testing.T) {
	payload := []byte("some payload")

	t.Run("scan success", func(t *testing.T) {
		transport := &mockTransport{reply: []byte("stream: OK\x00")}
		client := newMockClient(t, transport, 4)

		_, err := client.ScanBytes(payload)
		require.NoError(t, err)
		require.Len(t, transport.conns, 1)
		assert.Equal(t, 1, transport.conns[0].CloseCount())
	})

	t.Run("scan write failure", func(t *testing.T) {
		transport := &mockTransport{writeErr: errors.New("broken pipe")}
		client := newMockClient(t, transport, 4)

		_, err := client.ScanBytes(payload)
		require.Error(t, err)
		require.Len(t, transport.conns, 1)
		assert.Equal(t, 1, transport.conns[0].CloseCount())
	})

	t.Run("scan read failure", func(t *testing.T) {
		transport := &mockTransport{readErr: errors.New("connection reset")}
		client := newMockClient(t, transport, 4)

		_, err := client.ScanBytes(payload)
		require.Error(t, err)
		require.Len(t, transport.conns, 1)
		assert.Equal(t, 1, transport.conns[0].CloseCount())
	})

	t.Run("ping protocol failure", func(t *testing.T) {
		transport := &mockTransport{reply: []byte("NOT PONG\x00")}
		client := newMockClient(t, transport, 4)

		require.Error(t, client.Ping())
		require.Len(t, transport.conns, 1)
		assert.Equal(t, 1, transport.conns[0].CloseCount())
	})

	t.Run("connect failure opens nothing", func(t *testing.T) {
		transport := &mockTransport{connectErr: errors.New("refused")}
		client := newMockClient(t, transport, 4)

		_, err := client.ScanBytes(payload)
		require.Error(t, err)
		assert.Empty(t, transport.conns)
	})
}
