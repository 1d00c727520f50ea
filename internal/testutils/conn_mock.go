package testutils

import (
	"bytes"
	"errors"
	"sync"
)

// ConnMock is a scripted single-exchange connection for testing framing and
// connection lifecycle accounting without a socket. It satisfies the parent
// package's Conn interface structurally.
type ConnMock struct {
	// Reply is returned by ReadToClose.
	Reply []byte

	// WriteErr, when set, fails every Write.
	WriteErr error
	// ReadErr, when set, fails ReadToClose.
	ReadErr error

	mu         sync.Mutex
	written    bytes.Buffer
	closeCount int
}

func (m *ConnMock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closeCount > 0 {
		return 0, errors.New("write on closed connection")
	}
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	return m.written.Write(p)
}

func (m *ConnMock) ReadToClose() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.Reply, nil
}

func (m *ConnMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCount++
	return nil
}

// Written returns everything written to the connection so far.
func (m *ConnMock) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.Bytes()
}

// CloseCount returns how many times Close was called.
func (m *ConnMock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}
