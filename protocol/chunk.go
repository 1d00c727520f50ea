package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// chunk frame header: payload length as a big-endian uint32
const chunkHeaderSize = 4

var errTerminated = errors.New("clamd protocol: chunk stream already terminated")

// ChunkWriter encodes a byte stream as INSTREAM chunk frames onto w:
// repeated [4-byte big-endian length][payload], every length in
// [1, chunkSize], finished by a single zero-length frame from Terminate.
//
// ChunkWriter is an io.Writer, so any byte source that is an io.Reader can be
// streamed through it with io.Copy without the payload ever being resident in
// full. Writes larger than chunkSize are split into consecutive frames; short
// trailing slices are emitted as-is, never coalesced with the next write.
type ChunkWriter struct {
	w          io.Writer
	chunkSize  int
	terminated bool
	header     [chunkHeaderSize]byte
}

// NewChunkWriter returns a ChunkWriter emitting frames of at most chunkSize
// payload bytes. chunkSize must be positive.
func NewChunkWriter(w io.Writer, chunkSize int) (*ChunkWriter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("clamd protocol: chunk size must be positive, got %d", chunkSize)
	}
	return &ChunkWriter{w: w, chunkSize: chunkSize}, nil
}

// Write encodes p as one or more chunk frames. An empty p writes nothing: a
// zero-length frame means end-of-stream and only Terminate may emit it.
func (cw *ChunkWriter) Write(p []byte) (int, error) {
	if cw.terminated {
		return 0, errTerminated
	}

	written := 0
	for len(p) > 0 {
		n := min(len(p), cw.chunkSize)

		binary.BigEndian.PutUint32(cw.header[:], uint32(n))
		if _, err := cw.w.Write(cw.header[:]); err != nil {
			return written, err
		}
		if _, err := cw.w.Write(p[:n]); err != nil {
			return written, err
		}

		written += n
		p = p[n:]
	}
	return written, nil
}

// Terminate writes the zero-length frame that ends the stream and tells the
// daemon to scan what it received. Exactly one terminal frame is written no
// matter how often Terminate is called.
func (cw *ChunkWriter) Terminate() error {
	if cw.terminated {
		return nil
	}
	cw.terminated = true

	binary.BigEndian.PutUint32(cw.header[:], 0)
	_, err := cw.w.Write(cw.header[:])
	return err
}
