// Package protocol implements the clamd wire protocol: command frame
// encoding, INSTREAM chunk framing, and reply classification.
//
// The protocol is fixed by the daemon. Commands are short ASCII tokens,
// 'z'-prefixed and null-terminated. INSTREAM payloads are streamed as
// [4-byte big-endian length][payload] frames ended by one zero-length frame.
// Replies are a single line of ASCII text terminated by the daemon closing
// the connection.
//
// This package is transport-free; it encodes onto any io.Writer and
// classifies raw reply bytes. Connection handling lives in the parent
// package.
package protocol
