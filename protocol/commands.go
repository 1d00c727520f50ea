package protocol

// Command is one of the clamd control commands this client speaks.
type Command string

const (
	CmdPing     Command = "PING"
	CmdVersion  Command = "VERSION"
	CmdShutdown Command = "SHUTDOWN"
	CmdInstream Command = "INSTREAM"
)

// Frame returns the wire encoding of the command: the ASCII token prefixed
// with 'z' and terminated with a null byte. The 'z' prefix tells the daemon
// to null-terminate its reply as well.
//
// After an INSTREAM frame the daemon expects the chunk stream immediately on
// the same connection; there is no separator.
func (c Command) Frame() []byte {
	frame := make([]byte, 0, len(c)+2)
	frame = append(frame, 'z')
	frame = append(frame, c...)
	frame = append(frame, 0)
	return frame
}
