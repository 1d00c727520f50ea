package clamd

import "github.com/pior/clamd/protocol"

// Result is the classified outcome of a scan.
// See protocol.Result for the classification rules.
type Result = protocol.Result

// Status classifies a scan reply.
type Status = protocol.Status

const (
	StatusClean = protocol.StatusClean
	StatusFound = protocol.StatusFound
	StatusError = protocol.StatusError
)
