package protocol

import "strings"

// Reply grammar markers. The daemon terminates replies by closing the
// connection; the text forms are fixed by clamd, not by this library.
const (
	// PongReply is the daemon's full reply to PING.
	PongReply = "PONG"

	// VersionBanner starts every VERSION reply, e.g. "ClamAV 1.3.1/27253/...".
	VersionBanner = "ClamAV"

	cleanSuffix     = "OK"
	foundMarker     = " FOUND"
	errorMarker     = "ERROR"
	oversizedMarker = "size limit exceeded"
)

// Status classifies a scan reply.
type Status string

const (
	StatusClean Status = "OK"
	StatusFound Status = "FOUND"
	StatusError Status = "ERROR"
)

// Result is the classified outcome of one INSTREAM exchange.
type Result struct {
	Status Status

	// Signature is the name of the matched signature when Status is
	// StatusFound, e.g. "Eicar-Test-Signature".
	Signature string

	// Message is the daemon's error text when Status is StatusError.
	Message string

	// Raw is the trimmed reply line the classification was derived from.
	Raw string
}

// IsClean reports whether the daemon found nothing.
func (r *Result) IsClean() bool { return r.Status == StatusClean }

// IsInfected reports whether the daemon matched a signature.
func (r *Result) IsInfected() bool { return r.Status == StatusFound }

// IsOversized reports whether the daemon rejected the stream for exceeding
// its configured StreamMaxLength. This is the only signal the protocol has
// for "stream too large": the daemon reports it as an error line
// ("INSTREAM size limit exceeded. ERROR"), never as a distinct reply form.
func (r *Result) IsOversized() bool {
	return r.Status == StatusError && strings.Contains(r.Message, oversizedMarker)
}

// Trim strips the reply terminator: at most one trailing null byte and at
// most one trailing newline.
func Trim(raw []byte) string {
	s := string(raw)
	s = strings.TrimSuffix(s, "\x00")
	s = strings.TrimSuffix(s, "\n")
	return s
}

// IsPong reports whether the trimmed reply is the daemon's answer to PING.
func IsPong(reply string) bool { return reply == PongReply }

// ParseVersion returns the version string verbatim if the trimmed reply
// carries the version banner.
func ParseVersion(reply string) (string, bool) {
	if strings.HasPrefix(reply, VersionBanner) {
		return reply, true
	}
	return "", false
}

// ParseResult classifies a trimmed scan reply. Rules apply in order: a reply
// ending in "OK" is clean; a reply containing "FOUND" names a matched
// signature; a reply containing "ERROR" is a daemon-side error carried
// verbatim; anything else is an error with a generic message. ParseResult
// never fails: an unrecognized reply is an outcome, not a crash.
func ParseResult(reply string) *Result {
	switch {
	case strings.HasSuffix(reply, cleanSuffix):
		return &Result{Status: StatusClean, Raw: reply}

	case strings.Contains(reply, foundMarker):
		return &Result{Status: StatusFound, Signature: parseSignature(reply), Raw: reply}

	case strings.Contains(reply, errorMarker):
		return &Result{Status: StatusError, Message: reply, Raw: reply}

	default:
		return &Result{Status: StatusError, Message: "unrecognized response: " + reply, Raw: reply}
	}
}

// parseSignature extracts the signature name from a FOUND reply: the text
// between the echoed stream label and the " FOUND" marker, e.g.
// "stream: Eicar-Test-Signature FOUND" -> "Eicar-Test-Signature".
func parseSignature(reply string) string {
	head, _, _ := strings.Cut(reply, foundMarker)
	if _, sig, ok := strings.Cut(head, ": "); ok {
		return sig
	}
	return head
}
