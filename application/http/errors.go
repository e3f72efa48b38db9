package http

import (
	"fmt"

	iolib "container-monitor/lib/io"

	"github.com/pkg/errors"
)

var (
	// ErrEndOfStream is returned when the connection ends before
	// the response is complete. No partial body is ever returned.
	ErrEndOfStream = iolib.ErrEndOfStream

	// ErrUnsupportedResponse is returned when the response has neither
	// Content-Length nor chunked Transfer-Encoding.
	ErrUnsupportedResponse = errors.New("unsupported response: body framing is unknown")

	ErrMalformedChunk = errors.New("chunk is malformed")

	ErrInvalidTarget = errors.New("request target is invalid")
)

// InvalidHeaderError reports a line in the header block that is not a field line.
type InvalidHeaderError struct {
	Line   string
	Reason string
}

func (e *InvalidHeaderError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid header %q", e.Line)
	}
	return fmt.Sprintf("invalid header %q: %s", e.Line, e.Reason)
}
