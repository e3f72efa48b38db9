package http

import (
	"bytes"
	"strings"

	"container-monitor/application/util/rule"

	"github.com/pkg/errors"
)

// EncodeGetRequest builds the whole request message.
// The connection is always closed after the response.
func EncodeGetRequest(target, host string) ([]byte, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}
	if strings.ContainsAny(host, "\r\n") {
		return nil, errors.Errorf("host contains line terminator: %q", host)
	}

	buf := bytes.NewBuffer(make([]byte, 0, 64+len(target)+len(host)))
	writeLine(buf, "GET "+target+" HTTP/1.1")
	writeLine(buf, "Host: "+host)
	writeLine(buf, "Connection: close")
	writeLine(buf, "")

	return buf.Bytes(), nil
}

func writeLine(buf *bytes.Buffer, line string) {
	buf.WriteString(line)
	buf.Write(rule.CRLF)
}

func validateTarget(target string) error {
	if len(target) == 0 {
		return errors.Wrap(ErrInvalidTarget, "request target should not be empty")
	}

	// Whitespace would split the request line.
	if strings.ContainsFunc(target, func(r rune) bool { return rule.IsWhitespace(r) || r == rune(rule.LF) }) {
		return errors.Wrapf(ErrInvalidTarget, "request target contains whitespace: %q", target)
	}

	return nil
}
