package http

import (
	"bytes"
	"strconv"
	"strings"

	"container-monitor/application/util/rule"

	"github.com/pkg/errors"
)

// [Major, Minor]
type Version [2]uint

// ParseVersion parses http version text(e.g. "HTTP/1.1") into [Version].
func ParseVersion(b []byte) (Version, error) {
	prefix := []byte("HTTP/")
	if !bytes.HasPrefix(b, prefix) {
		return Version{}, errors.Errorf("http version prefix not found: %s", b)
	}

	// Get major and minor version.
	first, second, found := bytes.Cut(b[len(prefix):], []byte{'.'})
	if !found {
		return Version{}, errors.Errorf("dot seperator not found on version: %s", b)
	}

	major, err1 := strconv.ParseUint(string(first), 10, 64)
	minor, err2 := strconv.ParseUint(string(second), 10, 64)
	if err1 != nil || err2 != nil {
		return Version{}, errors.Errorf("http version is not convertable to int: %s", b)
	}

	return Version{uint(major), uint(minor)}, nil
}

func (ver Version) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.Write([]byte("HTTP/"))
	buf.Write([]byte(strconv.FormatUint(uint64(ver[0]), 10)))
	buf.Write([]byte{'.'})
	buf.Write([]byte(strconv.FormatUint(uint64(ver[1]), 10)))
	return buf.Bytes()
}

func (ver Version) String() string { return string(ver.Text()) }

// StatusLine is the first line of a response.
// The exchange never depends on it, so a line that fails to parse
// only leaves the parsed fields empty.
type StatusLine struct {
	Raw string

	Version      Version
	StatusCode   uint
	ReasonPhrase string
}

// ParseStatusLine parses line into [StatusLine].
// Raw is filled even when an error is returned.
func ParseStatusLine(line string) (StatusLine, error) {
	sl := StatusLine{Raw: line}

	parts := strings.SplitN(line, string(rule.SP), 3)
	if len(parts) < 2 {
		return sl, errors.Errorf("status line is malformed: %q", line)
	}

	ver, err := ParseVersion([]byte(parts[0]))
	if err != nil {
		return sl, errors.Wrap(err, "parsing version")
	}

	statusCode, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || len(parts[1]) != 3 {
		return sl, errors.Errorf("status code is malformed: %q", parts[1])
	}

	sl.Version = ver
	sl.StatusCode = uint(statusCode)
	// reason-phrase is optional.
	if len(parts) == 3 {
		sl.ReasonPhrase = parts[2]
	}

	return sl, nil
}

// Field is a header field.
// Name is lowercased and Value has no surrounding whitespace.
type Field struct{ Name, Value string }

// ParseField parses a field line of form `token *WS ":" *WS value`.
func ParseField(line string) (Field, error) {
	name, value, found := strings.Cut(line, ":")
	if !found {
		return Field{}, &InvalidHeaderError{Line: line, Reason: "colon seperator not found"}
	}

	name = strings.TrimFunc(name, rule.IsWhitespace)
	if !rule.IsValidToken(name) {
		return Field{}, &InvalidHeaderError{Line: line, Reason: "field name is not a valid token"}
	}

	return Field{
		Name:  strings.ToLower(name),
		Value: strings.TrimFunc(value, rule.IsWhitespace),
	}, nil
}

func (f Field) String() string { return f.Name + ": " + f.Value }

// Headers are fields in the order they were received.
// Duplicated names are kept as separate fields.
type Headers []Field

// Find returns the first field matching.
func (h Headers) Find(match func(f Field) bool) (Field, bool) {
	for _, f := range h {
		if match(f) {
			return f, true
		}
	}
	return Field{}, false
}

// Get returns the value of the first field named name.
func (h Headers) Get(name string) (string, bool) {
	name = strings.ToLower(name)
	f, ok := h.Find(func(f Field) bool { return f.Name == name })
	return f.Value, ok
}
