package http

import (
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"

	"container-monitor/application/util/rule"
	iolib "container-monitor/lib/io"

	"github.com/pkg/errors"
)

type FramingMode uint8

const (
	FramingUnsupported FramingMode = iota
	FramingContentLength
	FramingChunked
)

// Framing tells how the response body is delimited.
type Framing struct {
	Mode          FramingMode
	ContentLength int // Only meaningful for FramingContentLength.
}

func (f Framing) String() string {
	switch f.Mode {
	case FramingContentLength:
		return "content-length(" + strconv.Itoa(f.ContentLength) + ")"
	case FramingChunked:
		return "chunked"
	default:
		return "unsupported"
	}
}

// FramingOf decides the body framing from the headers.
//
// The first content-length field wins over everything else.
// Otherwise a transfer-encoding field with the exact value "chunked" selects chunked framing.
func FramingOf(h Headers) (Framing, error) {
	if v, ok := h.Get("content-length"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			f := Field{Name: "content-length", Value: v}
			return Framing{}, &InvalidHeaderError{Line: f.String(), Reason: "content length is not a decimal"}
		}
		return Framing{Mode: FramingContentLength, ContentLength: n}, nil
	}

	chunked := func(f Field) bool { return f.Name == "transfer-encoding" && f.Value == "chunked" }
	if _, ok := h.Find(chunked); ok {
		return Framing{Mode: FramingChunked}, nil
	}

	return Framing{Mode: FramingUnsupported}, nil
}

// Response is a fully received response.
type Response struct {
	Status  StatusLine
	Headers Headers
	Framing Framing
	Body    []byte
}

type ResponseDecoder struct {
	fr *iolib.FrameReader
}

// NewResponseDecoder creates [ResponseDecoder] reading r in reads of at most readSize bytes.
func NewResponseDecoder(r io.Reader, readSize uint) *ResponseDecoder {
	return &ResponseDecoder{fr: iolib.NewFrameReader(r, readSize)}
}

// Decode reads one response with its body.
func (rd *ResponseDecoder) Decode() (*Response, error) {
	var res Response

	line, err := rd.fr.ReadLine()
	if err != nil {
		return nil, errors.Wrap(err, "reading status line")
	}
	// Any status is accepted. Parsing is only for diagnostics.
	res.Status, _ = ParseStatusLine(line)

	if res.Headers, err = rd.decodeHeaders(); err != nil {
		return nil, errors.Wrap(err, "parsing headers")
	}

	if res.Framing, err = FramingOf(res.Headers); err != nil {
		return nil, errors.Wrap(err, "deciding body framing")
	}

	switch res.Framing.Mode {
	case FramingContentLength:
		res.Body, err = rd.fr.ReadExact(res.Framing.ContentLength)
		if err != nil {
			return nil, errors.Wrap(err, "reading body")
		}
	case FramingChunked:
		res.Body, err = rd.decodeChunked()
		if err != nil {
			return nil, errors.Wrap(err, "reading chunked body")
		}
	default:
		return nil, ErrUnsupportedResponse
	}

	return &res, nil
}

func (rd *ResponseDecoder) decodeHeaders() (Headers, error) {
	headers := make(Headers, 0)
	for {
		line, err := rd.fr.ReadLine()
		if err != nil {
			return nil, errors.Wrap(err, "reading field line")
		}

		if len(line) == 0 {
			// An empty line. This means that there are no more headers.
			return headers, nil
		}

		field, err := ParseField(line)
		if err != nil {
			return nil, err
		}

		headers = append(headers, field)
	}
}

// decodeChunked reads chunks until the last chunk.
// Trailer section after the last chunk is left unread.
func (rd *ResponseDecoder) decodeChunked() ([]byte, error) {
	chunks := make([][]byte, 0)
	for {
		line, err := rd.fr.ReadLine()
		if err != nil {
			return nil, errors.Wrap(err, "reading chunk size")
		}

		size, err := decodeChunkSize(line)
		if err != nil {
			return nil, errors.Wrap(err, "decoding chunk size")
		}

		if size == 0 {
			// Last chunk.
			break
		}

		data, err := rd.fr.ReadExact(size)
		if err != nil {
			return nil, errors.Wrap(err, "reading chunk data")
		}

		// CRLF after chunk data is discarded as is.
		if _, err := rd.fr.ReadExact(len(rule.CRLF)); err != nil {
			return nil, errors.Wrap(err, "reading chunk delimiter")
		}

		chunks = append(chunks, data)
	}

	return bytes.Join(chunks, nil), nil
}

// decodeChunkSize parses the chunk size line, ignoring chunk extensions.
func decodeChunkSize(line string) (int, error) {
	sizeRaw, _, _ := strings.Cut(line, ";")
	sizeRaw = strings.TrimFunc(sizeRaw, rule.IsWhitespace)

	if len(sizeRaw) == 0 || strings.IndexFunc(sizeRaw, func(r rune) bool { return !rule.IsHexDigit(r) }) >= 0 {
		return 0, errors.Wrapf(ErrMalformedChunk, "failed to decode hex: %q", line)
	}

	size, err := strconv.ParseUint(sizeRaw, 16, 64)
	if err != nil || size > math.MaxInt {
		return 0, errors.Wrapf(ErrMalformedChunk, "chunk size is too large: %q", line)
	}

	return int(size), nil
}
