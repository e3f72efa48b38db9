package iolib

import (
	"io"

	"container-monitor/transport"

	"github.com/indigo-web/utils/uf"
	"github.com/pkg/errors"
)

// DefaultReadSize is the size of a single read attempt on the underlying reader.
const DefaultReadSize = 64 * 1024

var (
	// ErrEndOfStream is returned when the underlying reader ends
	// before a requested line or byte count could be satisfied.
	ErrEndOfStream = errors.New("end of stream")

	crlf = []byte{'\r', '\n'}
)

// FrameReader reads CRLF terminated lines and fixed length frames from r.
// Bytes received from r are held in an [Accumulator] until they are consumed.
type FrameReader struct {
	r   io.Reader
	acc *Accumulator

	scratch []byte
	eof     bool // r has reported end of stream.
}

// NewFrameReader creates new [FrameReader].
// If readSize is zero, [DefaultReadSize] is used.
func NewFrameReader(r io.Reader, readSize uint) *FrameReader {
	if readSize == 0 {
		readSize = DefaultReadSize
	}

	return &FrameReader{
		r:       r,
		acc:     NewAccumulator(0),
		scratch: make([]byte, readSize),
	}
}

// Buffered returns the number of bytes received but not consumed yet.
func (fr *FrameReader) Buffered() int { return fr.acc.Len() }

// ReadLine reads until CRLF and returns the text before it.
// CRLF is consumed and discarded.
func (fr *FrameReader) ReadLine() (string, error) {
	for {
		if idx := fr.acc.Index(crlf); idx >= 0 {
			line := fr.acc.Take(idx + len(crlf))
			// line is a fresh copy, so it can be converted without copying.
			return uf.B2S(line[:idx]), nil
		}

		if err := fr.fill(); err != nil {
			if errors.Is(err, ErrEndOfStream) {
				return "", errors.Wrapf(err, "waiting for line terminator, %d bytes buffered", fr.acc.Len())
			}
			return "", err
		}
	}
}

// ReadExact reads exactly n bytes.
func (fr *FrameReader) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf("negative frame length: %d", n)
	}

	for fr.acc.Len() < n {
		if err := fr.fill(); err != nil {
			if errors.Is(err, ErrEndOfStream) {
				return nil, errors.Wrapf(err, "waiting for %d bytes, %d bytes buffered", n, fr.acc.Len())
			}
			return nil, err
		}
	}

	return fr.acc.Take(n), nil
}

// fill performs exactly one read on the underlying reader.
// io.EOF, io.ErrUnexpectedEOF and [transport.ErrConnClosed] end the stream.
func (fr *FrameReader) fill() error {
	if fr.eof {
		return ErrEndOfStream
	}

	n, err := fr.r.Read(fr.scratch)
	fr.acc.Append(fr.scratch[:n])

	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) &&
			!errors.Is(err, transport.ErrConnClosed) {
			return errors.Wrap(err, "reading from transport")
		}

		fr.eof = true
		if n == 0 {
			return ErrEndOfStream
		}
	}

	return nil
}
