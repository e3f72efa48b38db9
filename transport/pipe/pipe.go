// Package pipe provides in-memory implementations of [transport.Conn].
package pipe

import (
	"bytes"
	"io"
	"sync"

	"container-monitor/transport"
)

type pipe struct {
	stream chan []byte // stream that this pipe reads from.
	done   chan struct{}
	once   sync.Once // making sure not to close closed channel.

	buf *bytes.Buffer // leftover of a delivery. only touched by Read.

	// the opposite pipe.
	counterpart *pipe
}

var _ transport.Conn = (*pipe)(nil)

// Pair creates a pair of connected pipes. Each of pipes is synchronous and unbuffered:
// a Write completes when the counterpart has received the bytes.
// Closing one side makes the other side read [io.EOF].
func Pair() (c1, c2 transport.Conn) {
	p1 := &pipe{
		stream: make(chan []byte),
		done:   make(chan struct{}),
		buf:    bytes.NewBuffer(nil),
	}
	p2 := &pipe{
		stream: make(chan []byte),
		done:   make(chan struct{}),
		buf:    bytes.NewBuffer(nil),
	}

	p1.counterpart, p2.counterpart = p2, p1
	return p1, p2
}

func (p *pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func (p *pipe) Read(b []byte) (n int, err error) {
	select {
	case <-p.done:
		return 0, transport.ErrConnClosed
	default:
	}

	if p.buf.Len() > 0 {
		// if buf is not empty, read from it.
		return p.buf.Read(b)
	}

	select {
	case <-p.done:
		return 0, transport.ErrConnClosed
	case <-p.counterpart.done:
		return 0, io.EOF
	case data := <-p.stream:
		n := copy(b, data)
		if n < len(data) {
			// copy didn't get all the bytes from counterpart.
			// store it for later.
			p.buf.Write(data[n:])
		}
		return n, nil
	}
}

func (p *pipe) Write(b []byte) (n int, err error) {
	select {
	case <-p.done:
		return 0, transport.ErrConnClosed
	default:
	}

	data := bytes.Clone(b)

	select {
	case <-p.done:
		return 0, transport.ErrConnClosed
	case <-p.counterpart.done:
		// counterpart is closed. return an error.
		return 0, transport.ErrConnClosed
	case p.counterpart.stream <- data:
		return len(data), nil
	}
}
