package transport

import (
	"context"
	"errors"
	"io"
)

var ErrConnClosed = errors.New("connection is closed")

// Conn is a bidirectional byte stream.
//
// Read returns at most len(p) bytes of whatever has arrived,
// and [io.EOF] once the peer has stopped sending.
// Read and Write on a locally closed Conn return [ErrConnClosed].
type Conn interface {
	io.ReadWriteCloser
}

// Dialer opens a new [Conn] to a fixed endpoint.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }
