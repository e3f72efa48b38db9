package pipe

import (
	"bytes"
	"context"
	"io"
	"sync"

	"container-monitor/transport"
)

// Handler produces the deliveries answering a written request.
type Handler func(request []byte) [][]byte

// ScriptedConn is a [transport.Conn] that hands out pre-defined deliveries.
// Each Read returns at most one delivery, so the delivery boundaries
// are the fragmentation the reader sees. Once deliveries run out, Read returns [io.EOF].
// It never blocks.
type ScriptedConn struct {
	mu sync.Mutex

	deliveries [][]byte
	handler    Handler

	written bytes.Buffer
	reads   int
	closed  bool
}

var _ transport.Conn = (*ScriptedConn)(nil)

// NewScripted creates [ScriptedConn] which delivers the given slices in order.
func NewScripted(deliveries ...[]byte) *ScriptedConn {
	return &ScriptedConn{deliveries: cloneAll(deliveries)}
}

// NewResponder creates [ScriptedConn] which asks handler for deliveries on every Write.
func NewResponder(handler Handler) *ScriptedConn {
	return &ScriptedConn{handler: handler}
}

func (c *ScriptedConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, transport.ErrConnClosed
	}

	c.reads++
	if len(c.deliveries) == 0 {
		return 0, io.EOF
	}

	n := copy(p, c.deliveries[0])
	if n < len(c.deliveries[0]) {
		c.deliveries[0] = c.deliveries[0][n:]
	} else {
		c.deliveries = c.deliveries[1:]
	}

	return n, nil
}

func (c *ScriptedConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, transport.ErrConnClosed
	}

	c.written.Write(p)
	if c.handler != nil {
		c.deliveries = append(c.deliveries, cloneAll(c.handler(bytes.Clone(p)))...)
	}

	return len(p), nil
}

func (c *ScriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

// Written returns everything written so far.
func (c *ScriptedConn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.written.Bytes())
}

// Reads returns the number of Read calls made on an open connection.
func (c *ScriptedConn) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Pending returns the number of deliveries not handed out yet.
func (c *ScriptedConn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deliveries)
}

func (c *ScriptedConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Dialer dials a new [ScriptedConn] answering with Handler.
// Dialed connections are kept for inspection.
type Dialer struct {
	Handler Handler

	mu    sync.Mutex
	conns []*ScriptedConn
}

var _ transport.Dialer = (*Dialer)(nil)

func (d *Dialer) Dial(ctx context.Context) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn := NewResponder(d.Handler)

	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()

	return conn, nil
}

// Conns returns connections dialed so far.
func (d *Dialer) Conns() []*ScriptedConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*ScriptedConn(nil), d.conns...)
}

// Fragment splits data into deliveries of at most size bytes.
func Fragment(data []byte, size int) [][]byte {
	if size <= 0 {
		panic("fragment size must be positive")
	}

	out := make([][]byte, 0, len(data)/size+1)
	for len(data) > 0 {
		n := min(size, len(data))
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

func cloneAll(deliveries [][]byte) [][]byte {
	out := make([][]byte, len(deliveries))
	for idx, d := range deliveries {
		out[idx] = bytes.Clone(d)
	}
	return out
}
