// Package unix dials Unix domain sockets.
package unix

import (
	"context"
	"net"

	"container-monitor/transport"

	"github.com/pkg/errors"
)

// DefaultDockerSocket is where the Docker daemon listens by default.
const DefaultDockerSocket = "/var/run/docker.sock"

type Dialer struct {
	Path string

	dialer net.Dialer
}

var _ transport.Dialer = (*Dialer)(nil)

func NewDialer(path string) *Dialer {
	return &Dialer{Path: path}
}

func (d *Dialer) Dial(ctx context.Context) (transport.Conn, error) {
	c, err := d.dialer.DialContext(ctx, "unix", d.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing unix socket %s", d.Path)
	}

	return NewConn(c), nil
}

// conn translates closed connection errors of [net.Conn] into [transport.ErrConnClosed].
type conn struct{ c net.Conn }

// NewConn adapts c into [transport.Conn].
func NewConn(c net.Conn) transport.Conn { return &conn{c: c} }

func (c *conn) Read(p []byte) (int, error) {
	n, err := c.c.Read(p)
	return n, translate(err)
}

func (c *conn) Write(p []byte) (int, error) {
	n, err := c.c.Write(p)
	return n, translate(err)
}

func (c *conn) Close() error {
	if err := c.c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func translate(err error) error {
	if err != nil && errors.Is(err, net.ErrClosed) {
		return transport.ErrConnClosed
	}
	return err
}
