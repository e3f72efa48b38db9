package http

import (
	"context"
	"log/slog"

	iolib "container-monitor/lib/io"
	"container-monitor/transport"

	"github.com/pkg/errors"
)

type Options struct {
	// ReadSize is the size of a single read attempt on the connection.
	// Zero means [iolib.DefaultReadSize].
	ReadSize uint
}

var DefaultOptions = Options{ReadSize: iolib.DefaultReadSize}

// Requester performs one GET exchange on a connection it exclusively owns.
// The connection is closed when the exchange ends, successfully or not,
// so a Requester serves exactly one request.
type Requester struct {
	conn transport.Conn
	host string

	logger *slog.Logger
	opts   Options
}

func NewRequester(conn transport.Conn, host string, logger *slog.Logger, opts Options) *Requester {
	return &Requester{
		conn:   conn,
		host:   host,
		logger: logger,
		opts:   opts,
	}
}

// Get sends a GET request for target and returns the response body.
// Status code is not checked.
func (r *Requester) Get(ctx context.Context, target string) ([]byte, error) {
	res, err := r.Do(ctx, target)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// Do sends a GET request for target and returns the whole response.
//
// Do has no timeout of its own. If ctx is done before the response is complete,
// the connection is closed to interrupt the pending read and ctx.Err() is returned.
func (r *Requester) Do(ctx context.Context, target string) (*Response, error) {
	defer func() {
		if cerr := r.conn.Close(); cerr != nil {
			r.logger.Error("error when closing connection", "error", cerr)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		// Unblocks the pending read or write.
		_ = r.conn.Close()
	})
	defer stop()

	res, err := r.roundtrip(target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrapf(ctxErr, "GET %s interrupted", target)
		}
		return nil, errors.Wrapf(err, "GET %s", target)
	}

	r.logger.Debug("exchange finished",
		"target", target,
		"version", res.Status.Version.String(),
		"status", res.Status.StatusCode,
		"framing", res.Framing.String(),
		"bytes", len(res.Body),
	)

	return res, nil
}

func (r *Requester) roundtrip(target string) (*Response, error) {
	request, err := EncodeGetRequest(target, r.host)
	if err != nil {
		return nil, errors.Wrap(err, "encoding request")
	}

	if _, err := iolib.WriteFull(r.conn, request); err != nil {
		return nil, errors.Wrap(err, "writing request")
	}

	res, err := NewResponseDecoder(r.conn, r.opts.ReadSize).Decode()
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	return res, nil
}
