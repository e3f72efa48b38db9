package influx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	influxhttp "github.com/influxdata/influxdb-client-go/v2/api/http"
	"github.com/pkg/errors"
)

type Config struct {
	Host   string // e.g. http://localhost:8086
	Org    string
	Bucket string
	Token  string
}

// StatusError is returned when the server does not accept the write.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body) }

type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking

	logger *slog.Logger
	clock  clock.Clock
}

// NewWriter creates [Writer]. If client is nil, the InfluxDB client's own
// HTTP client is used.
func NewWriter(cfg Config, client *http.Client, logger *slog.Logger, clock clock.Clock) *Writer {
	opts := influxdb2.DefaultOptions().SetPrecision(time.Nanosecond)
	if client != nil {
		opts.SetHTTPClient(client)
	}

	c := influxdb2.NewClientWithOptions(cfg.Host, cfg.Token, opts)
	return &Writer{
		client:   c,
		writeAPI: c.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		logger:   logger,
		clock:    clock,
	}
}

// Write sends points in one request. Points without a timestamp
// share the time Write was called.
func (w *Writer) Write(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	now := w.clock.Now()
	lines := make([]string, 0, len(points))
	for _, p := range points {
		line, err := EncodeLine(p, now)
		if err != nil {
			return errors.Wrap(err, "encoding point")
		}

		w.logger.Debug("writing point", "line", line)
		lines = append(lines, line)
	}

	if err := w.writeAPI.WriteRecord(ctx, lines...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, "sending points")
		}

		var httpErr *influxhttp.Error
		if errors.As(err, &httpErr) && httpErr.StatusCode != 0 {
			body := httpErr.Message
			if body == "" {
				body = httpErr.Code
			}
			return &StatusError{Code: httpErr.StatusCode, Body: body}
		}
		return errors.Wrap(err, "sending points")
	}

	return nil
}

// Close releases the connections held by the underlying client.
func (w *Writer) Close() { w.client.Close() }
