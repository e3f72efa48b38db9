package monitor

import (
	"context"

	"container-monitor/application/influx"

	"github.com/pkg/errors"
)

// Sink stores collected points.
type Sink interface {
	Write(ctx context.Context, points []influx.Point) error
}

type SinkFunc func(ctx context.Context, points []influx.Point) error

func (f SinkFunc) Write(ctx context.Context, points []influx.Point) error { return f(ctx, points) }

// MultiSink writes to every sink in order.
// Every sink is tried even if one fails. The first error is returned.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, points []influx.Point) error {
	var first error
	for idx, sink := range m {
		if err := sink.Write(ctx, points); err != nil && first == nil {
			first = errors.Wrapf(err, "writing to sink %d", idx)
		}
	}
	return first
}
