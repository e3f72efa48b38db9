// Package monitor periodically samples container memory usage
// and hands the samples to a [Sink].
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"container-monitor/application/docker"
	"container-monitor/application/influx"
	sliceutil "container-monitor/lib/slice"

	"github.com/benbjohnson/clock"
	"github.com/dchest/uniuri"
	"github.com/pkg/errors"
)

const (
	MeasurementMemory = "memory"
	TagContainer      = "container"
	FieldUsage        = "usage"
)

// Source is where container information comes from.
// It is satisfied by [docker.Client].
type Source interface {
	Containers(ctx context.Context) ([]docker.Container, error)
	ContainerStats(ctx context.Context, id string) (docker.Stats, error)
}

type Options struct {
	// Interval between the starts of two cycles.
	Interval time.Duration
	// Filter selects monitored containers. Nil means every container.
	Filter Filter
}

const DefaultInterval = 10 * time.Second

var DefaultOptions = Options{Interval: DefaultInterval}

type Monitor struct {
	source Source
	sink   Sink

	logger *slog.Logger
	clock  clock.Clock
	opts   Options
}

func New(source Source, sink Sink, logger *slog.Logger, clock clock.Clock, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Filter == nil {
		opts.Filter = MatchAll
	}

	return &Monitor{
		source: source,
		sink:   sink,
		logger: logger,
		clock:  clock,
		opts:   opts,
	}
}

// Sample is a memory reading of one container.
type Sample struct {
	Container docker.Container
	Stats     docker.Stats
}

// Point converts s into a memory point. The timestamp is left to the sink.
func (s Sample) Point() influx.Point {
	return influx.Point{
		Measurement: MeasurementMemory,
		Tags:        map[string]string{TagContainer: s.Container.Name()},
		Fields:      map[string]any{FieldUsage: float64(s.Stats.MemoryStats.Usage)},
	}
}

// Sample lists the containers and takes their stats concurrently.
// Samples are in the order the containers were listed.
// If any request fails, the others are canceled and the error is returned.
func (m *Monitor) Sample(ctx context.Context) ([]Sample, error) {
	containers, err := m.source.Containers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing containers")
	}

	selected := sliceutil.Filter(containers, m.opts.Filter)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples := make([]Sample, len(selected))
	errs := make([]error, len(selected))

	var wg sync.WaitGroup
	for idx, c := range selected {
		wg.Add(1)
		go func() {
			defer wg.Done()

			stats, err := m.source.ContainerStats(ctx, c.ID)
			if err != nil {
				errs[idx] = errors.Wrapf(err, "sampling container %s", c.Name())
				cancel()
				return
			}
			samples[idx] = Sample{Container: c, Stats: stats}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return samples, nil
}

// Collect samples the containers and converts them into points.
func (m *Monitor) Collect(ctx context.Context) ([]influx.Point, error) {
	samples, err := m.Sample(ctx)
	if err != nil {
		return nil, err
	}
	return sliceutil.Map(samples, Sample.Point), nil
}

// RunOnce collects points and writes them to the sink.
func (m *Monitor) RunOnce(ctx context.Context) error {
	points, err := m.Collect(ctx)
	if err != nil {
		return errors.Wrap(err, "collecting points")
	}

	if err := m.sink.Write(ctx, points); err != nil {
		return errors.Wrap(err, "writing points")
	}
	return nil
}

// Run runs a cycle every interval until ctx is done.
// The wait after a cycle is measured from its start, so a slow cycle
// is followed immediately by the next one.
// A failed cycle is logged and does not stop the loop.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := m.clock.Now()
		logger := m.logger.With("cycle", uniuri.NewLen(8))

		if err := m.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("cycle failed", "error", err)
		} else {
			logger.Debug("cycle finished", "took", m.clock.Since(start))
		}

		wait := max(0, start.Add(m.opts.Interval).Sub(m.clock.Now()))
		timer := m.clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
