package monitor

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"container-monitor/application/docker"
	"container-monitor/application/influx"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type fakeSource struct {
	containers []docker.Container
	listErr    error

	usage map[string]uint64
	errs  map[string]error

	// barrier makes every stats call wait until all of them have arrived.
	barrier *sync.WaitGroup
}

func (f *fakeSource) Containers(ctx context.Context) ([]docker.Container, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.containers, nil
}

func (f *fakeSource) ContainerStats(ctx context.Context, id string) (docker.Stats, error) {
	if f.barrier != nil {
		f.barrier.Done()

		arrived := make(chan struct{})
		go func() {
			f.barrier.Wait()
			close(arrived)
		}()

		select {
		case <-arrived:
		case <-time.After(time.Second):
			return docker.Stats{}, errors.New("stats requests are not concurrent")
		}
	}

	if err, ok := f.errs[id]; ok {
		return docker.Stats{}, err
	}
	return docker.Stats{MemoryStats: docker.MemoryStats{Usage: f.usage[id]}}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	writes [][]influx.Point
	err    error

	written chan struct{}
}

func (r *recordingSink) Write(ctx context.Context, points []influx.Point) error {
	r.mu.Lock()
	r.writes = append(r.writes, points)
	r.mu.Unlock()

	if r.written != nil {
		r.written <- struct{}{}
	}
	return r.err
}

func (r *recordingSink) Writes() [][]influx.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]influx.Point(nil), r.writes...)
}

func containers(names ...string) []docker.Container {
	out := make([]docker.Container, 0, len(names))
	for _, name := range names {
		out = append(out, docker.Container{ID: name + "-id", Names: []string{"/" + name}, Image: name + ":latest", State: "running"})
	}
	return out
}

func memoryPoint(name string, usage uint64) influx.Point {
	return influx.Point{
		Measurement: "memory",
		Tags:        map[string]string{"container": name},
		Fields:      map[string]any{"usage": float64(usage)},
	}
}

type MonitorTestSuite struct {
	suite.Suite

	source *fakeSource
	sink   *recordingSink
	clock  *clock.Mock
	logger *slog.Logger
}

func TestMonitorTestSuite(t *testing.T) {
	suite.Run(t, new(MonitorTestSuite))
}

func (s *MonitorTestSuite) SetupTest() {
	s.source = &fakeSource{
		containers: containers("web", "db", "cache"),
		usage:      map[string]uint64{"web-id": 100, "db-id": 200, "cache-id": 300},
	}
	s.sink = &recordingSink{}
	s.clock = clock.NewMock()
	s.logger = slog.New(slog.DiscardHandler)
}

func (s *MonitorTestSuite) newMonitor(opts Options) *Monitor {
	return New(s.source, s.sink, s.logger, s.clock, opts)
}

func (s *MonitorTestSuite) TestCollect() {
	points, err := s.newMonitor(DefaultOptions).Collect(context.Background())
	s.Require().NoError(err)

	s.Equal([]influx.Point{
		memoryPoint("web", 100),
		memoryPoint("db", 200),
		memoryPoint("cache", 300),
	}, points)
}

func (s *MonitorTestSuite) TestSamplePoint() {
	sample := Sample{
		Container: docker.Container{ID: "abc"},
		Stats:     docker.Stats{MemoryStats: docker.MemoryStats{Usage: 512}},
	}

	point := sample.Point()
	s.Equal(float64(512), point.Fields[FieldUsage])

	line, err := influx.EncodeLine(point, time.UnixMilli(1700000000000))
	s.Require().NoError(err)
	s.Equal("memory usage=512 1700000000000000000", line)
}

func (s *MonitorTestSuite) TestCollectConcurrently() {
	s.source.barrier = &sync.WaitGroup{}
	s.source.barrier.Add(len(s.source.containers))

	points, err := s.newMonitor(DefaultOptions).Collect(context.Background())
	s.Require().NoError(err)
	s.Len(points, 3)
}

func (s *MonitorTestSuite) TestCollectNoContainers() {
	s.source.containers = nil

	points, err := s.newMonitor(DefaultOptions).Collect(context.Background())
	s.Require().NoError(err)
	s.Empty(points)
}

func (s *MonitorTestSuite) TestCollectFiltered() {
	filter, err := CompileFilter(`name != "db"`)
	s.Require().NoError(err)

	points, err := s.newMonitor(Options{Filter: filter}).Collect(context.Background())
	s.Require().NoError(err)
	s.Equal([]influx.Point{memoryPoint("web", 100), memoryPoint("cache", 300)}, points)
}

func (s *MonitorTestSuite) TestCollectFails() {
	errStats := errors.New("no such container")
	s.source.errs = map[string]error{"db-id": errStats}

	points, err := s.newMonitor(DefaultOptions).Collect(context.Background())
	s.ErrorIs(err, errStats)
	s.Nil(points)
}

func (s *MonitorTestSuite) TestCollectListFails() {
	s.source.listErr = errors.New("daemon unreachable")

	_, err := s.newMonitor(DefaultOptions).Collect(context.Background())
	s.ErrorIs(err, s.source.listErr)
}

func (s *MonitorTestSuite) TestRunOnce() {
	s.Require().NoError(s.newMonitor(DefaultOptions).RunOnce(context.Background()))

	writes := s.sink.Writes()
	s.Require().Len(writes, 1)
	s.Len(writes[0], 3)
}

func (s *MonitorTestSuite) TestRunOnceSinkFails() {
	s.sink.err = errors.New("influx is down")

	err := s.newMonitor(DefaultOptions).RunOnce(context.Background())
	s.ErrorIs(err, s.sink.err)
}

func (s *MonitorTestSuite) TestRunOnceCollectFailsSkipsSink() {
	s.source.listErr = errors.New("daemon unreachable")

	s.Error(s.newMonitor(DefaultOptions).RunOnce(context.Background()))
	s.Empty(s.sink.Writes())
}

func (s *MonitorTestSuite) TestRunCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.newMonitor(DefaultOptions).Run(ctx)
	s.ErrorIs(err, context.Canceled)
	s.Empty(s.sink.Writes())
}

type RunTestSuite struct {
	suite.Suite

	clock  *clock.Mock
	sink   *recordingSink
	source *fakeSource

	cancel context.CancelFunc
	done   chan error
}

func TestRunTestSuite(t *testing.T) {
	suite.Run(t, new(RunTestSuite))
}

func (s *RunTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.sink = &recordingSink{written: make(chan struct{}, 16)}
	s.source = &fakeSource{
		containers: containers("web"),
		usage:      map[string]uint64{"web-id": 1},
	}
}

func (s *RunTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())

	s.cancel()
	select {
	case err := <-s.done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("monitor did not stop")
	}
}

func (s *RunTestSuite) start(sink Sink) {
	m := New(s.source, sink, slog.New(slog.DiscardHandler), s.clock, Options{Interval: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() { s.done <- m.Run(ctx) }()
}

func (s *RunTestSuite) waitCycle() {
	select {
	case <-s.sink.written:
	case <-time.After(time.Second):
		s.FailNow("cycle did not run")
	}
}

// advanceUntilCycle moves the clock by d and then keeps nudging it
// until a cycle runs, in case the loop had not armed its timer yet.
func (s *RunTestSuite) advanceUntilCycle(d time.Duration) {
	s.clock.Add(d)
	s.Eventually(func() bool {
		s.clock.Add(0)
		select {
		case <-s.sink.written:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func (s *RunTestSuite) noCycle() {
	time.Sleep(20 * time.Millisecond)
	s.Empty(s.sink.written)
}

func (s *RunTestSuite) TestInterval() {
	s.start(s.sink)

	// First cycle runs immediately.
	s.waitCycle()

	s.clock.Add(9 * time.Second)
	s.noCycle()

	s.advanceUntilCycle(time.Second)
	s.Len(s.sink.Writes(), 2)
}

func (s *RunTestSuite) TestIntervalFromCycleStart() {
	// Each cycle takes 3 seconds.
	slow := SinkFunc(func(ctx context.Context, points []influx.Point) error {
		s.clock.Add(3 * time.Second)
		return s.sink.Write(ctx, points)
	})
	s.start(slow)
	s.waitCycle()

	// Next cycle is due 10s after the first one started, which is 7s from now.
	s.clock.Add(6 * time.Second)
	s.noCycle()

	s.advanceUntilCycle(time.Second)
}

func (s *RunTestSuite) TestFailedCycleDoesNotStop() {
	failing := SinkFunc(func(ctx context.Context, points []influx.Point) error {
		_ = s.sink.Write(ctx, points)
		return errors.New("influx is down")
	})
	s.start(failing)
	s.waitCycle()

	s.advanceUntilCycle(10 * time.Second)
	s.advanceUntilCycle(10 * time.Second)
	s.Len(s.sink.Writes(), 3)
}
