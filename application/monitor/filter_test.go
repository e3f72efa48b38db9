package monitor

import (
	"context"
	"testing"

	"container-monitor/application/docker"
	"container-monitor/application/influx"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFilter(t *testing.T) {
	web := docker.Container{ID: "abc", Names: []string{"/web"}, Image: "nginx:latest", State: "running", Status: "Up 2 hours"}
	db := docker.Container{ID: "def", Names: []string{"/db"}, Image: "postgres:16", State: "exited", Status: "Exited (0) 1 hour ago"}

	testcases := []struct {
		desc     string
		src      string
		expected []bool // web, db
	}{
		{desc: "empty matches all", src: "", expected: []bool{true, true}},
		{desc: "by state", src: `state == "running"`, expected: []bool{true, false}},
		{desc: "by name prefix", src: `name startsWith "d"`, expected: []bool{false, true}},
		{desc: "by image", src: `image contains "postgres"`, expected: []bool{false, true}},
		{desc: "by id", src: `id in ["abc", "xyz"]`, expected: []bool{true, false}},
		{desc: "combined", src: `state == "running" || status matches "^Exited"`, expected: []bool{true, true}},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			filter, err := CompileFilter(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, []bool{filter(web), filter(db)})
		})
	}
}

func TestCompileFilterInvalid(t *testing.T) {
	testcases := []struct {
		desc string
		src  string
	}{
		{desc: "syntax", src: `name ==`},
		{desc: "unknown field", src: `owner == "me"`},
		{desc: "not boolean", src: `name`},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := CompileFilter(tc.src)
			assert.Error(t, err)
		})
	}
}

func TestFilterRuntimeErrorExcludes(t *testing.T) {
	// Converting a non numeric name fails at run time only.
	filter, err := CompileFilter(`int(name) > 0`)
	require.NoError(t, err)

	assert.False(t, filter(docker.Container{Names: []string{"/web"}}))
	assert.True(t, filter(docker.Container{Names: []string{"/42"}}))
}

func TestMultiSink(t *testing.T) {
	errFirst := errors.New("first is down")
	var calls []string

	sink := MultiSink{
		SinkFunc(func(ctx context.Context, points []influx.Point) error {
			calls = append(calls, "first")
			return errFirst
		}),
		SinkFunc(func(ctx context.Context, points []influx.Point) error {
			calls = append(calls, "second")
			return errors.New("second is down")
		}),
		SinkFunc(func(ctx context.Context, points []influx.Point) error {
			calls = append(calls, "third")
			return nil
		}),
	}

	err := sink.Write(context.Background(), nil)
	assert.ErrorIs(t, err, errFirst)
	assert.Equal(t, []string{"first", "second", "third"}, calls)

	assert.NoError(t, MultiSink{}.Write(context.Background(), nil))
}
