// Package influx writes points to InfluxDB v2 in line protocol.
package influx

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
	"github.com/pkg/errors"
)

var ErrInvalidPoint = errors.New("point is invalid")

// Point is a single sample.
// Zero Timestamp means the time of the write.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Timestamp   time.Time
}

// EncodeLine encodes p into one line of line protocol.
// Keys are written in sorted order and tags with an empty value are left out.
// The timestamp has millisecond precision but is written in nanoseconds.
func EncodeLine(p Point, now time.Time) (string, error) {
	if p.Measurement == "" {
		return "", errors.Wrap(ErrInvalidPoint, "measurement is empty")
	}
	if len(p.Fields) == 0 {
		return "", errors.Wrapf(ErrInvalidPoint, "point %s has no field", p.Measurement)
	}

	var enc lineprotocol.Encoder
	enc.SetPrecision(lineprotocol.Nanosecond)
	enc.StartLine(p.Measurement)

	for _, k := range slices.Sorted(maps.Keys(p.Tags)) {
		if p.Tags[k] == "" {
			continue
		}
		enc.AddTag(k, p.Tags[k])
	}

	for _, k := range slices.Sorted(maps.Keys(p.Fields)) {
		v, err := fieldValue(p.Fields[k])
		if err != nil {
			return "", errors.Wrapf(err, "field %s", k)
		}
		enc.AddField(k, v)
	}

	ts := p.Timestamp
	if ts.IsZero() {
		ts = now
	}
	enc.EndLine(time.UnixMilli(ts.UnixMilli()))

	if err := enc.Err(); err != nil {
		return "", errors.Wrapf(ErrInvalidPoint, "point %s: %v", p.Measurement, err)
	}

	return strings.TrimSuffix(string(enc.Bytes()), "\n"), nil
}

func fieldValue(v any) (lineprotocol.Value, error) {
	if i, ok := v.(int); ok {
		v = int64(i)
	}

	value, ok := lineprotocol.NewValue(v)
	if !ok {
		return lineprotocol.Value{}, errors.Wrapf(ErrInvalidPoint, "unsupported field value %v of type %T", v, v)
	}
	return value, nil
}
