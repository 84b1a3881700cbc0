// Package series turns capture logs and grid operator reference files into
// time-ordered value series ready for comparison and plotting.
package series

import (
	"fmt"
	"time"
)

// Point is one timestamped value.
type Point struct {
	Time  time.Time
	Value float64
}

// Series is a sequence of points with non-decreasing timestamps. Loaders
// enforce the ordering by skipping entries that would move backwards;
// nothing is ever re-sorted.
type Series []Point

// Field selects which measurement value a loader extracts.
type Field string

const (
	// FieldRaw selects the per-cycle frequency measurement.
	FieldRaw Field = "raw"

	// FieldSmoothed selects the firmware-filtered frequency.
	FieldSmoothed Field = "smoothed"
)

// ParseField validates a field name from a flag or config file.
func ParseField(s string) (Field, error) {
	switch Field(s) {
	case FieldRaw, FieldSmoothed:
		return Field(s), nil
	case "":
		return FieldRaw, nil
	}
	return "", fmt.Errorf("unknown value field %q: expected %q or %q", s, FieldRaw, FieldSmoothed)
}

// LoadOptions controls how log records become series points.
type LoadOptions struct {
	// Invert flips each value around the 50 Hz nominal. Sensors wired to
	// measure the complement of line frequency produce mirrored series;
	// inverting twice restores the original values.
	Invert bool

	// TimeOffset is added to every record timestamp during loading.
	TimeOffset time.Duration

	// Field selects the measurement value. Empty means FieldRaw.
	Field Field
}

// Invert mirrors a frequency value around the 50 Hz nominal.
func Invert(v float64) float64 {
	return 100 - v
}

// Start returns the first timestamp, or the zero time for an empty series.
func (s Series) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Time
}

// End returns the last timestamp, or the zero time for an empty series.
func (s Series) End() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Time
}

// Shift returns a copy of the series with every timestamp moved by d.
func (s Series) Shift(d time.Duration) Series {
	if d == 0 || len(s) == 0 {
		return s
	}
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = Point{Time: p.Time.Add(d), Value: p.Value}
	}
	return out
}

// Window returns the points within [start, end]. A zero start or end leaves
// that side unbounded.
func (s Series) Window(start, end time.Time) Series {
	out := s
	if !start.IsZero() {
		i := 0
		for i < len(out) && out[i].Time.Before(start) {
			i++
		}
		out = out[i:]
	}
	if !end.IsZero() {
		j := len(out)
		for j > 0 && out[j-1].Time.After(end) {
			j--
		}
		out = out[:j]
	}
	return out
}

// Values returns the series values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}
