package series

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gridseis/gridseis/internal/gridlog"
	"github.com/gridseis/gridseis/internal/sample"
)

// FromLog loads a capture log into a series. Records that fail to decode,
// lack the requested field, or carry a timestamp earlier than the previous
// accepted point are skipped; the survivors keep their file order. An empty
// result is valid.
func FromLog(path string, opts LoadOptions) (Series, error) {
	field := opts.Field
	if field == "" {
		field = FieldRaw
	}

	var out Series
	err := gridlog.ScanFile(path, func(rec sample.Record) error {
		v, ok := fieldValue(rec, field)
		if !ok {
			return nil
		}
		if opts.Invert {
			v = Invert(v)
		}
		t := rec.WallTime.Add(opts.TimeOffset)
		if len(out) > 0 && t.Before(out[len(out)-1].Time) {
			return nil
		}
		out = append(out, Point{Time: t, Value: v})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func fieldValue(rec sample.Record, field Field) (float64, bool) {
	switch field {
	case FieldSmoothed:
		if rec.Smoothed == nil {
			return 0, false
		}
		return *rec.Smoothed, true
	default:
		if rec.Frequency == nil {
			return 0, false
		}
		return *rec.Frequency, true
	}
}

// referenceSample matches the entries of a grid operator frequency export:
// an array of measurementTime/frequency pairs.
type referenceSample struct {
	MeasurementTime string   `json:"measurementTime"`
	Frequency       *float64 `json:"frequency"`
}

// FromReference loads a reference frequency export. The file must be a JSON
// array; entries that fail to decode are skipped individually, as are
// entries that would move the series backwards in time.
func FromReference(path string) (Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference %s: %w", path, err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse reference %s: %w", path, err)
	}

	var out Series
	for _, raw := range entries {
		var e referenceSample
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		if e.Frequency == nil || e.MeasurementTime == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, e.MeasurementTime)
		if err != nil {
			continue
		}
		if len(out) > 0 && t.Before(out[len(out)-1].Time) {
			continue
		}
		out = append(out, Point{Time: t, Value: *e.Frequency})
	}
	return out, nil
}
