package sample

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is a measurement stamped at capture time: the board it came from
// and the host wall-clock time it was read. Records round-trip through one
// flat JSON object per log line.
type Record struct {
	Board    string
	WallTime time.Time
	Measurement
}

// Zoneless layout written by older capture tooling; interpreted as local time.
const legacyWallTimeLayout = "2006-01-02T15:04:05.999999999"

// MarshalJSON encodes the record as a single flat object: the measurement
// fields (typed plus extras) with "board" and "wall_time" alongside.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := r.object()
	if r.Board != "" {
		obj[KeyBoard] = mustRaw(r.Board)
	}
	obj[KeyWallTime] = mustRaw(r.WallTime.Format(time.RFC3339Nano))
	return json.Marshal(obj)
}

// UnmarshalJSON decodes a flat record object. A record without a parseable
// wall_time cannot be placed on a timeline and is rejected with
// ErrMissingField; a missing board name is tolerated.
func (r *Record) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	rec := Record{}

	if raw, ok := obj[KeyBoard]; ok {
		if err := json.Unmarshal(raw, &rec.Board); err == nil {
			delete(obj, KeyBoard)
		}
	}

	raw, ok := obj[KeyWallTime]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingField, KeyWallTime)
	}
	var stamp string
	if err := json.Unmarshal(raw, &stamp); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingField, KeyWallTime)
	}
	t, err := ParseWallTime(stamp)
	if err != nil {
		return fmt.Errorf("%w: %s %q", ErrMissingField, KeyWallTime, stamp)
	}
	rec.WallTime = t
	delete(obj, KeyWallTime)

	rec.Measurement = fromObject(obj)
	*r = rec
	return nil
}

// ParseWallTime parses a record timestamp. RFC3339 (with or without
// fractional seconds) is the written format; zoneless ISO-8601 stamps from
// older logs are accepted and read as local time.
func ParseWallTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyWallTimeLayout, s, time.Local)
}
