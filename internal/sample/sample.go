// Package sample decodes the measurement lines emitted by grid frequency
// sensor boards and the records persisted to capture logs.
//
// Boards write one JSON object per line. The keys the firmware emits today
// are "t" (uptime millis), "freq", "smoothed", and "signal", but the decoder
// treats the set as open: unknown keys are carried through verbatim so that
// firmware additions never invalidate old tooling.
package sample

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecode reports a payload that could not be decoded as a JSON object.
	ErrDecode = errors.New("failed to decode payload")

	// ErrMissingField reports a record that decoded but lacks a field required
	// in the current context.
	ErrMissingField = errors.New("record missing required field")
)

// Wire keys shared by the firmware line format and the log record format.
const (
	KeyFrequency = "freq"
	KeySignal    = "signal"
	KeySmoothed  = "smoothed"
	KeyBoard     = "board"
	KeyWallTime  = "wall_time"
)

// Measurement is one decoded sensor line. The typed fields are nil when the
// payload did not carry them (or carried them as something other than a
// number); Extra holds every remaining key untouched.
type Measurement struct {
	Frequency *float64
	Signal    *float64
	Smoothed  *float64

	Extra map[string]json.RawMessage
}

// Parse decodes a single line from a sensor board. It never panics on
// arbitrary input: anything that is not a JSON object becomes ErrDecode.
// Invalid UTF-8 sequences are replaced rather than rejected, matching the
// behaviour of a permissive line reader on a noisy serial link.
func Parse(line []byte) (Measurement, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return Measurement{}, fmt.Errorf("%w: not a JSON object", ErrDecode)
	}

	sanitized := strings.ToValidUTF8(string(trimmed), "�")

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(sanitized), &obj); err != nil {
		return Measurement{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return fromObject(obj), nil
}

// fromObject extracts the typed measurement fields from a decoded JSON
// object. Keys that fail numeric extraction stay in Extra verbatim.
func fromObject(obj map[string]json.RawMessage) Measurement {
	m := Measurement{}

	for key, raw := range obj {
		switch key {
		case KeyFrequency:
			if v, ok := asFloat(raw); ok {
				m.Frequency = &v
				continue
			}
		case KeySignal:
			if v, ok := asFloat(raw); ok {
				m.Signal = &v
				continue
			}
		case KeySmoothed:
			if v, ok := asFloat(raw); ok {
				m.Smoothed = &v
				continue
			}
		}
		if m.Extra == nil {
			m.Extra = make(map[string]json.RawMessage)
		}
		m.Extra[key] = raw
	}

	return m
}

// asFloat reports whether raw is a JSON number and returns its value.
func asFloat(raw json.RawMessage) (float64, bool) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

// object returns the measurement as a flat JSON object map. Core fields are
// re-encoded from their typed values; extras are passed through.
func (m Measurement) object() map[string]json.RawMessage {
	obj := make(map[string]json.RawMessage, len(m.Extra)+3)
	for key, raw := range m.Extra {
		obj[key] = raw
	}
	if m.Frequency != nil {
		obj[KeyFrequency] = mustRaw(*m.Frequency)
	}
	if m.Signal != nil {
		obj[KeySignal] = mustRaw(*m.Signal)
	}
	if m.Smoothed != nil {
		obj[KeySmoothed] = mustRaw(*m.Smoothed)
	}
	return obj
}

func mustRaw(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal primitive: %v", err))
	}
	return raw
}
