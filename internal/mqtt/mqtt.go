// Package mqtt mirrors capture telemetry to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gridseis/gridseis/internal/sample"
)

// TopicSystem is the MQTT topic for capture lifecycle events.
const TopicSystem = "gridseis/system"

// SampleTopic returns the per-board topic measurements are published on.
func SampleTopic(board string) string {
	return fmt.Sprintf("gridseis/%s/samples", board)
}

// Publisher publishes capture telemetry to MQTT. Publishing is best
// effort: a failed publish must never stall or fail the capture loop.
type Publisher interface {
	// PublishSample sends one accepted measurement to the board's topic.
	// Returns error if publishing fails (should not crash the process).
	PublishSample(rec sample.Record) error

	// PublishSystem sends a capture lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// SystemEvent represents a capture lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp time.Time
	Event     string   // e.g., "STARTUP", "SHUTDOWN"
	Reason    string   // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Boards    []string // board names in the session (startup only)
}

// SystemPayload represents the MQTT message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	Reason    string   `json:"reason,omitempty"`
	Boards    []string `json:"boards,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Boards:    event.Boards,
		},
	}
	return json.Marshal(payload)
}

// FormatSamplePayload creates the JSON payload for a measurement. The
// shape is the same flat object the capture log stores.
func FormatSamplePayload(rec sample.Record) ([]byte, error) {
	return json.Marshal(rec)
}
