package mqtt

import (
	"sync"

	"github.com/gridseis/gridseis/internal/sample"
)

// FakePublisher records published messages for test assertions. It is
// safe for concurrent use; capture workers share a single publisher.
type FakePublisher struct {
	mu sync.Mutex

	samples      []sample.Record
	systemEvents []SystemEvent
	closed       bool

	// PublishError, if set, will be returned by PublishSample.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishSample records the measurement.
func (f *FakePublisher) PublishSample(rec sample.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}
	f.samples = append(f.samples, rec)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	f.systemEvents = append(f.systemEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// Samples returns a copy of the measurements published so far.
func (f *FakePublisher) Samples() []sample.Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]sample.Record(nil), f.samples...)
}

// SystemEvents returns a copy of the system events published so far.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]SystemEvent(nil), f.systemEvents...)
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.samples = nil
	f.systemEvents = nil
	f.closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
}
