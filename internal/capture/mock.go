package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// readResult is one scripted outcome for MockPort.Read.
type readResult struct {
	data []byte
	err  error
}

// MockPort implements Porter with scripted reads for testing. Reads
// consume the script in order; an exhausted script behaves like a read
// timeout and returns (0, nil), matching the serial library's contract
// once SetReadTimeout is in effect.
type MockPort struct {
	mu      sync.Mutex
	script  []readResult
	written []byte
	closed  bool
	timeout time.Duration

	// ReadDelay, if set, is slept before each timed-out read so a loop
	// polling an idle port does not spin.
	ReadDelay time.Duration
}

// NewMockPort creates an empty MockPort.
func NewMockPort() *MockPort {
	return &MockPort{}
}

// QueueLine schedules a line, newline appended, for a future Read.
func (m *MockPort) QueueLine(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, readResult{data: []byte(line + "\n")})
}

// QueueChunk schedules raw bytes for a future Read. No newline is added,
// so a line can be split across several chunks.
func (m *MockPort) QueueChunk(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, readResult{data: append([]byte(nil), data...)})
}

// QueueError schedules an error return for a future Read.
func (m *MockPort) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, readResult{err: err})
}

// Read returns the next scripted result, or (0, nil) when the script is
// exhausted.
func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return 0, errors.New("port closed")
	}

	if len(m.script) == 0 {
		delay := m.ReadDelay
		m.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		return 0, nil
	}

	r := m.script[0]
	m.script = m.script[1:]
	if r.err != nil {
		m.mu.Unlock()
		return 0, r.err
	}

	n := copy(p, r.data)
	if n < len(r.data) {
		m.script = append([]readResult{{data: r.data[n:]}}, m.script...)
	}
	m.mu.Unlock()
	return n, nil
}

// Write captures data written to the port.
func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errors.New("port closed")
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

// Close marks the port as closed. Subsequent reads and writes fail.
func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// SetReadTimeout records the requested timeout.
func (m *MockPort) SetReadTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timeout = timeout
	return nil
}

// Written returns all data written to the port.
func (m *MockPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]byte(nil), m.written...)
}

// IsClosed reports whether Close was called.
func (m *MockPort) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// ReadTimeout returns the timeout set via SetReadTimeout.
func (m *MockPort) ReadTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.timeout
}

// MockOpener returns scripted ports keyed by endpoint name.
type MockOpener struct {
	mu sync.Mutex

	// Ports maps endpoint names to the port Open returns for them.
	Ports map[string]Porter

	// Err, if set, is returned by every Open call.
	Err error

	opened []string
}

// Open implements Opener.
func (o *MockOpener) Open(endpoint string, opts PortOptions) (Porter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opened = append(o.opened, endpoint)
	if o.Err != nil {
		return nil, o.Err
	}
	port, ok := o.Ports[endpoint]
	if !ok {
		return nil, fmt.Errorf("no such endpoint %q", endpoint)
	}
	return port, nil
}

// Opened returns the endpoints passed to Open, in call order.
func (o *MockOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]string(nil), o.opened...)
}
