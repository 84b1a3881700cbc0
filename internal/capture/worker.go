package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gridseis/gridseis/internal/gridlog"
	"github.com/gridseis/gridseis/internal/monitoring"
	"github.com/gridseis/gridseis/internal/mqtt"
	"github.com/gridseis/gridseis/internal/sample"
	"github.com/gridseis/gridseis/internal/timeutil"
)

// State is a capture worker's lifecycle position.
type State int

const (
	StateConnecting State = iota
	StateStreaming
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultReadTimeout bounds each serial read so a worker notices
// cancellation within one interval even on a silent link.
const DefaultReadTimeout = time.Second

// WorkerConfig configures a single-board capture worker.
type WorkerConfig struct {
	// Board names the sensor; it stamps every record and the log file.
	Board string

	// Endpoint is the serial device to read, e.g. /dev/ttyUSB0.
	Endpoint string

	// OutputDir receives the board's log file.
	OutputDir string

	// Options sets the serial framing. The zero value is the firmware
	// default of 115200 8N1.
	Options PortOptions

	// ReadTimeout bounds each read. Defaults to DefaultReadTimeout.
	ReadTimeout time.Duration

	// Opener opens the endpoint. Defaults to OpenSerial.
	Opener Opener

	// Clock stamps records. Defaults to the real clock.
	Clock timeutil.Clock

	// Publisher, if set, mirrors accepted records to MQTT. Publish
	// failures are logged and do not affect capture.
	Publisher mqtt.Publisher
}

// Worker owns one serial connection and one log file, driving the
// read/parse/stamp/append loop for a single board. It starts connecting,
// moves to streaming once the port and log are open, and ends stopped
// (cancelled) or failed (connection or write error). A failure never
// propagates past the worker; callers inspect State and Err.
type Worker struct {
	cfg WorkerConfig

	mu      sync.Mutex
	state   State
	err     error
	records int64

	done chan struct{}
}

// NewWorker validates the config and returns a worker in the connecting
// state. Run does the actual work.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Board == "" {
		return nil, errors.New("worker needs a board name")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("worker needs a serial endpoint")
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Opener == nil {
		cfg.Opener = OpenSerial
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	return &Worker{cfg: cfg, done: make(chan struct{})}, nil
}

// Run drives the capture loop until ctx is cancelled or the link fails.
// Call it at most once.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	if ctx.Err() != nil {
		w.stop()
		return
	}

	port, err := w.cfg.Opener(w.cfg.Endpoint, w.cfg.Options)
	if err != nil {
		w.fail(fmt.Errorf("open %s: %w", w.cfg.Endpoint, err))
		return
	}
	defer port.Close()

	if err := port.SetReadTimeout(w.cfg.ReadTimeout); err != nil {
		w.fail(fmt.Errorf("set read timeout on %s: %w", w.cfg.Endpoint, err))
		return
	}

	writer, err := gridlog.Open(w.cfg.OutputDir, w.cfg.Board)
	if err != nil {
		w.fail(err)
		return
	}
	defer writer.Close()

	monitoring.Logf("[%s] connected to %s", w.cfg.Board, w.cfg.Endpoint)
	monitoring.Logf("[%s] logging to %s", w.cfg.Board, writer.Path())
	w.setState(StateStreaming)

	buf := make([]byte, 512)
	var pending []byte
	for {
		if ctx.Err() != nil {
			w.stop()
			return
		}

		n, err := port.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				w.stop()
				return
			}
			w.fail(fmt.Errorf("read %s: %w", w.cfg.Endpoint, err))
			return
		}
		if n == 0 {
			// Read timeout with nothing buffered; loop to recheck ctx.
			continue
		}

		pending = append(pending, buf[:n]...)
		for {
			nl := bytes.IndexByte(pending, '\n')
			if nl < 0 {
				break
			}
			line := pending[:nl]
			pending = pending[nl+1:]
			if err := w.accept(line, writer); err != nil {
				w.fail(err)
				return
			}
		}
	}
}

// accept parses one line and appends it if valid. Unparseable lines are
// normal on a serial link (boot noise, a partial first line) and are
// skipped; only a write failure is returned.
func (w *Worker) accept(line []byte, writer *gridlog.Writer) error {
	m, err := sample.Parse(line)
	if err != nil {
		return nil
	}

	rec := sample.Record{
		Board:       w.cfg.Board,
		WallTime:    w.cfg.Clock.Now(),
		Measurement: m,
	}
	if err := writer.Append(rec); err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	w.mu.Lock()
	w.records++
	w.mu.Unlock()

	if rec.Frequency != nil && rec.Signal != nil {
		monitoring.Logf("[%s] %.4f Hz | signal: %.3f", w.cfg.Board, *rec.Frequency, *rec.Signal)
	}

	if w.cfg.Publisher != nil {
		if err := w.cfg.Publisher.PublishSample(rec); err != nil {
			monitoring.Logf("[%s] mqtt publish: %v", w.cfg.Board, err)
		}
	}

	return nil
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) stop() {
	w.setState(StateStopped)
}

func (w *Worker) fail(err error) {
	w.mu.Lock()
	w.state = StateFailed
	w.err = err
	w.mu.Unlock()
	monitoring.Logf("[%s] %v", w.cfg.Board, err)
}

// Board returns the board name this worker captures.
func (w *Worker) Board() string { return w.cfg.Board }

// Endpoint returns the serial endpoint this worker reads.
func (w *Worker) Endpoint() string { return w.cfg.Endpoint }

// State returns the worker's current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err returns the failure cause; nil unless State is StateFailed.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Records returns how many records have been appended so far.
func (w *Worker) Records() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }
