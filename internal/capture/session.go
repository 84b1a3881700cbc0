package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gridseis/gridseis/internal/monitoring"
	"github.com/gridseis/gridseis/internal/mqtt"
	"github.com/gridseis/gridseis/internal/timeutil"
)

// Default supervision intervals.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultStopGrace    = 5 * time.Second
)

// Board pairs a name with the serial endpoint it streams from.
type Board struct {
	Name     string
	Endpoint string
}

// ResolveBoards pairs endpoints with board names: positional names
// board1..boardN, with an optional label overriding the name when there
// is exactly one endpoint. An empty endpoint list falls back to
// auto-detection.
func ResolveBoards(endpoints []string, label string, list PortLister) ([]Board, error) {
	if len(endpoints) == 0 {
		endpoint, err := DetectEndpoint(list)
		if err != nil {
			return nil, err
		}
		monitoring.Logf("auto-detected serial endpoint %s", endpoint)
		endpoints = []string{endpoint}
	}

	if label != "" && len(endpoints) > 1 {
		return nil, errors.New("a board label requires a single endpoint")
	}

	boards := make([]Board, 0, len(endpoints))
	for i, endpoint := range endpoints {
		name := fmt.Sprintf("board%d", i+1)
		if label != "" {
			name = label
		}
		boards = append(boards, Board{Name: name, Endpoint: endpoint})
	}
	return boards, nil
}

// SessionConfig configures a capture session.
type SessionConfig struct {
	// Boards to capture, each on its own worker.
	Boards []Board

	// OutputDir receives one log file per board.
	OutputDir string

	// Options, ReadTimeout, Opener, Clock and Publisher are handed
	// through to every worker.
	Options     PortOptions
	ReadTimeout time.Duration
	Opener      Opener
	Clock       timeutil.Clock
	Publisher   mqtt.Publisher

	// PollInterval is how often worker liveness is checked. Defaults to
	// DefaultPollInterval.
	PollInterval time.Duration

	// StopGrace bounds the wait for workers to wind down after
	// cancellation. Defaults to DefaultStopGrace.
	StopGrace time.Duration
}

// Session supervises one capture worker per board. Workers are fully
// isolated: one board failing leaves the others streaming.
type Session struct {
	cfg     SessionConfig
	clock   timeutil.Clock
	workers []*Worker
}

// NewSession validates the config and creates the per-board workers.
func NewSession(cfg SessionConfig) (*Session, error) {
	if len(cfg.Boards) == 0 {
		return nil, errors.New("no boards to capture")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	seen := make(map[string]bool, len(cfg.Boards))
	workers := make([]*Worker, 0, len(cfg.Boards))
	for _, b := range cfg.Boards {
		if seen[b.Name] {
			return nil, fmt.Errorf("duplicate board name %q", b.Name)
		}
		seen[b.Name] = true

		w, err := NewWorker(WorkerConfig{
			Board:       b.Name,
			Endpoint:    b.Endpoint,
			OutputDir:   cfg.OutputDir,
			Options:     cfg.Options,
			ReadTimeout: cfg.ReadTimeout,
			Opener:      cfg.Opener,
			Clock:       cfg.Clock,
			Publisher:   cfg.Publisher,
		})
		if err != nil {
			return nil, fmt.Errorf("board %q: %w", b.Name, err)
		}
		workers = append(workers, w)
	}

	return &Session{cfg: cfg, clock: cfg.Clock, workers: workers}, nil
}

// Workers returns the session's workers for status inspection.
func (s *Session) Workers() []*Worker {
	return s.workers
}

// Run starts every worker and supervises them until ctx is cancelled or
// all workers finish on their own. It returns an error only when every
// worker failed; partial failures are reported through worker state.
func (s *Session) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.publishStartup()

	var wg sync.WaitGroup
	for _, w := range s.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Run(runCtx)
		}(w)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	monitoring.Logf("capturing from %d board(s)", len(s.workers))

	lastState := make(map[string]State, len(s.workers))
	for _, w := range s.workers {
		lastState[w.Board()] = StateConnecting
	}

	ticker := s.clock.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

supervise:
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("stopping capture")
			break supervise
		case <-finished:
			break supervise
		case <-ticker.C():
			s.reportTransitions(lastState)
		}
	}

	cancel()

	// Best-effort wind-down: a worker stuck in a blocking I/O call must
	// not hold the whole session hostage.
	grace := s.clock.NewTimer(s.cfg.StopGrace)
	defer grace.Stop()
	select {
	case <-finished:
	case <-grace.C():
		monitoring.Logf("capture workers still busy after %s, abandoning wait", s.cfg.StopGrace)
	}

	s.reportTransitions(lastState)
	s.publishShutdown(ctx)

	if s.allFailed() {
		return errors.New("all capture workers failed")
	}
	return nil
}

// reportTransitions logs workers whose state changed since the last poll.
// Failure causes are logged by the worker itself at failure time.
func (s *Session) reportTransitions(lastState map[string]State) {
	for _, w := range s.workers {
		state := w.State()
		if state == lastState[w.Board()] {
			continue
		}
		lastState[w.Board()] = state
		monitoring.Logf("[%s] %s", w.Board(), state)
	}
}

func (s *Session) allFailed() bool {
	for _, w := range s.workers {
		if w.State() != StateFailed {
			return false
		}
	}
	return true
}

func (s *Session) publishStartup() {
	if s.cfg.Publisher == nil {
		return
	}

	boards := make([]string, 0, len(s.workers))
	for _, w := range s.workers {
		boards = append(boards, w.Board())
	}
	event := mqtt.SystemEvent{
		Timestamp: s.clock.Now(),
		Event:     "STARTUP",
		Boards:    boards,
	}
	if err := s.cfg.Publisher.PublishSystem(event); err != nil {
		monitoring.Logf("mqtt publish STARTUP: %v", err)
	}
}

func (s *Session) publishShutdown(ctx context.Context) {
	if s.cfg.Publisher == nil {
		return
	}

	event := mqtt.SystemEvent{
		Timestamp: s.clock.Now(),
		Event:     "SHUTDOWN",
	}
	if ctx.Err() != nil {
		event.Reason = "INTERRUPT"
	}
	if err := s.cfg.Publisher.PublishSystem(event); err != nil {
		monitoring.Logf("mqtt publish SHUTDOWN: %v", err)
	}
}
