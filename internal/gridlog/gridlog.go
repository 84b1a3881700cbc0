// Package gridlog persists measurement records as append-only JSON lines,
// one file per board. Appends are flushed to stable storage record by
// record so a crash loses at most the line in flight.
package gridlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gridseis/gridseis/internal/sample"
)

const (
	filePrefix = "grid_log_"
	fileExt    = ".jsonl"
)

// LogPath returns the log file path for a board within dir.
func LogPath(dir, board string) string {
	return filepath.Join(dir, filePrefix+board+fileExt)
}

// Glob returns the pattern matching all board logs within dir.
func Glob(dir string) string {
	return filepath.Join(dir, filePrefix+"*"+fileExt)
}

// BoardFromPath recovers the board name from a log file path. It returns ""
// when the path does not follow the log naming convention.
func BoardFromPath(path string) string {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileExt) {
		return ""
	}
	return base[len(filePrefix) : len(base)-len(fileExt)]
}

// Writer appends records for a single board. It only ever appends: opening
// an existing log preserves its full history.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open creates or opens the append-only log for board within dir.
func Open(dir, board string) (*Writer, error) {
	if board == "" {
		return nil, fmt.Errorf("open log: empty board name")
	}
	if strings.ContainsAny(board, `/\`) {
		return nil, fmt.Errorf("open log: board name %q contains a path separator", board)
	}

	path := LogPath(dir, board)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}

	return &Writer{f: f, path: path}, nil
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one record as a JSON line and syncs it to stable storage.
// When Append returns nil the record is durable.
func (w *Writer) Append(rec sample.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return fmt.Errorf("append to %s: writer closed", w.path)
	}
	if _, err := w.f.Write(data); err != nil {
		return fmt.Errorf("append to %s: %w", w.path, err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", w.path, err)
	}
	return nil
}

// Close closes the underlying file. Records already appended stay durable.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// ScanRecords decodes records from a log stream in file order and calls fn
// for each. Lines that fail to decode are skipped; an error from fn stops
// the scan and is returned.
func ScanRecords(r io.Reader, fn func(sample.Record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec sample.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ScanFile opens a log file and scans it with ScanRecords.
func ScanFile(path string, fn func(sample.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()
	return ScanRecords(f, fn)
}
