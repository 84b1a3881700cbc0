package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deviation is a slow sinusoid (30 min period) so that a shifted copy of the
// signal never correlates as well as the unshifted one.
func deviation(base, t time.Time) float64 {
	return 0.05 * math.Sin(2*math.Pi*t.Sub(base).Seconds()/1800)
}

func writeReferenceFile(t *testing.T, path string, base time.Time, n int, step time.Duration) {
	t.Helper()
	type entry struct {
		MeasurementTime string  `json:"measurementTime"`
		Frequency       float64 `json:"frequency"`
	}
	entries := make([]entry, n)
	for i := range entries {
		ts := base.Add(time.Duration(i) * step)
		entries[i] = entry{
			MeasurementTime: ts.UTC().Format(time.RFC3339),
			Frequency:       50 + deviation(base, ts),
		}
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// writeLogFile emits records the way a board would: the measured value is the
// complement of line frequency, so loading with invert restores it.
func writeLogFile(t *testing.T, path string, base time.Time, n int, step time.Duration) {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * step)
		fmt.Fprintf(&b, "{\"freq\":%g,\"signal\":0.9,\"wall_time\":%q}\n",
			50-deviation(base, ts), ts.UTC().Format(time.RFC3339Nano))
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func execCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestPlotDiscoversAndAligns(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC)
	writeReferenceFile(t, filepath.Join(dir, "RollingSystemFrequency20260207.json"), base, 41, 15*time.Second)
	writeLogFile(t, filepath.Join(dir, "grid_log_board1.jsonl"), base, 600, time.Second)

	out, err := execCommand(t, "plot", "--dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Loaded 41 reference samples from")
	assert.Contains(t, out, "Loaded 600 samples from")
	assert.Contains(t, out, "Optimal offset: 0 minutes")
	assert.Contains(t, out, "Plot saved to ")

	plots, err := filepath.Glob(filepath.Join(dir, "grid_plot_*.png"))
	require.NoError(t, err)
	require.Len(t, plots, 1)
}

func TestPlotLogsOnlySkipsAlignment(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC)
	writeLogFile(t, filepath.Join(dir, "grid_log_board1.jsonl"), base, 60, time.Second)

	out, err := execCommand(t, "plot", "--dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "No reference data; skipping alignment.")
	assert.NotContains(t, out, "Optimal offset")

	plots, err := filepath.Glob(filepath.Join(dir, "grid_plot_*.png"))
	require.NoError(t, err)
	require.Len(t, plots, 1)
}

func TestPlotNoDataFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := execCommand(t, "plot", "--dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data files found")
}

func TestPlotOutBasenameAndHTML(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC)
	writeLogFile(t, filepath.Join(dir, "grid_log_board1.jsonl"), base, 60, time.Second)

	out, err := execCommand(t, "plot", "--dir", dir, "--out", "myplot", "--html")
	require.NoError(t, err)

	assert.Contains(t, out, "Plot saved to "+filepath.Join(dir, "myplot.png"))
	assert.Contains(t, out, "Chart saved to "+filepath.Join(dir, "myplot.html"))

	for _, name := range []string{"myplot.png", "myplot.html"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}

func TestPlotExplicitLogUsesFileStem(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC)
	logPath := filepath.Join(dir, "kitchen-capture.jsonl")
	writeLogFile(t, logPath, base, 60, time.Second)

	_, err := execCommand(t, "plot", "--dir", dir, "--logs", logPath, "--out", "explicit", "--html")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "explicit.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "kitchen-capture")
}

func TestPlotWindowCanExcludeEverything(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC)
	writeLogFile(t, filepath.Join(dir, "grid_log_board1.jsonl"), base, 60, time.Second)

	_, err := execCommand(t, "plot", "--dir", dir,
		"--from", "2030-01-01T00:00:00Z", "--to", "2030-01-02T00:00:00Z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no points to plot")
}

func TestPlotBadWindowFlag(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC)
	writeLogFile(t, filepath.Join(dir, "grid_log_board1.jsonl"), base, 10, time.Second)

	_, err := execCommand(t, "plot", "--dir", dir, "--from", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse --from")
}
