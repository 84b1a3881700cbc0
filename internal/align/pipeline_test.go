package align

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridseis/gridseis/internal/gridlog"
	"github.com/gridseis/gridseis/internal/sample"
	"github.com/gridseis/gridseis/internal/series"
)

// TestPipelineRecoversCaptureClockError runs the whole reconciliation path
// against files on disk: a 15-second reference export and a capture log
// written record by record from an inverted sensor whose host clock ran 90
// minutes fast with irregular sampling. Loading both files and searching
// must recover the -90 minute correction with near-perfect correlation.
func TestPipelineRecoversCaptureClockError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	refStart := time.Date(2026, time.February, 7, 15, 0, 0, 0, time.UTC)
	refEnd := refStart.Add(time.Hour)

	refPath := writeReferenceFile(t, dir, refStart, refEnd)
	logPath := writeCaptureLog(t, dir, refStart, refEnd, 90*time.Minute)

	ref, err := series.FromReference(refPath)
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	captured, err := series.FromLog(logPath, series.LoadOptions{Invert: true})
	require.NoError(t, err)
	require.NotEmpty(t, captured)

	res, err := Search(ref, captured)
	require.NoError(t, err)

	assert.Equal(t, -90, res.OffsetMinutes)
	assert.Greater(t, res.Correlation, 0.99)

	// Applying the discovered correction brings the capture back onto the
	// reference timeline.
	aligned := captured.Shift(res.Offset())
	assert.WithinDuration(t, refStart, aligned.Start(), 2*time.Second)
}

func writeReferenceFile(t *testing.T, dir string, start, end time.Time) string {
	t.Helper()

	type entry struct {
		MeasurementTime string  `json:"measurementTime"`
		Frequency       float64 `json:"frequency"`
	}
	var entries []entry
	for ts := start; !ts.After(end); ts = ts.Add(15 * time.Second) {
		entries = append(entries, entry{
			MeasurementTime: ts.Format(time.RFC3339),
			Frequency:       deviation(ts),
		})
	}

	data, err := json.Marshal(entries)
	require.NoError(t, err)

	path := filepath.Join(dir, "RollingSystemFrequency_20260207.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// writeCaptureLog appends records the way a capture worker would: the
// sensor reports the inverted frequency, the host stamps each record with a
// clock running fast by skew, and samples arrive at an uneven cadence.
func writeCaptureLog(t *testing.T, dir string, start, end time.Time, skew time.Duration) string {
	t.Helper()

	w, err := gridlog.Open(dir, "board1")
	require.NoError(t, err)
	defer w.Close()

	rng := rand.New(rand.NewSource(42))
	for ts := start; !ts.After(end); {
		inverted := series.Invert(deviation(ts))
		signal := 0.5 + 0.4*rng.Float64()

		rec := sample.Record{
			Board:    "board1",
			WallTime: ts.Add(skew),
			Measurement: sample.Measurement{
				Frequency: &inverted,
				Signal:    &signal,
			},
		}
		require.NoError(t, w.Append(rec))

		ts = ts.Add(time.Second + time.Duration(rng.Intn(600))*time.Millisecond)
	}

	return w.Path()
}
