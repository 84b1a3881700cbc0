// Package align discovers the clock offset between a captured frequency
// series and a reference series by brute-force correlation. The capture
// host's wall clock may be minutes wrong in either direction; the grid
// frequency trace is distinctive enough that the true offset shows up as a
// sharp correlation peak.
package align

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gridseis/gridseis/internal/series"
)

const (
	// MinOffsetMinutes and MaxOffsetMinutes bound the candidate search,
	// inclusive on both ends.
	MinOffsetMinutes = -120
	MaxOffsetMinutes = 120

	// OffsetStep is the candidate spacing.
	OffsetStep = time.Minute

	// GridStep is the common resampling interval both series are
	// interpolated onto before scoring.
	GridStep = 15 * time.Second

	// MinGridPoints is the smallest overlap worth scoring. Fewer points
	// make the correlation coefficient meaningless.
	MinGridPoints = 10
)

var (
	// ErrNoValidAlignment reports that no candidate offset produced a
	// scoreable overlap. The caller must treat this as "unknown offset",
	// never as offset zero.
	ErrNoValidAlignment = errors.New("no candidate offset produced a valid alignment")

	// ErrInsufficientOverlap reports a single candidate whose overlap
	// window resamples to fewer than MinGridPoints points.
	ErrInsufficientOverlap = errors.New("overlap too short to score")
)

// Result is the outcome of a successful search.
type Result struct {
	// OffsetMinutes is the shift to add to captured timestamps so they line
	// up with the reference timeline.
	OffsetMinutes int

	// Correlation is the Pearson coefficient at that offset.
	Correlation float64
}

// Offset returns the result's shift as a duration.
func (r Result) Offset() time.Duration {
	return time.Duration(r.OffsetMinutes) * time.Minute
}

func (r Result) String() string {
	return fmt.Sprintf("%+d min (r=%.4f)", r.OffsetMinutes, r.Correlation)
}

// Search scans every candidate offset and returns the first one with the
// strictly highest correlation. Candidates are visited in increasing offset
// order, so ties resolve to the earliest candidate deterministically.
func Search(ref, captured series.Series) (Result, error) {
	best := Result{}
	found := false

	for m := MinOffsetMinutes; m <= MaxOffsetMinutes; m++ {
		shift := time.Duration(m) * OffsetStep

		corr, err := correlateAt(ref, captured, shift)
		if err != nil {
			continue
		}
		// A flat window has no defined correlation; never let it win.
		if math.IsNaN(corr) {
			continue
		}

		if !found || corr > best.Correlation {
			best = Result{OffsetMinutes: m, Correlation: corr}
			found = true
		}
	}

	if !found {
		return Result{}, ErrNoValidAlignment
	}
	return best, nil
}

// correlateAt scores one candidate: shift the captured series, intersect
// the time ranges, resample both onto the common grid, and compute the
// Pearson coefficient.
func correlateAt(ref, captured series.Series, shift time.Duration) (float64, error) {
	if len(ref) == 0 || len(captured) == 0 {
		return 0, ErrInsufficientOverlap
	}

	start := ref.Start()
	if s := captured.Start().Add(shift); s.After(start) {
		start = s
	}
	end := ref.End()
	if e := captured.End().Add(shift); e.Before(end) {
		end = e
	}
	if !start.Before(end) {
		return 0, ErrInsufficientOverlap
	}

	n := int(end.Sub(start)/GridStep) + 1
	if n < MinGridPoints {
		return 0, fmt.Errorf("%w: %d grid points", ErrInsufficientOverlap, n)
	}

	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		t := start.Add(time.Duration(i) * GridStep)
		a[i] = valueAt(ref, t)
		b[i] = valueAt(captured, t.Add(-shift))
	}

	return stat.Correlation(a, b, nil), nil
}

// valueAt linearly interpolates the series at t, clamping to the first and
// last values outside the covered range. An exact query on a duplicated
// timestamp reads the later point, the interval the query starts.
func valueAt(s series.Series, t time.Time) float64 {
	i := sort.Search(len(s), func(i int) bool {
		return s[i].Time.After(t)
	})
	if i == 0 {
		return s[0].Value
	}
	if i == len(s) {
		return s[len(s)-1].Value
	}

	p0, p1 := s[i-1], s[i]
	dt := p1.Time.Sub(p0.Time)
	if dt <= 0 {
		return p0.Value
	}
	frac := float64(t.Sub(p0.Time)) / float64(dt)
	return p0.Value + frac*(p1.Value-p0.Value)
}
