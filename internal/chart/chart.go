// Package chart renders captured and reference frequency series as plots:
// a static PNG via gonum/plot and an interactive HTML page via go-echarts.
package chart

import (
	"fmt"
	"image/color"
	"path/filepath"
	"sort"
	"time"

	"github.com/gridseis/gridseis/internal/series"
)

// Nominal is the UK grid's target frequency in Hz.
const Nominal = 50.0

// Input names the series to draw. Reference is optional; Boards maps a
// board name to its capture series. Either part may be empty, but a render
// with no points at all is an error.
type Input struct {
	Reference series.Series
	Boards    map[string]series.Series
}

// FormatTimestamp generates a timestamp string for output file naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// OutputPath returns the conventional plot file name under dir, for example
// grid_plot_20260207_153012.png.
func OutputPath(dir, ext string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("grid_plot_%s.%s", FormatTimestamp(t), ext))
}

// boardNames returns the board keys sorted for a stable legend.
func boardNames(boards map[string]series.Series) []string {
	names := make([]string, 0, len(boards))
	for name := range boards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// timeBounds returns the earliest and latest timestamps across all series.
// Both are zero when the input holds no points.
func timeBounds(in Input) (start, end time.Time) {
	extend := func(s series.Series) {
		if len(s) == 0 {
			return
		}
		if start.IsZero() || s.Start().Before(start) {
			start = s.Start()
		}
		if end.IsZero() || s.End().After(end) {
			end = s.End()
		}
	}
	extend(in.Reference)
	for _, s := range in.Boards {
		extend(s)
	}
	return start, end
}

// generateColors creates a palette of distinct colors for board series.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hexColors is the same palette as CSS color strings.
func hexColors(n int) []string {
	if n <= 0 {
		return nil
	}

	out := make([]string, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		out[i] = fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}
	return out
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
