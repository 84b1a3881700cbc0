package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridseis/gridseis/internal/align"
	"github.com/gridseis/gridseis/internal/chart"
	"github.com/gridseis/gridseis/internal/gridlog"
	"github.com/gridseis/gridseis/internal/series"
)

// PlotOptions holds flags for the plot command.
type PlotOptions struct {
	*RootOptions
	Dir         string
	Reference   string
	Logs        []string
	Invert      bool
	FieldName   string
	Offset      time.Duration
	Align       bool
	ApplyOffset bool
	HTML        bool
	Out         string
	From        string
	To          string

	// Now stamps generated output file names. Overridable for testing.
	Now func() time.Time
}

// NewPlotCommand creates the plot command.
func NewPlotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlotOptions{RootOptions: rootOpts, Now: time.Now}

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Plot captured logs against a reference export",
		Long: `Plot captured frequency logs, optionally against a National Grid reference
export, and search for the clock offset that best aligns the two.

Reference and log files are discovered in the working directory
(RollingSystemFrequency*.json and grid_log_*.jsonl) unless given explicitly.

Example:
  gridseis plot
  gridseis plot --dir /data/grid --field smoothed --html
  gridseis plot --align=false --offset -1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", ".", "directory searched for reference and log files")
	cmd.Flags().StringVar(&opts.Reference, "reference", "", "reference JSON file (overrides discovery)")
	cmd.Flags().StringArrayVar(&opts.Logs, "logs", nil, "capture log file (repeatable, overrides discovery)")
	cmd.Flags().BoolVar(&opts.Invert, "invert", true, "mirror captured values around the 50 Hz nominal")
	cmd.Flags().StringVar(&opts.FieldName, "field", "raw", "measurement field to plot (raw|smoothed)")
	cmd.Flags().DurationVar(&opts.Offset, "offset", 0, "manual shift added to captured timestamps (e.g. 1h, -30m)")
	cmd.Flags().BoolVar(&opts.Align, "align", true, "search for the offset that best matches the reference")
	cmd.Flags().BoolVar(&opts.ApplyOffset, "apply-offset", true, "shift captured series by the discovered offset")
	cmd.Flags().BoolVar(&opts.HTML, "html", false, "also write an interactive HTML chart")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output file basename (default grid_plot_<timestamp>)")
	cmd.Flags().StringVar(&opts.From, "from", "", "truncate the plot before this RFC 3339 time")
	cmd.Flags().StringVar(&opts.To, "to", "", "truncate the plot after this RFC 3339 time")

	return cmd
}

func runPlot(cmd *cobra.Command, opts *PlotOptions) error {
	out := cmd.OutOrStdout()
	cfg := opts.Config.Plot

	invert := opts.Invert
	if !cmd.Flags().Changed("invert") {
		invert = cfg.Invert
	}
	fieldName := opts.FieldName
	if !cmd.Flags().Changed("field") && cfg.ValueField != "" {
		fieldName = cfg.ValueField
	}
	html := opts.HTML
	if !cmd.Flags().Changed("html") {
		html = html || cfg.HTML
	}

	field, err := series.ParseField(fieldName)
	if err != nil {
		return err
	}
	windowStart, windowEnd, err := resolveWindow(cmd, opts)
	if err != nil {
		return err
	}

	refPath, logPaths, err := discoverInputs(opts)
	if err != nil {
		return err
	}

	var ref series.Series
	if refPath != "" {
		ref, err = series.FromReference(refPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Loaded %d reference samples from %s\n", len(ref), refPath)
		if len(ref) > 0 {
			fmt.Fprintf(out, "  Time range: %s to %s\n",
				ref.Start().UTC().Format(time.RFC3339), ref.End().UTC().Format(time.RFC3339))
			lo, hi := valueRange(ref)
			fmt.Fprintf(out, "  Frequency range: %.3f - %.3f Hz\n", lo, hi)
		}
	}

	loadOpts := series.LoadOptions{Invert: invert, TimeOffset: opts.Offset, Field: field}
	boards := make(map[string]series.Series)
	for _, path := range logPaths {
		s, err := series.FromLog(path, loadOpts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Loaded %d samples from %s\n", len(s), path)
		if len(s) == 0 {
			continue
		}
		boards[boardName(path)] = s
	}

	doAlign := opts.Align
	if doAlign && len(ref) > 0 && len(boards) > 0 {
		res, err := align.Search(ref, boards[alignTarget(boards)])
		if err != nil {
			fmt.Fprintf(out, "No valid alignment found: %v\n", err)
		} else {
			fmt.Fprintf(out, "Optimal offset: %d minutes (correlation: %.4f)\n", res.OffsetMinutes, res.Correlation)
			if opts.ApplyOffset {
				for name, s := range boards {
					boards[name] = s.Shift(res.Offset())
				}
			}
		}
	} else if doAlign && len(boards) > 0 {
		fmt.Fprintln(out, "No reference data; skipping alignment.")
	}

	if !windowStart.IsZero() || !windowEnd.IsZero() {
		ref = ref.Window(windowStart, windowEnd)
		for name, s := range boards {
			boards[name] = s.Window(windowStart, windowEnd)
		}
	}

	input := chart.Input{Reference: ref, Boards: boards}
	now := opts.Now()

	pngPath := chart.OutputPath(opts.Dir, "png", now)
	if opts.Out != "" {
		pngPath = filepath.Join(opts.Dir, opts.Out+".png")
	}
	if err := chart.RenderPNG(pngPath, input); err != nil {
		return err
	}
	fmt.Fprintf(out, "Plot saved to %s\n", pngPath)

	if html {
		htmlPath := chart.OutputPath(opts.Dir, "html", now)
		if opts.Out != "" {
			htmlPath = filepath.Join(opts.Dir, opts.Out+".html")
		}
		if err := chart.RenderHTML(htmlPath, input); err != nil {
			return err
		}
		fmt.Fprintf(out, "Chart saved to %s\n", htmlPath)
	}
	return nil
}

// discoverInputs resolves the reference and log paths, falling back to the
// working directory globs when not given explicitly.
func discoverInputs(opts *PlotOptions) (string, []string, error) {
	refPath := opts.Reference
	if refPath == "" {
		matches, err := filepath.Glob(filepath.Join(opts.Dir, "RollingSystemFrequency*.json"))
		if err != nil {
			return "", nil, err
		}
		if len(matches) > 0 {
			refPath = matches[0]
		}
	}

	logPaths := opts.Logs
	if len(logPaths) == 0 {
		matches, err := filepath.Glob(gridlog.Glob(opts.Dir))
		if err != nil {
			return "", nil, err
		}
		logPaths = matches
	}

	if refPath == "" && len(logPaths) == 0 {
		return "", nil, fmt.Errorf("no data files found in %s: add RollingSystemFrequency*.json or grid_log_*.jsonl files, or pass --reference/--logs", opts.Dir)
	}
	return refPath, logPaths, nil
}

// resolveWindow picks the display window from flags, falling back to the
// config file values.
func resolveWindow(cmd *cobra.Command, opts *PlotOptions) (time.Time, time.Time, error) {
	start, end := opts.Config.Plot.GetWindow()
	if cmd.Flags().Changed("from") {
		t, err := time.Parse(time.RFC3339, opts.From)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --from: %w", err)
		}
		start = t
	}
	if cmd.Flags().Changed("to") {
		t, err := time.Parse(time.RFC3339, opts.To)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --to: %w", err)
		}
		end = t
	}
	return start, end, nil
}

// boardName derives a series label from a log path.
func boardName(path string) string {
	if name := gridlog.BoardFromPath(path); name != "" {
		return name
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// alignTarget picks the board with the most samples; ties resolve to the
// lexicographically first name.
func alignTarget(boards map[string]series.Series) string {
	names := make([]string, 0, len(boards))
	for name := range boards {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	for _, name := range names {
		if best == "" || len(boards[name]) > len(boards[best]) {
			best = name
		}
	}
	return best
}

func valueRange(s series.Series) (lo, hi float64) {
	for i, p := range s {
		if i == 0 || p.Value < lo {
			lo = p.Value
		}
		if i == 0 || p.Value > hi {
			hi = p.Value
		}
	}
	return lo, hi
}
