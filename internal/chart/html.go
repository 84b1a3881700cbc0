package chart

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gridseis/gridseis/internal/series"
)

// RenderHTML writes an interactive version of the frequency plot to path.
// The page pulls the echarts runtime from its default assets host, so it
// renders fully only with network access.
func RenderHTML(path string, in Input) error {
	start, end := timeBounds(in)
	if start.IsZero() {
		return fmt.Errorf("no points to plot")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "UK Grid Frequency", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "UK Grid Frequency", Subtitle: fmt.Sprintf("%s to %s", start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time", Name: "Time (UTC)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Frequency (Hz)", Scale: opts.Bool(true)}),
	)

	line.AddSeries("50 Hz nominal", []opts.LineData{
		{Value: []interface{}{start.UnixMilli(), Nominal}},
		{Value: []interface{}{end.UnixMilli(), Nominal}},
	}, charts.WithLineStyleOpts(opts.LineStyle{Color: "#9e9e9e", Type: "dashed"}))

	if len(in.Reference) > 0 {
		line.AddSeries("National Grid Reference", lineData(in.Reference),
			charts.WithLineStyleOpts(opts.LineStyle{Color: "#1f77b4", Width: 1.5}),
		)
	}

	names := boardNames(in.Boards)
	if len(names) > 0 {
		boards := charts.NewScatter()
		palette := hexColors(len(names))
		for i, name := range names {
			s := in.Boards[name]
			if len(s) == 0 {
				continue
			}
			boards.AddSeries(name, scatterData(s),
				charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
				charts.WithItemStyleOpts(opts.ItemStyle{Color: palette[i]}),
			)
		}
		line.Overlap(boards)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

func lineData(s series.Series) []opts.LineData {
	data := make([]opts.LineData, 0, len(s))
	for _, pt := range s {
		data = append(data, opts.LineData{Value: []interface{}{pt.Time.UnixMilli(), pt.Value}})
	}
	return data
}

func scatterData(s series.Series) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(s))
	for _, pt := range s {
		data = append(data, opts.ScatterData{Value: []interface{}{pt.Time.UnixMilli(), pt.Value}})
	}
	return data
}
