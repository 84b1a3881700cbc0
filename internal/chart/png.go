package chart

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gridseis/gridseis/internal/series"
)

// RenderPNG draws the reference as a line and each board as a point cloud,
// with a dashed marker at the 50 Hz nominal, and saves the result to path.
func RenderPNG(path string, in Input) error {
	start, end := timeBounds(in)
	if start.IsZero() {
		return fmt.Errorf("no points to plot")
	}

	p := plot.New()
	p.Title.Text = "UK Grid Frequency"
	p.X.Label.Text = "Time (UTC)"
	p.Y.Label.Text = "Frequency (Hz)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04"}
	p.Add(plotter.NewGrid())

	nominal, err := plotter.NewLine(plotter.XYs{
		{X: float64(start.Unix()), Y: Nominal},
		{X: float64(end.Unix()), Y: Nominal},
	})
	if err != nil {
		return err
	}
	nominal.Color = color.Gray{Y: 128}
	nominal.Width = vg.Points(1)
	nominal.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(nominal)
	p.Legend.Add("50 Hz nominal", nominal)

	if len(in.Reference) > 0 {
		ref, err := plotter.NewLine(xys(in.Reference))
		if err != nil {
			return err
		}
		ref.Color = color.RGBA{B: 255, A: 255}
		ref.Width = vg.Points(1.5)
		p.Add(ref)
		p.Legend.Add("National Grid Reference", ref)
	}

	names := boardNames(in.Boards)
	colors := generateColors(len(names))
	for i, name := range names {
		s := in.Boards[name]
		if len(s) == 0 {
			continue
		}
		pts, err := plotter.NewScatter(xys(s))
		if err != nil {
			return err
		}
		pts.GlyphStyle.Shape = draw.CircleGlyph{}
		pts.GlyphStyle.Radius = vg.Points(1.5)
		pts.GlyphStyle.Color = colors[i]
		p.Add(pts)
		p.Legend.Add(name, pts)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func xys(s series.Series) plotter.XYs {
	pts := make(plotter.XYs, 0, len(s))
	for _, pt := range s {
		pts = append(pts, plotter.XY{X: float64(pt.Time.Unix()), Y: pt.Value})
	}
	return pts
}
