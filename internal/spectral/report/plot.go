package report

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/spectrack/internal/monitoring"
)

// PlotOptions controls the PNG rendering.
type PlotOptions struct {
	Title  string
	Width  vg.Length // 14in when zero
	Height vg.Length // 6in when zero
}

func (o PlotOptions) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 14 * vg.Inch
	}
	if h <= 0 {
		h = 6 * vg.Inch
	}
	return w, h
}

// NewTimeFrequencyPlot draws every track as a segment from its start to
// its end in time-frequency space, one colour per event. Cut tracks are
// dashed grey.
func NewTimeFrequencyPlot(d Data, o PlotOptions) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = o.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("Tracks (%d) and events (%d)", len(d.Tracks), len(d.Events))
	}
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Frequency (Hz)"
	p.Add(plotter.NewGrid())

	groups := d.groups()
	colors := generateColors(len(groups))
	for i, g := range groups {
		c := colors[i]
		if g.label == "cut" {
			c = color.Gray{Y: 160}
		}
		for j, t := range g.tracks {
			line, err := plotter.NewLine(plotter.XYs{
				{X: t.StartTime, Y: t.StartFrequency},
				{X: t.EndTime, Y: t.EndFrequency},
			})
			if err != nil {
				return nil, fmt.Errorf("track %d line: %w", t.TrackID, err)
			}
			line.Color = c
			line.Width = vg.Points(1.5)
			if t.IsCut {
				line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			}
			p.Add(line)

			start, err := plotter.NewScatter(plotter.XYs{{X: t.StartTime, Y: t.StartFrequency}})
			if err != nil {
				return nil, fmt.Errorf("track %d start: %w", t.TrackID, err)
			}
			start.GlyphStyle.Color = c
			start.GlyphStyle.Shape = draw.CircleGlyph{}
			start.GlyphStyle.Radius = vg.Points(2)
			p.Add(start)

			if j == 0 {
				p.Legend.Add(g.label, line)
			}
		}
	}
	if b, ok := d.Extent(); ok {
		setAxisRange(&p.X, b.Left(), b.Right())
		setAxisRange(&p.Y, b.Bottom(), b.Top())
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// setAxisRange pads [lo, hi] by 5% on each side. A degenerate range is
// widened to one unit.
func setAxisRange(a *plot.Axis, lo, hi float64) {
	pad := 0.05 * (hi - lo)
	if pad == 0 {
		pad = 0.5
	}
	a.Min, a.Max = lo-pad, hi+pad
}

// WritePNG renders the time-frequency plot of d as PNG to w.
func WritePNG(w io.Writer, d Data, o PlotOptions) error {
	p, err := NewTimeFrequencyPlot(d, o)
	if err != nil {
		return err
	}
	width, height := o.size()
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG writes the time-frequency plot of d to path, creating parent
// directories as needed.
func SavePNG(path string, d Data, o PlotOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	p, err := NewTimeFrequencyPlot(d, o)
	if err != nil {
		return err
	}
	width, height := o.size()
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	monitoring.Logf("wrote time-frequency plot %s (%d tracks)", path, len(d.Tracks))
	return nil
}
