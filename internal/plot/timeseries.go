package plot

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/bioperiant/bp12-tools/internal/analysis"
	"github.com/bioperiant/bp12-tools/internal/domain"
)

// Default x range of time-series panels.
var (
	DefaultStart = time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Series labels of model-versus-observation panels.
const (
	ModelLabel = "BIOPERIANT12"
	ObsLabel   = "OBS"
)

// TSOptions style a time-series panel.
type TSOptions struct {
	Colors []string // Passed through SelectColors.
	Styles []string // Line style keys, default LineStylesFor.
	Trend  bool     // Annotate each series with its Mann-Kendall trend.

	Start, End time.Time // Zero values select DefaultStart and DefaultEnd.
}

func (o TSOptions) xRange() (lo, hi float64) {
	start, end := o.Start, o.End
	if start.IsZero() {
		start = DefaultStart
	}
	if end.IsZero() {
		end = DefaultEnd
	}
	return float64(start.Unix()), float64(end.Unix())
}

func (o TSOptions) styles(n int) []string {
	if len(o.Styles) >= n {
		return o.Styles[:n]
	}
	return LineStylesFor(n)
}

// trendAnchors are the annotation positions for one, two or three series.
var trendAnchors = [][]Anchor{
	{{X: 0.05, Y: 0.85}},
	{{X: 0, Y: 0.05}, {X: 0.35, Y: 0.05}},
	{{X: 0, Y: 0.05}, {X: 0.35, Y: 0.05}, {X: 0.7, Y: 0.05}},
}

// Timeseries plots one to three series, each against its own y axis. The
// first uses the left axis; the others get colored axes to the right.
func (p *Panel) Timeseries(series []*domain.DataArray, lims []Limits, labels []string, opt TSOptions) error {
	n := len(series)
	if n < 1 || n > 3 {
		return fmt.Errorf("time series panel with %d series, want 1 to 3", n)
	}
	if len(lims) != n || len(labels) != n {
		return fmt.Errorf("time series panel: %d series, %d limits, %d labels", n, len(lims), len(labels))
	}
	for i, l := range lims {
		if !l.valid() {
			return fmt.Errorf("time series %s: empty limits %v", labels[i], l)
		}
	}
	colors := SelectColors(opt.Colors, n)
	styles := opt.styles(n)

	primary := lims[0]
	p.setY(primary, primary.Ticks())
	p.Y.Label.Text = labels[0]
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006"}
	p.setX(opt.xRange())
	p.Add(plotter.NewGrid())
	if n > 1 {
		c := ParseColor(colors[0])
		p.Y.Color, p.Y.Label.TextStyle.Color, p.Y.Tick.Color, p.Y.Tick.Label.Color = c, c, c, c
	}

	for i, a := range series {
		width, alpha := 2.0, 1.0
		if n == 3 && i == 0 {
			alpha = 0.7
		}
		if i == 2 {
			width = 3
		}
		var scale func(float64) float64
		if i > 0 {
			lim := lims[i]
			scale = func(v float64) float64 { return lim.rescale(primary, v) }
			p.Add(&rightAxis{
				lim: lim, label: labels[i], color: ParseColor(colors[i]),
				offset: vg.Length(i-1) * rightAxisWidth,
			})
			p.rightPad += rightAxisWidth
		}
		if err := p.addSeries(a, scale, WithAlpha(ParseColor(colors[i]), alpha), styles[i], width); err != nil {
			return err
		}
		if opt.Trend {
			if err := p.annotateTrend(a, labels[i], trendAnchors[n-1][i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// ModelVsObs plots a model series (solid) against an observed one (dashed)
// on one axis. Ticks stop below lim.Max.
func (p *Panel) ModelVsObs(mdl, obs *domain.DataArray, lim Limits, label string, opt TSOptions) error {
	if !lim.valid() {
		return fmt.Errorf("model versus obs %s: empty limits %v", label, lim)
	}
	colors := SelectColors(opt.Colors, 2)
	p.setY(lim, lim.ticksBelowMax())
	p.Y.Label.Text = label
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006"}
	p.setX(opt.xRange())
	p.Add(plotter.NewGrid())

	if err := p.addSeries(mdl, nil, ParseColor(colors[0]), "-", 2); err != nil {
		return err
	}
	if err := p.addSeries(obs, nil, ParseColor(colors[1]), "--", 3); err != nil {
		return err
	}
	if opt.Trend {
		if err := p.annotateTrend(mdl, label, Anchor{X: 0.05, Y: 0.85}); err != nil {
			return err
		}
		if err := p.annotateTrend(obs, label, Anchor{X: 0.05, Y: 0.77}); err != nil {
			return err
		}
	}
	return nil
}

// xValues returns Unix seconds for a series with timestamps, otherwise the
// step index (climatologies).
func xValues(a *domain.DataArray) []float64 {
	x := make([]float64, len(a.Values))
	for i := range x {
		if len(a.Times) == len(a.Values) {
			x[i] = float64(a.Times[i].Unix())
			continue
		}
		x[i] = float64(i)
	}
	return x
}

// segments splits a curve at missing values; plotter.NewLine rejects NaN.
func segments(x, y []float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i := range y {
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) || math.IsNaN(x[i]) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: x[i], Y: y[i]})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func (p *Panel) addSeries(a *domain.DataArray, scale func(float64) float64, c color.Color, style string, width float64) error {
	if a == nil || a.Ndim() != 1 {
		return errors.New("time series must be a 1-D array")
	}
	y := a.Values
	if scale != nil {
		y = make([]float64, len(a.Values))
		for i, v := range a.Values {
			y[i] = scale(v)
		}
	}
	for _, seg := range segments(xValues(a), y) {
		l, err := plotter.NewLine(seg)
		if err != nil {
			return fmt.Errorf("plot %s: %w", a.Name, err)
		}
		l.Color = c
		l.Width = vg.Points(width)
		l.Dashes = ParseLineStyle(style)
		p.Add(l)
	}
	return nil
}

// TrendText is "<first word of label> <direction> trend p=<p>".
func TrendText(label, trend string, p float64) string {
	name := label
	if f := strings.Fields(label); len(f) > 0 {
		name = f[0]
	}
	return fmt.Sprintf("%s %s trend p=%.3f", name, trend, p)
}

// annotateTrend writes the trend text of a in black, whatever the line color.
func (p *Panel) annotateTrend(a *domain.DataArray, label string, at Anchor) error {
	trend, pv, err := analysis.CheckTrend(a.Values, analysis.TestOriginal)
	if err != nil {
		return fmt.Errorf("trend of %s: %w", a.Name, err)
	}
	p.over.add(&annotation{x: at.X, y: at.Y, text: TrendText(label, trend, pv), color: color.Black})
	return nil
}

// Season shading.
var (
	djfColor     = WithAlpha(ParseColor("#d8d8d8"), 0.3)
	djfClimColor = WithAlpha(ParseColor("#f4a582"), 0.3)
	jasColor     = WithAlpha(ParseColor("#92c5de"), 0.2)
)

// AddSeasons shades austral summer (DJF) and winter (JAS) for every year
// from firstYear to lastYear. Call it after the y range is set.
func (p *Panel) AddSeasons(firstYear, lastYear int, legend bool) error {
	ymin, ymax := p.yLimits()
	unix := func(y int, m time.Month, d int) float64 {
		return float64(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix())
	}
	if err := p.band(unix(firstYear, time.January, 1), unix(firstYear, time.February, 28), ymin, ymax, djfColor); err != nil {
		return err
	}
	for y := firstYear; y <= lastYear; y++ {
		if err := p.band(unix(y, time.December, 1), unix(y+1, time.February, 28), ymin, ymax, djfColor); err != nil {
			return err
		}
		if err := p.band(unix(y, time.July, 1), unix(y, time.September, 30), ymin, ymax, jasColor); err != nil {
			return err
		}
	}
	if legend {
		return p.seasonLegend(djfColor)
	}
	return nil
}

// AddClimatologySeasons shades DJF and JAS on a monthly climatology axis
// starting in December.
func (p *Panel) AddClimatologySeasons(legend bool) error {
	ymin, ymax := p.yLimits()
	if err := p.band(0, 3, ymin, ymax, djfClimColor); err != nil {
		return err
	}
	if err := p.band(5, 8, ymin, ymax, jasColor); err != nil {
		return err
	}
	if legend {
		return p.seasonLegend(djfClimColor)
	}
	return nil
}

func (p *Panel) band(x0, x1, y0, y1 float64, c color.Color) error {
	poly, err := plotter.NewPolygon(plotter.XYs{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}})
	if err != nil {
		return err
	}
	poly.Color = c
	poly.LineStyle.Width = 0
	p.under.add(poly)
	return nil
}

func (p *Panel) seasonLegend(djf color.Color) error {
	entries := make([]legendEntry, 0, 2)
	for _, s := range []struct {
		name string
		c    color.Color
	}{{"DJF", djf}, {"JAS", jasColor}} {
		patch, err := plotter.NewPolygon(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}})
		if err != nil {
			return err
		}
		patch.Color = s.c
		patch.LineStyle.Width = 0
		entries = append(entries, legendEntry{label: s.name, thumbs: []plot.Thumbnailer{patch}})
	}
	p.over.add(&legendBox{at: Anchor{X: 0.8, Y: 0.85}, cols: 2, entries: entries})
	return nil
}
