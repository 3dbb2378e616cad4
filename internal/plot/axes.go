package plot

import (
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Limits is an axis range and tick spacing.
type Limits struct {
	Min, Max, Tick float64
}

// Ticks returns Min, Min+Tick, ... up to and including Max.
func (l Limits) Ticks() []float64 { return l.arange(l.Max + l.Tick) }

// ticksBelowMax stops before Max.
func (l Limits) ticksBelowMax() []float64 { return l.arange(l.Max) }

func (l Limits) arange(stop float64) []float64 {
	if l.Tick <= 0 || stop <= l.Min {
		return nil
	}
	n := int(math.Ceil((stop-l.Min)/l.Tick - 1e-9))
	out := make([]float64, n)
	for i := range out {
		out[i] = round6(l.Min + float64(i)*l.Tick)
	}
	return out
}

func (l Limits) valid() bool { return l.Max > l.Min }

// rescale maps v from l onto to.
func (l Limits) rescale(to Limits, v float64) float64 {
	return to.Min + (v-l.Min)*(to.Max-to.Min)/(l.Max-l.Min)
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func tickLabel(v float64) string { return strconv.FormatFloat(round6(v), 'f', -1, 64) }

func constantTicks(values []float64) plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, len(values))
	for i, v := range values {
		ticks[i] = plot.Tick{Value: v, Label: tickLabel(v)}
	}
	return ticks
}

// setY fixes the y range and ticks of the panel. Ranges are applied at draw
// time so later plotters cannot widen them.
func (p *Panel) setY(l Limits, ticks []float64) {
	p.yRange = &[2]float64{l.Min, l.Max}
	if ticks != nil {
		p.Y.Tick.Marker = constantTicks(ticks)
	}
}

func (p *Panel) setX(lo, hi float64) { p.xRange = &[2]float64{lo, hi} }

// yLimits returns the fixed y range, or the data range so far.
func (p *Panel) yLimits() (lo, hi float64) {
	if p.yRange != nil {
		return p.yRange[0], p.yRange[1]
	}
	return p.Y.Min, p.Y.Max
}

func (p *Panel) applyRanges() {
	if p.xRange != nil {
		p.X.Min, p.X.Max = p.xRange[0], p.xRange[1]
	}
	if p.yRange != nil {
		p.Y.Min, p.Y.Max = p.yRange[0], p.yRange[1]
	}
}

// layer draws a group of plotters in order. Every panel starts with an
// underlay so shading added late still sits below the data.
type layer []plot.Plotter

func (l *layer) Plot(c draw.Canvas, p *plot.Plot) {
	for _, pl := range *l {
		pl.Plot(c, p)
	}
}

func (l *layer) add(ps ...plot.Plotter) { *l = append(*l, ps...) }

// rightAxis is a secondary y axis drawn right of the data area. Its series
// are rescaled into the primary range before plotting.
type rightAxis struct {
	lim    Limits
	label  string
	color  color.Color
	offset vg.Length
}

func (r *rightAxis) Plot(c draw.Canvas, p *plot.Plot) {
	const tickLen = 4
	x := c.Max.X + r.offset
	ls := draw.LineStyle{Color: r.color, Width: vg.Points(1)}
	c.StrokeLine2(ls, x, c.Min.Y, x, c.Max.Y)

	ts := p.Y.Tick.Label
	ts.Color = r.color
	ts.XAlign = draw.XLeft
	ts.YAlign = draw.YCenter
	for _, v := range r.lim.Ticks() {
		if v > r.lim.Max+1e-9 {
			continue
		}
		y := c.Min.Y + vg.Length((v-r.lim.Min)/(r.lim.Max-r.lim.Min))*(c.Max.Y-c.Min.Y)
		c.StrokeLine2(ls, x, y, x+vg.Points(tickLen), y)
		c.FillText(ts, vg.Point{X: x + vg.Points(tickLen+2), Y: y}, tickLabel(v))
	}

	lsty := p.Y.Label.TextStyle
	lsty.Color = r.color
	lsty.XAlign = draw.XCenter
	lsty.YAlign = draw.YCenter
	c.FillText(lsty, vg.Point{X: x + rightAxisWidth*0.75, Y: (c.Min.Y + c.Max.Y) / 2}, r.label)
}

// annotation is text placed at a fraction of the data area.
type annotation struct {
	x, y  float64
	text  string
	color color.Color
}

func (a *annotation) Plot(c draw.Canvas, p *plot.Plot) {
	ts := p.Legend.TextStyle
	ts.Color = a.color
	ts.XAlign = draw.XLeft
	ts.YAlign = draw.YBottom
	c.FillText(ts, vg.Point{X: c.X(a.x), Y: c.Y(a.y)}, a.text)
}

// Anchor is the lower-left corner of a legend as a fraction of the data area.
type Anchor struct {
	X, Y float64
}

type legendEntry struct {
	label  string
	thumbs []plot.Thumbnailer
}

// legendBox lays entries out row by row in cols columns. plot.Legend only
// stacks entries in one column and allows a single legend per plot.
type legendBox struct {
	at       Anchor
	cols     int
	frame    bool
	fontSize vg.Length
	entries  []legendEntry
}

func (l *legendBox) Plot(c draw.Canvas, p *plot.Plot) {
	if len(l.entries) == 0 {
		return
	}
	ts := p.Legend.TextStyle
	if l.fontSize > 0 {
		ts.Font.Size = l.fontSize
	}
	ts.XAlign = draw.XLeft
	ts.YAlign = draw.YCenter

	cols := l.cols
	if cols < 1 {
		cols = 1
	}
	rows := (len(l.entries) + cols - 1) / cols
	thumbW, gap, pad := vg.Points(24), vg.Points(4), vg.Points(4)
	var textW vg.Length
	rowH := vg.Points(10)
	for _, e := range l.entries {
		textW = vg.Length(math.Max(float64(textW), float64(ts.Width(e.label))))
		rowH = vg.Length(math.Max(float64(rowH), float64(ts.Height(e.label))))
	}
	rowH += gap
	colW := thumbW + gap + textW + 2*gap

	x0, y0 := c.X(l.at.X), c.Y(l.at.Y)
	if l.frame {
		box := []vg.Point{
			{X: x0, Y: y0},
			{X: x0 + vg.Length(cols)*colW + 2*pad, Y: y0},
			{X: x0 + vg.Length(cols)*colW + 2*pad, Y: y0 + vg.Length(rows)*rowH + 2*pad},
			{X: x0, Y: y0 + vg.Length(rows)*rowH + 2*pad},
		}
		c.FillPolygon(WithAlpha(ParseColor("w"), 0.8), box)
		c.StrokeLines(draw.LineStyle{Color: ParseColor("darkgrey"), Width: vg.Points(0.5)}, append(box, box[0]))
	}
	for i, e := range l.entries {
		col, row := i%cols, i/cols
		left := x0 + pad + vg.Length(col)*colW
		bottom := y0 + pad + vg.Length(rows-1-row)*rowH
		tc := draw.Canvas{Canvas: c.Canvas, Rectangle: vg.Rectangle{
			Min: vg.Point{X: left, Y: bottom + gap/2},
			Max: vg.Point{X: left + thumbW, Y: bottom + rowH - gap/2},
		}}
		for _, th := range e.thumbs {
			th.Thumbnail(&tc)
		}
		c.FillText(ts, vg.Point{X: left + thumbW + gap, Y: bottom + rowH/2}, e.label)
	}
}
