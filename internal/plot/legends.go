package plot

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// biomeNames are the labelled biomes of the biome legend.
var biomeNames = []struct {
	name  string
	biome int
}{{"SO-ICE", 17}, {"SO-SPSS", 16}, {"SO-STSS", 15}}

func lineThumb(c string, alpha float64, style string, width float64) *plotter.Line {
	l := &plotter.Line{}
	l.Color = WithAlpha(ParseColor(c), alpha)
	l.Width = vg.Points(width)
	l.Dashes = ParseLineStyle(style)
	return l
}

// AddVarLegend labels the series of a Timeseries panel.
func (p *Panel) AddVarLegend(at Anchor, labels, colors, styles []string, cols int) error {
	if len(labels) < 1 || len(labels) > 3 {
		return fmt.Errorf("variable legend with %d labels, want 1 to 3", len(labels))
	}
	n := len(labels)
	colors = SelectColors(colors, n)
	if len(styles) < n {
		styles = LineStylesFor(n)
	}
	box := &legendBox{at: at, cols: cols}
	for i, label := range labels {
		alpha, width := 1.0, 2.0
		if n == 3 && i == 0 {
			alpha = 0.7
		}
		if i == 2 {
			width = 3
		}
		box.entries = append(box.entries, legendEntry{
			label:  label,
			thumbs: []plot.Thumbnailer{lineThumb(colors[i], alpha, styles[i], width)},
		})
	}
	p.over.add(box)
	return nil
}

// AddModelObsLegend labels a ModelVsObs panel.
func (p *Panel) AddModelObsLegend(at Anchor, colors []string, frame bool) {
	colors = SelectColors(colors, 2)
	p.over.add(&legendBox{at: at, cols: 1, frame: frame, entries: []legendEntry{
		{label: ModelLabel, thumbs: []plot.Thumbnailer{lineThumb(colors[0], 1, "-", 2)}},
		{label: ObsLabel, thumbs: []plot.Thumbnailer{lineThumb(colors[1], 1, "--", 3)}},
	}})
}

// AddOMLegend is the model-versus-obs legend for a single color.
func (p *Panel) AddOMLegend(at Anchor, color string) {
	p.AddModelObsLegend(at, []string{color}, false)
}

// AddBiomeLegend adds circle markers for the three Southern Ocean biomes.
func (p *Panel) AddBiomeLegend(at Anchor, cols int, fm2014 bool) {
	box := &legendBox{at: at, cols: cols, fontSize: vg.Points(10)}
	for _, b := range biomeNames {
		s := &plotter.Scatter{GlyphStyle: draw.GlyphStyle{
			Color:  ParseColor(BiomeColor(b.biome, fm2014)),
			Radius: vg.Points(4),
			Shape:  draw.CircleGlyph{},
		}}
		box.entries = append(box.entries, legendEntry{label: b.name, thumbs: []plot.Thumbnailer{s}})
	}
	p.over.add(box)
}
