package plot

import (
	"fmt"

	"gonum.org/v1/plot/plotter"

	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/analysis"
)

var coastColor = WithAlpha(ParseColor("grey"), 0.1)

// AddCoast shades where a longitude section meets land: Sub-Antarctic
// coasts as a band hanging from the top of the panel and Antarctic coasts
// as a band rising from the bottom. The y range is rounded outward to whole
// numbers and fixed.
func (p *Panel) AddCoast(coast *reference.Coast) error {
	if len(coast.Lon) == 0 || len(coast.SA) != len(coast.Lon) || len(coast.AA) != len(coast.Lon) {
		return fmt.Errorf("coast bands: %d lons, %d sa, %d aa", len(coast.Lon), len(coast.SA), len(coast.AA))
	}
	lo, hi := p.yLimits()
	ymin, ymax := analysis.PFloor(lo, 0), analysis.PCeil(hi, 0)
	p.setY(Limits{Min: ymin, Max: ymax}, nil)

	sa, aa := CoastBands(coast, ymin, ymax)
	n := len(coast.Lon)
	upper := make(plotter.XYs, 0, 2*n)
	lower := make(plotter.XYs, 0, 2*n)
	for i, lon := range coast.Lon {
		upper = append(upper, plotter.XY{X: lon, Y: sa[i]})
		lower = append(lower, plotter.XY{X: lon, Y: aa[i]})
	}
	for i := n - 1; i >= 0; i-- {
		upper = append(upper, plotter.XY{X: coast.Lon[i], Y: ymax})
		lower = append(lower, plotter.XY{X: coast.Lon[i], Y: ymin})
	}
	for _, band := range []plotter.XYs{upper, lower} {
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return err
		}
		poly.Color = coastColor
		poly.LineStyle.Width = 0
		p.under.add(poly)
	}
	return nil
}

// CoastBands returns the top of the Sub-Antarctic band and the top of the
// Antarctic band at each longitude for a panel spanning [ymin, ymax].
func CoastBands(coast *reference.Coast, ymin, ymax float64) (sa, aa []float64) {
	yrange := ymax - ymin
	sa = make([]float64, len(coast.Lon))
	aa = make([]float64, len(coast.Lon))
	for i := range coast.Lon {
		sa[i] = ymin + yrange/2 + coast.SA[i]*yrange/2
		aa[i] = ymin + coast.AA[i]*yrange/4
	}
	return sa, aa
}
