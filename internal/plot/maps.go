package plot

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/bioperiant/bp12-tools/internal/adapter/shapefile"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/domain"
)

// MapExtentLat is the northern edge of south-polar maps.
const MapExtentLat = -30.0

// ClimatologySource provides the front and biome boundary lines drawn on maps.
type ClimatologySource interface {
	FrontLine(src reference.Source, front reference.Front, month int) (*reference.Line, error)
	BiomeBoundary(src reference.Source, biome int) (*reference.Line, error)
}

// Stereo projects a point onto the south-polar stereographic plane. The
// pole is the origin and longitude 0 points up.
func Stereo(lat, lon float64) (x, y float64) {
	rho := math.Tan((90 + lat) / 2 * math.Pi / 180)
	phi := lon * math.Pi / 180
	return rho * math.Sin(phi), rho * math.Cos(phi)
}

// SouthPolarMap turns the panel into a south-polar stereographic map from
// the pole to MapExtentLat with dashed graticules every 10° of latitude.
func (p *Panel) SouthPolarMap() error {
	r, _ := Stereo(MapExtentLat, 90)
	p.HideAxes()
	p.setX(-r, r)
	p.setY(Limits{Min: -r, Max: r}, nil)
	p.square = true

	grid := draw.LineStyle{Color: WithAlpha(ParseColor("k"), 0.5), Width: vg.Points(0.35), Dashes: ParseLineStyle("--")}
	for lat := -80.0; lat <= -10; lat += 10 {
		circle := make(shapefile.Line, 0, 361)
		for lon := -180.0; lon <= 180; lon++ {
			circle = append(circle, shapefile.Point{Lon: lon, Lat: lat})
		}
		if err := p.addPath(p.over, circle, grid); err != nil {
			return err
		}
	}
	for lon := -180.0; lon < 180; lon += 60 {
		meridian := shapefile.Line{{Lon: lon, Lat: -90}, {Lon: lon, Lat: -10}}
		if err := p.addPath(p.over, meridian, grid); err != nil {
			return err
		}
	}
	p.over.add(outline{draw.LineStyle{Color: ParseColor("darkgrey"), Width: vg.Points(1.5)}})
	return nil
}

// outline frames the data area.
type outline struct{ draw.LineStyle }

func (o outline) Plot(c draw.Canvas, _ *plot.Plot) {
	c.StrokeLines(o.LineStyle, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y}, {X: c.Max.X, Y: c.Min.Y},
		{X: c.Max.X, Y: c.Max.Y}, {X: c.Min.X, Y: c.Max.Y}, {X: c.Min.X, Y: c.Min.Y},
	})
}

// project converts a lon/lat path to map coordinates, split where it
// leaves the southern hemisphere or has gaps.
func project(line shapefile.Line) []plotter.XYs {
	x := make([]float64, len(line))
	y := make([]float64, len(line))
	for i, pt := range line {
		if math.IsNaN(pt.Lat) || math.IsNaN(pt.Lon) || pt.Lat > 0 {
			x[i], y[i] = math.NaN(), math.NaN()
			continue
		}
		x[i], y[i] = Stereo(pt.Lat, pt.Lon)
	}
	return segments(x, y)
}

func (p *Panel) addPath(l *layer, line shapefile.Line, ls draw.LineStyle) error {
	for _, seg := range project(line) {
		if len(seg) < 2 {
			continue
		}
		pl, err := plotter.NewLine(seg)
		if err != nil {
			return err
		}
		pl.LineStyle = ls
		l.add(pl)
	}
	return nil
}

// AddLand fills land polygons white and strokes the coastline in black.
func (p *Panel) AddLand(land, coast []shapefile.Line) error {
	for _, ring := range land {
		for _, seg := range project(ring) {
			if len(seg) < 3 {
				continue
			}
			poly, err := plotter.NewPolygon(seg)
			if err != nil {
				return err
			}
			poly.Color = ParseColor("w")
			poly.LineStyle.Width = 0
			p.Add(poly)
		}
	}
	ls := draw.LineStyle{Color: ParseColor("k"), Width: vg.Points(2)}
	var lines layer
	for _, c := range coast {
		if err := p.addPath(&lines, c, ls); err != nil {
			return err
		}
	}
	p.Add(&lines)
	return nil
}

// LoadLand reads the land and coastline shapefiles of a data directory.
func LoadLand(paths interface{ Path(rel string) string }) (land, coast []shapefile.Line, err error) {
	if land, err = shapefile.Read(paths.Path(reference.LandShapefile)); err != nil {
		return nil, nil, err
	}
	if coast, err = shapefile.Read(paths.Path(reference.CoastShapefile)); err != nil {
		return nil, nil, err
	}
	return land, coast, nil
}

func toPath(l *reference.Line) shapefile.Line {
	out := make(shapefile.Line, len(l.Lon))
	for i := range l.Lon {
		out[i] = shapefile.Point{Lon: l.Lon[i], Lat: l.Lat[i]}
	}
	return out
}

// sourceColor is red for the model and blue for observations.
func sourceColor(src reference.Source) string {
	if src == reference.SourceObs {
		return NamedRGB("b")
	}
	return NamedRGB("r")
}

// AddFronts draws the Subantarctic Front (dashed) and Polar Front (solid)
// of a climatology. month 1-12 selects a month, anything else the mean.
func (p *Panel) AddFronts(src ClimatologySource, dataset reference.Source, month int) error {
	c := ParseColor(sourceColor(dataset))
	for _, f := range []struct {
		front reference.Front
		style string
		alpha float64
	}{{reference.FrontSAF, "--", 0.7}, {reference.FrontPF, "-", 0.9}} {
		line, err := src.FrontLine(dataset, f.front, month)
		if err != nil {
			return err
		}
		ls := draw.LineStyle{Color: WithAlpha(c, f.alpha), Width: vg.Points(1.5), Dashes: ParseLineStyle(f.style)}
		if err := p.addPath(p.over, toPath(line), ls); err != nil {
			return err
		}
	}
	return nil
}

// AddBiomes draws the boundaries of the Southern Ocean biomes.
func (p *Panel) AddBiomes(src ClimatologySource, dataset reference.Source, fm2014 bool) error {
	for _, b := range reference.BoundaryBiomes {
		line, err := src.BiomeBoundary(dataset, b)
		if err != nil {
			return err
		}
		ls := draw.LineStyle{Color: WithAlpha(ParseColor(BiomeColor(b, fm2014)), 0.9), Width: vg.Points(1.5)}
		if err := p.addPath(p.over, toPath(line), ls); err != nil {
			return err
		}
	}
	return nil
}

// cell is one projected grid cell and its fill.
type cell struct {
	pts   plotter.XYs
	color color.Color
}

// raster fills projected grid cells.
type raster []cell

func (r raster) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	for _, cl := range r {
		pts := make([]vg.Point, len(cl.pts))
		for i, xy := range cl.pts {
			pts[i] = vg.Point{X: trX(xy.X), Y: trY(xy.Y)}
		}
		c.FillPolygon(cl.color, c.ClipPolygonXY(pts))
	}
}

// edges returns cell boundaries halfway between centers, mirrored at the ends.
func edges(centers []float64) []float64 {
	n := len(centers)
	out := make([]float64, n+1)
	if n == 1 {
		out[0], out[1] = centers[0]-0.5, centers[0]+0.5
		return out
	}
	for i := 1; i < n; i++ {
		out[i] = (centers[i-1] + centers[i]) / 2
	}
	out[0] = centers[0] - (out[1] - centers[0])
	out[n] = centers[n-1] + (centers[n-1] - out[n-1])
	return out
}

// cells projects every finite value of a (lat, lon) field south of
// MapExtentLat, colored by fill.
func cells(a *domain.DataArray, fill func(v float64) (color.Color, bool)) (raster, error) {
	if a.Ndim() != 2 || a.Dims[0] != domain.DimLat || a.Dims[1] != domain.DimLon {
		return nil, fmt.Errorf("map of %s: want dims [lat lon], got %v", a.Name, a.Dims)
	}
	lats, lons := a.Coords[domain.DimLat], a.Coords[domain.DimLon]
	if len(lats) != a.Shape[0] || len(lons) != a.Shape[1] {
		return nil, fmt.Errorf("map of %s: missing lat/lon coordinates", a.Name)
	}
	latE, lonE := edges(lats), edges(lons)
	var r raster
	for j := range lats {
		lo, hi := math.Max(latE[j], -90), math.Min(latE[j+1], MapExtentLat)
		if lo >= hi {
			continue
		}
		for i := range lons {
			v := a.At(j, i)
			if math.IsNaN(v) {
				continue
			}
			col, ok := fill(v)
			if !ok {
				continue
			}
			pts := make(plotter.XYs, 0, 6)
			for _, ll := range [][2]float64{
				{lo, lonE[i]}, {lo, lons[i]}, {lo, lonE[i+1]},
				{hi, lonE[i+1]}, {hi, lons[i]}, {hi, lonE[i]},
			} {
				x, y := Stereo(ll[0], ll[1])
				pts = append(pts, plotter.XY{X: x, Y: y})
			}
			r = append(r, cell{pts: pts, color: col})
		}
	}
	return r, nil
}

// NewColorMap returns the diverging blue-red map used for fields, spanning lim.
func NewColorMap(lim Limits) (palette.ColorMap, error) {
	if !lim.valid() {
		return nil, fmt.Errorf("color map with empty limits %v", lim)
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(lim.Min)
	cm.SetMax(lim.Max)
	return cm, nil
}

// AddField rasters a (lat, lon) field with a color bar labelled label.
// Values outside lim take the end colors.
func (p *Panel) AddField(a *domain.DataArray, lim Limits, label string) error {
	cm, err := NewColorMap(lim)
	if err != nil {
		return err
	}
	r, err := cells(a, func(v float64) (color.Color, bool) {
		c, err := cm.At(math.Max(lim.Min, math.Min(lim.Max, v)))
		return c, err == nil
	})
	if err != nil {
		return err
	}
	p.Add(r)

	cb := plot.New()
	cb.HideX()
	cb.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	cb.Y.Label.Text = label
	cb.Y.Label.TextStyle.Font.Size = vg.Points(FontSize)
	cb.Y.Tick.Label.Font.Size = vg.Points(FontSize)
	if lim.Tick > 0 {
		cb.Y.Tick.Marker = constantTicks(lim.Ticks())
	}
	p.colorBar = cb
	return nil
}

// MaskColor is the grey of masked cells at full opacity of a mask value of 1.
func MaskColor(v float64) color.Color {
	return WithAlpha(ParseColor("grey"), 0.6*math.Max(0, math.Min(1, v)))
}

// AddMask shades cells of a 0-1 mask field grey, more opaque for larger values.
func (p *Panel) AddMask(a *domain.DataArray) error {
	r, err := cells(a, func(v float64) (color.Color, bool) { return MaskColor(v), v > 0 })
	if err != nil {
		return err
	}
	p.Add(r)
	return nil
}
