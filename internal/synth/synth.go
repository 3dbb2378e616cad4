// Package synth writes synthetic BIOPERIANT12 model output and reference
// data in the on-disk layout the loaders expect. Fields are smooth analytic
// functions of position and time so that biome means, trends and maps have
// known structure.
package synth

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bioperiant/bp12-tools/internal/adapter/shapefile"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/model"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/ncio"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/domain"
)

// RegionalGrid defines the geographic bounds and resolution of the model grid.
type RegionalGrid struct {
	LatMin     float64
	LatMax     float64
	LonStart   float64 // Longitude of the first column; columns wrap through 180°.
	Resolution float64 // degrees
	Depths     []float64
}

// SouthernOcean is the default grid: the BIOPERIANT12 domain at 2° resolution.
var SouthernOcean = RegionalGrid{
	LatMin:     -78,
	LatMax:     -30,
	LonStart:   73,
	Resolution: 2,
	Depths:     []float64{5, 25, 100, 500},
}

// LandLat is the latitude south of which the synthetic grid is land.
const LandLat = -72.0

const fill = 1e20

// NLat returns the number of grid rows.
func (g RegionalGrid) NLat() int { return int((g.LatMax-g.LatMin)/g.Resolution) + 1 }

// NLon returns the number of distinct longitudes.
func (g RegionalGrid) NLon() int { return int(math.Round(360 / g.Resolution)) }

// NX returns the number of model columns, one more than NLon because the
// last column repeats the first longitude.
func (g RegionalGrid) NX() int { return g.NLon() + 1 }

// Lats returns the row latitudes.
func (g RegionalGrid) Lats() []float64 {
	lat := make([]float64, g.NLat())
	for j := range lat {
		lat[j] = g.LatMin + float64(j)*g.Resolution
	}
	return lat
}

// Lons returns the column longitudes in model order, wrapped to [-180, 180).
func (g RegionalGrid) Lons() []float64 {
	lon := make([]float64, g.NX())
	for i := range lon {
		lon[i] = wrap180(g.LonStart + float64(i%g.NLon())*g.Resolution)
	}
	return lon
}

func wrap180(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// Biome returns the biome label of a latitude: 17 (ice) south of 60°S,
// 16 (subpolar) to 50°S and 15 (subtropical) north of that.
func Biome(lat float64) float64 {
	switch {
	case lat < -60:
		return 17
	case lat <= -50:
		return 16
	}
	return 15
}

// IsLand reports whether a grid point is land.
func IsLand(lat float64) bool { return lat < LandLat }

// field describes one synthetic variable.
type field struct {
	name     string
	base     float64 // Value at 45°S, 2000-01-01.
	merid    float64 // Change per degree of latitude.
	seasonal float64 // Amplitude of the annual cycle, peaking in January.
	trend    float64 // Change per year.
	decay    float64 // e-folding depth in metres, negative grows with depth; 0 means depth independent.
	surface  bool
	nonneg   bool
}

func (f field) value(t time.Time, depth, lat, lon float64) float64 {
	years := t.Sub(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)).Hours() / (24 * 365.25)
	phase := 2 * math.Pi * float64(t.YearDay()-15) / 365
	v := f.base + f.merid*(lat+45) + f.seasonal*math.Cos(phase) + f.trend*years
	v += 0.05 * math.Abs(f.base) * math.Sin(deg2rad(2*lon))
	if f.decay != 0 {
		v *= math.Exp(-depth / f.decay)
	}
	if f.nonneg && v < 0 {
		return 0
	}
	return v
}

// fields lists the variables written per file category, in model units.
var fields = map[domain.FileCategory][]field{
	domain.CategoryGridT: {
		{name: "votemper", base: 6, merid: 0.5, seasonal: 1.5, trend: 0.03, decay: 2000},
		{name: "vosaline", base: 34.2, merid: 0.02, seasonal: 0.05, trend: -0.002},
		{name: "sossheig", base: -0.5, merid: 0.04, seasonal: 0.05, trend: 0.003, surface: true},
		{name: "somxl010", base: 80, merid: -2, seasonal: -40, trend: 0.5, surface: true},
	},
	domain.CategoryPtrcT: {
		{name: "NCHL", base: 2e-7, seasonal: 1.5e-7, trend: 2e-9, decay: 60},
		{name: "DCHL", base: 1e-7, merid: -2e-9, seasonal: 1e-7, trend: 1e-9, decay: 60},
		{name: "NO3", base: 1.5e-4, merid: -4e-6, seasonal: -2e-5, decay: -5000},
		{name: "DIC", base: 2.1e-3, merid: -5e-6, seasonal: -1e-5, trend: 1e-6},
	},
	domain.CategoryDiadT: {
		{name: "PPPHY", base: 3e-9, seasonal: 2.5e-9, trend: 2e-11, decay: 40},
		{name: "PPPHY2", base: 1.5e-9, merid: -2e-11, seasonal: 1.2e-9, trend: 1e-11, decay: 40},
		{name: "Cflx", base: 2e-8, merid: 1e-9, seasonal: 1e-8, trend: 1e-10, surface: true},
	},
	domain.CategoryIceMod: {
		{name: "ileadfra", base: 0, merid: -0.04, seasonal: -0.3, surface: true, nonneg: true},
		{name: "iicethic", base: 0, merid: -0.05, seasonal: -0.4, surface: true, nonneg: true},
	},
	domain.CategoryFlxT: {
		{name: "sowindsp", base: 9, merid: -0.1, seasonal: -1, trend: 0.02, surface: true},
	},
	domain.CategoryGridU: {{name: "vozocrtx", base: 0.1, merid: -0.005, seasonal: 0.02, decay: 1500}},
	domain.CategoryGridV: {{name: "vomecrty", base: 0.01, seasonal: 0.005, decay: 1500}},
	domain.CategoryGridW: {{name: "vovecrtz", base: 1e-6, seasonal: 5e-7, decay: 1500}},
}

// depthDims names the depth dimension of each category.
var depthDims = map[domain.FileCategory]string{
	domain.CategoryGridU: "depthu",
	domain.CategoryGridV: "depthv",
	domain.CategoryGridW: "depthw",
}

// Generator writes synthetic data sets.
type Generator struct {
	Grid RegionalGrid
	Log  logrus.FieldLogger
}

// New returns a generator for g.
func New(g RegionalGrid, log logrus.FieldLogger) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{Grid: g, Log: log}
}

// Summary counts what a run wrote.
type Summary struct {
	Files  int
	Points int
}

// WriteModel writes every file category for each pentad of the date
// specifications under modelDir.
func (gen *Generator) WriteModel(modelDir string, dates ...string) (Summary, error) {
	var sum Summary
	for _, d := range dates {
		spec, err := domain.DecodeDateSpec(d)
		if err != nil {
			return sum, err
		}
		for _, tag := range spec.Tags() {
			ts, err := domain.TagTime(tag)
			if err != nil {
				return sum, err
			}
			for _, category := range categories() {
				path := model.FilePath(modelDir, spec.Year, tag, category)
				if err := gen.writeModelFile(path, category, ts); err != nil {
					return sum, err
				}
				sum.Files++
			}
			gen.Log.WithField("tag", tag).Debug("wrote synthetic pentad")
		}
	}
	sum.Points = gen.Grid.NLat() * gen.Grid.NX()
	return sum, nil
}

func categories() []domain.FileCategory {
	return []domain.FileCategory{
		domain.CategoryGridT, domain.CategoryPtrcT, domain.CategoryDiadT,
		domain.CategoryIceMod, domain.CategoryFlxT,
		domain.CategoryGridU, domain.CategoryGridV, domain.CategoryGridW,
	}
}

func (gen *Generator) writeModelFile(path string, category domain.FileCategory, ts time.Time) error {
	g := gen.Grid
	lats, lons := g.Lats(), g.Lons()
	ny, nx, nz := len(lats), len(lons), len(g.Depths)
	depthDim, ok := depthDims[category]
	if !ok {
		depthDim = "deptht"
	}

	vars := append(navVars(g), ncio.Var{
		Name: depthDim, Dims: []string{depthDim}, Values: g.Depths, Float32: true,
		Attrs: map[string]string{"units": "m"},
	})
	fv := fill
	for _, f := range fields[category] {
		dims := []string{"time_counter", depthDim, "y", "x"}
		levels := g.Depths
		if f.surface {
			dims = []string{"time_counter", "y", "x"}
			levels = []float64{0}
		}
		values := make([]float64, 0, len(levels)*ny*nx)
		for _, z := range levels {
			for _, lat := range lats {
				for _, lon := range lons {
					if IsLand(lat) {
						values = append(values, math.NaN())
						continue
					}
					values = append(values, f.value(ts, z, lat, lon))
				}
			}
		}
		vars = append(vars, ncio.Var{Name: f.name, Dims: dims, Values: values, Float32: true, Fill: &fv})
	}
	return ncio.Write(path,
		[]ncio.Dim{{Name: "time_counter", Len: 1}, {Name: depthDim, Len: nz}, {Name: "y", Len: ny}, {Name: "x", Len: nx}},
		vars)
}

func navVars(g RegionalGrid) []ncio.Var {
	lats, lons := g.Lats(), g.Lons()
	navLat := make([]float64, 0, len(lats)*len(lons))
	navLon := make([]float64, 0, len(lats)*len(lons))
	for _, lat := range lats {
		for _, lon := range lons {
			navLat = append(navLat, lat)
			navLon = append(navLon, lon)
		}
	}
	return []ncio.Var{
		{Name: "nav_lat", Dims: []string{"y", "x"}, Values: navLat, Float32: true},
		{Name: "nav_lon", Dims: []string{"y", "x"}, Values: navLon, Float32: true},
	}
}

// WriteReference writes the grid, bathymetry, coastline, front, biome and
// shapefile reference data under dataDir.
func (gen *Generator) WriteReference(dataDir string) error {
	steps := []struct {
		name string
		fn   func(string) error
	}{
		{"grid", gen.writeGrid},
		{"bathymetry", gen.writeBathymetry},
		{"coastline", gen.writeCoastline},
		{"fronts", gen.writeFronts},
		{"biome boundaries", gen.writeBiomeBoundaries},
		{"biome mask", gen.writeBiomeMask},
		{"shapefiles", gen.writeShapefiles},
	}
	for _, s := range steps {
		if err := s.fn(dataDir); err != nil {
			return fmt.Errorf("failed to write %s: %w", s.name, err)
		}
		gen.Log.WithField("dataset", s.name).Info("wrote synthetic reference data")
	}
	return nil
}

func (gen *Generator) writeGrid(dataDir string) error {
	g := gen.Grid
	lats, lons := g.Lats(), g.Lons()
	ny, nx, nz := len(lats), len(lons), len(g.Depths)

	tmask := make([]float64, 0, nz*ny*nx)
	for range g.Depths {
		for _, lat := range lats {
			for range lons {
				if IsLand(lat) {
					tmask = append(tmask, 0)
				} else {
					tmask = append(tmask, 1)
				}
			}
		}
	}
	e1t := make([]float64, 0, ny*nx)
	e2t := make([]float64, 0, ny*nx)
	step := deg2rad(g.Resolution) * 6371000
	for _, lat := range lats {
		for range lons {
			e1t = append(e1t, step*math.Cos(deg2rad(lat)))
			e2t = append(e2t, step)
		}
	}

	vars := append(navVars(g),
		ncio.Var{Name: "tmask", Dims: []string{"t", "z", "y", "x"}, Values: tmask},
		ncio.Var{Name: "e1t", Dims: []string{"t", "y", "x"}, Values: e1t},
		ncio.Var{Name: "e2t", Dims: []string{"t", "y", "x"}, Values: e2t},
		ncio.Var{Name: "gdept_0", Dims: []string{"t", "z"}, Values: g.Depths},
	)
	return ncio.Write(filepath.Join(dataDir, reference.GridFile),
		[]ncio.Dim{{Name: "t", Len: 1}, {Name: "z", Len: nz}, {Name: "y", Len: ny}, {Name: "x", Len: nx}},
		vars)
}

// Depth returns the synthetic sea-floor depth, 0 on land.
func Depth(lat, lon float64) float64 {
	if IsLand(lat) {
		return 0
	}
	return 4000 + 500*math.Sin(deg2rad(3*lon)) - 40*(lat+45)
}

func (gen *Generator) writeBathymetry(dataDir string) error {
	g := gen.Grid
	lats, lons := g.Lats(), g.Lons()
	values := make([]float64, 0, len(lats)*len(lons))
	for _, lat := range lats {
		for _, lon := range lons {
			values = append(values, Depth(lat, lon))
		}
	}
	vars := append(navVars(g), ncio.Var{
		Name: "Bathymetry", Dims: []string{"y", "x"}, Values: values,
		Attrs: map[string]string{"units": "m"},
	})
	return ncio.Write(filepath.Join(dataDir, reference.BathymetryFile),
		[]ncio.Dim{{Name: "y", Len: len(lats)}, {Name: "x", Len: len(lons)}}, vars)
}

// sortedLons returns the distinct model longitudes in ascending order.
func (gen *Generator) sortedLons() []float64 {
	lon := gen.Grid.Lons()[:gen.Grid.NLon()]
	sort.Float64s(lon)
	return lon
}

func (gen *Generator) writeCoastline(dataDir string) error {
	lon := gen.sortedLons()
	sa := make([]float64, len(lon))
	aa := make([]float64, len(lon))
	for i, x := range lon {
		// South America and the Antarctic Peninsula.
		if x > -75 && x < -60 {
			sa[i] = 1
			aa[i] = 0.5
		}
		aa[i] += 0.5 * (1 + math.Cos(deg2rad(x)))
		aa[i] = math.Min(aa[i], 1)
	}
	return ncio.Write(filepath.Join(dataDir, reference.CoastlineFile),
		[]ncio.Dim{{Name: "lon", Len: len(lon)}},
		[]ncio.Var{
			{Name: "lon", Dims: []string{"lon"}, Values: lon},
			{Name: "sa_coast", Dims: []string{"lon"}, Values: sa},
			{Name: "aa_coast", Dims: []string{"lon"}, Values: aa},
		})
}

// FrontLat returns the synthetic front latitude for a month (1-12).
func FrontLat(front reference.Front, src reference.Source, month int, lon float64) float64 {
	lat := -52.0
	if front == reference.FrontPF {
		lat = -58
	}
	if src == reference.SourceObs {
		lat += 0.5
	}
	return lat + 3*math.Sin(deg2rad(lon)) + 0.5*math.Cos(2*math.Pi*float64(month-1)/12)
}

func (gen *Generator) writeFronts(dataDir string) error {
	lon := gen.sortedLons()
	for _, src := range []reference.Source{reference.SourceModel, reference.SourceObs} {
		for _, front := range []reference.Front{reference.FrontSAF, reference.FrontPF} {
			rel, err := reference.FrontPath(src, front)
			if err != nil {
				return err
			}
			lat := make([]float64, 0, 12*len(lon))
			for m := 1; m <= 12; m++ {
				for _, x := range lon {
					lat = append(lat, FrontLat(front, src, m, x))
				}
			}
			err = ncio.Write(filepath.Join(dataDir, rel),
				[]ncio.Dim{{Name: "time", Len: 12}, {Name: "lon", Len: len(lon)}},
				[]ncio.Var{
					{Name: "lon", Dims: []string{"lon"}, Values: lon},
					{Name: "lat", Dims: []string{"time", "lon"}, Values: lat},
				})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// BoundaryLat returns the synthetic northern boundary of a biome.
func BoundaryLat(biome int, src reference.Source, lon float64) float64 {
	lat := map[int]float64{15: -40, 16: -50, 17: -60}[biome]
	if src == reference.SourceObs {
		lat -= 1
	}
	return lat + 2*math.Cos(deg2rad(lon))
}

func (gen *Generator) writeBiomeBoundaries(dataDir string) error {
	lon := gen.sortedLons()
	for _, src := range []reference.Source{reference.SourceModel, reference.SourceObs} {
		rel, err := reference.BiomeBoundaryPath(src)
		if err != nil {
			return err
		}
		vars := []ncio.Var{{Name: "lon", Dims: []string{"lon"}, Values: lon}}
		for _, b := range reference.BoundaryBiomes {
			lat := make([]float64, len(lon))
			for i, x := range lon {
				lat[i] = BoundaryLat(b, src, x)
			}
			vars = append(vars, ncio.Var{Name: fmt.Sprintf("b%d_nbdy", b), Dims: []string{"lon"}, Values: lat})
		}
		if err := ncio.Write(filepath.Join(dataDir, rel), []ncio.Dim{{Name: "lon", Len: len(lon)}}, vars); err != nil {
			return err
		}
	}
	return nil
}

func (gen *Generator) writeBiomeMask(dataDir string) error {
	g := gen.Grid
	lats, lons := g.Lats(), g.Lons()
	values := make([]float64, 0, len(lats)*len(lons))
	for _, lat := range lats {
		for range lons {
			if IsLand(lat) {
				values = append(values, math.NaN())
				continue
			}
			values = append(values, Biome(lat))
		}
	}
	fv := fill
	vars := append(navVars(g), ncio.Var{Name: "biome", Dims: []string{"y", "x"}, Values: values, Float32: true, Fill: &fv})
	return ncio.Write(filepath.Join(dataDir, reference.BiomeMaskFile),
		[]ncio.Dim{{Name: "y", Len: len(lats)}, {Name: "x", Len: len(lons)}}, vars)
}

func (gen *Generator) writeShapefiles(dataDir string) error {
	var coast, land shapefile.Line
	for lon := -180.0; lon <= 180; lon += 5 {
		lat := LandLat + 2*math.Sin(deg2rad(2*lon))
		coast = append(coast, shapefile.Point{Lon: lon, Lat: lat})
		land = append(land, shapefile.Point{Lon: lon, Lat: lat})
	}
	land = append(land, shapefile.Point{Lon: 180, Lat: -90}, shapefile.Point{Lon: -180, Lat: -90}, land[0])

	coastPath := filepath.Join(dataDir, filepath.FromSlash(reference.CoastShapefile))
	landPath := filepath.Join(dataDir, filepath.FromSlash(reference.LandShapefile))
	if err := mkdirFor(coastPath); err != nil {
		return err
	}
	if err := shapefile.WritePolylines(coastPath, []shapefile.Line{coast}); err != nil {
		return err
	}
	return shapefile.WritePolygons(landPath, []shapefile.Line{land})
}

func mkdirFor(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // Data directories are shared.
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return nil
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
