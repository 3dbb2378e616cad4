// Package reference provides the static BIOPERIANT12 reference data: model
// grid, bathymetry, fronts, biome boundaries, biome mask and coastline bands.
package reference

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bioperiant/bp12-tools/internal/adapter/grid"
	"github.com/bioperiant/bp12-tools/internal/adapter/interp"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/ncio"
	"github.com/bioperiant/bp12-tools/internal/domain"
)

// Relative paths of the reference files under the data directory.
const (
	GridFile       = "GRID/BIOPERIANT12_grid.nc"
	BathymetryFile = "GRID/BIOPERIANT12_bathymetry.nc"
	CoastlineFile  = "GRID/BIOPERIANT12_coastline.nc"
	BiomeMaskFile  = "BIOMES/BIOPERIANT12_biome_mask.nc"
	CoastShapefile = "cartopy_shapefiles/ne_10m_coastline.shp"
	LandShapefile  = "cartopy_shapefiles/ne_10m_land.shp"
)

const bathymetryVar = "Bathymetry"

// Source selects model or observational climatologies.
type Source string

// Climatology sources.
const (
	SourceModel Source = "mdl"
	SourceObs   Source = "obs"
)

// Front names an oceanic front.
type Front string

// Fronts with monthly climatologies.
const (
	FrontSAF Front = "SAF"
	FrontPF  Front = "PF"
)

// BoundaryBiomes lists the biomes with boundary climatologies.
var BoundaryBiomes = []int{15, 16, 17}

// ErrUnknownSource is returned for a Source other than SourceModel or SourceObs.
var ErrUnknownSource = errors.New("unknown climatology source")

// Line is a latitude-versus-longitude curve such as a front or biome boundary.
type Line struct {
	Lon []float64
	Lat []float64
}

// Coast holds the coastline shading bands along longitude.
type Coast struct {
	Lon []float64
	SA  []float64 // Sub-Antarctic coast indicator, 0..1.
	AA  []float64 // Antarctic coast indicator, 0..1.
}

// LocalStore loads reference data from NetCDF files under a data directory.
type LocalStore struct {
	dataDir string
	log     logrus.FieldLogger

	cache map[string]*domain.DataArray // Cache loaded fields.
	nav   *grid.Nav
	mu    sync.RWMutex // Protect cache and nav.
}

// NewLocalStore creates a store rooted at dataDir.
func NewLocalStore(dataDir string, log logrus.FieldLogger) *LocalStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LocalStore{
		dataDir: dataDir,
		log:     log,
		cache:   make(map[string]*domain.DataArray),
	}
}

// Path returns the absolute path of a reference file.
func (s *LocalStore) Path(rel string) string {
	return filepath.Join(s.dataDir, filepath.FromSlash(rel))
}

// Close releases resources (no-op for local store).
func (s *LocalStore) Close() error {
	return nil
}

func (s *LocalStore) cached(key string) (*domain.DataArray, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.cache[key]
	return a, ok
}

func (s *LocalStore) store(key string, a *domain.DataArray) {
	s.mu.Lock()
	s.cache[key] = a
	s.mu.Unlock()
}

// Nav returns the model navigation coordinates from the grid file.
func (s *LocalStore) Nav() (grid.Nav, error) {
	s.mu.RLock()
	if s.nav != nil {
		nav := *s.nav
		s.mu.RUnlock()
		return nav, nil
	}
	s.mu.RUnlock()

	f, err := ncio.Open(s.Path(GridFile))
	if err != nil {
		return grid.Nav{}, err
	}
	defer func() { _ = f.Close() }()
	nav, err := readNav(f)
	if err != nil {
		return grid.Nav{}, err
	}

	s.mu.Lock()
	s.nav = &nav
	s.mu.Unlock()
	return nav, nil
}

// Grid returns a grid variable. Bathymetry comes from the bathymetry file,
// everything else from the grid file. gdept_0 is returned as the 1-D depth
// profile. Other variables drop the leading t axis; when sorted is set they
// get lat/lon (and deptht) coordinates and a sorted longitude axis.
func (s *LocalStore) Grid(name string, sorted bool) (*domain.DataArray, error) {
	key := fmt.Sprintf("grid/%s/%t", name, sorted)
	if a, ok := s.cached(key); ok {
		return a, nil
	}

	path := s.Path(GridFile)
	if name == bathymetryVar {
		path = s.Path(BathymetryFile)
	}
	f, err := ncio.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	a, err := f.Read(name)
	if err != nil {
		return nil, err
	}
	if name == "gdept_0" {
		if a, err = a.Isel(a.Dims[0], 0); err != nil {
			return nil, err
		}
		s.store(key, a)
		return a, nil
	}
	if a.HasDim("t") {
		if a, err = a.Isel("t", 0); err != nil {
			return nil, err
		}
	}
	if sorted {
		if a, err = s.sortGrid(f, a); err != nil {
			return nil, fmt.Errorf("failed to sort %s: %w", name, err)
		}
	}
	s.store(key, a)
	return a, nil
}

func (s *LocalStore) sortGrid(f *ncio.File, a *domain.DataArray) (*domain.DataArray, error) {
	var err error
	if a.HasDim("z") {
		depth, derr := s.Grid("gdept_0", false)
		if derr != nil {
			return nil, derr
		}
		if a, err = a.AssignCoord("z", depth.Values); err != nil {
			return nil, err
		}
	}
	nav, err := s.navFor(f)
	if err != nil {
		return nil, err
	}
	return grid.Normalize(a, nav, map[string]string{"x": domain.DimLon, "y": domain.DimLat, "z": domain.DimDepth}, true)
}

// navFor prefers navigation stored in f and falls back to the grid file.
func (s *LocalStore) navFor(f *ncio.File) (grid.Nav, error) {
	if f.Has(navLatName) && f.Has(navLonName) {
		return readNav(f)
	}
	return s.Nav()
}

// Weights returns model area weights summing to 1, see grid.ModelWeights.
func (s *LocalStore) Weights(sorted bool) (*domain.DataArray, error) {
	key := fmt.Sprintf("weights/%t", sorted)
	if a, ok := s.cached(key); ok {
		return a, nil
	}
	f, err := ncio.Open(s.Path(GridFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	parts := make([]*domain.DataArray, 3)
	for i, name := range []string{"tmask", "e1t", "e2t"} {
		if parts[i], err = f.Read(name); err != nil {
			return nil, err
		}
	}
	var nav grid.Nav
	if sorted {
		if nav, err = readNav(f); err != nil {
			return nil, err
		}
	}
	w, err := grid.ModelWeights(parts[0], parts[1], parts[2], nav, sorted)
	if err != nil {
		return nil, err
	}
	s.store(key, w)
	return w, nil
}

// BiomeMask returns the biome label field on the sorted model grid.
func (s *LocalStore) BiomeMask() (*domain.DataArray, error) {
	const key = "biome_mask"
	if a, ok := s.cached(key); ok {
		return a, nil
	}
	f, err := ncio.Open(s.Path(BiomeMaskFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	a, err := f.Read("biome")
	if err != nil {
		return nil, err
	}
	if a.HasDim("time_counter") || a.HasDim("t") {
		if a, err = a.Isel(a.Dims[0], 0); err != nil {
			return nil, err
		}
	}
	nav, err := s.navFor(f)
	if err != nil {
		return nil, err
	}
	if a, err = grid.Normalize(a, nav, nil, true); err != nil {
		return nil, err
	}
	s.store(key, a)
	return a, nil
}

// FrontPath returns the monthly climatology file of a front.
func FrontPath(src Source, front Front) (string, error) {
	switch src {
	case SourceModel:
		return fmt.Sprintf("FRONTS/BIOPERIANT12_%s_clim_monthly.nc", front), nil
	case SourceObs:
		return fmt.Sprintf("FRONTS/WOA13_%s_clim_monthly.nc", front), nil
	}
	return "", fmt.Errorf("%q: %w", src, ErrUnknownSource)
}

// FrontLine returns a front position. month > 0 selects that index of the
// monthly climatology; otherwise the annual mean is returned.
func (s *LocalStore) FrontLine(src Source, front Front, month int) (*Line, error) {
	rel, err := FrontPath(src, front)
	if err != nil {
		return nil, err
	}
	f, err := ncio.Open(s.Path(rel))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	lat, err := f.Read("lat")
	if err != nil {
		return nil, err
	}
	lon, err := f.Read1D("lon")
	if err != nil {
		return nil, err
	}
	timeDim := lat.Dims[0]
	if month > 0 {
		lat, err = lat.Isel(timeDim, month)
	} else {
		lat, err = lat.MeanOver(timeDim)
	}
	if err != nil {
		return nil, err
	}
	return &Line{Lon: lon, Lat: lat.Values}, nil
}

// BiomeBoundaryPath returns the biome boundary climatology file.
func BiomeBoundaryPath(src Source) (string, error) {
	switch src {
	case SourceModel:
		return "BIOMES/BIOPERIANT12_biome_bdy_clim.nc", nil
	case SourceObs:
		return "BIOMES/OBS_biome_bdy_clim.nc", nil
	}
	return "", fmt.Errorf("%q: %w", src, ErrUnknownSource)
}

// BiomeBoundary returns the northern boundary of a biome.
func (s *LocalStore) BiomeBoundary(src Source, biome int) (*Line, error) {
	rel, err := BiomeBoundaryPath(src)
	if err != nil {
		return nil, err
	}
	f, err := ncio.Open(s.Path(rel))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	lat, err := f.Read1D(fmt.Sprintf("b%d_nbdy", biome))
	if err != nil {
		return nil, err
	}
	lon, err := f.Read1D("lon")
	if err != nil {
		return nil, err
	}
	return &Line{Lon: lon, Lat: lat}, nil
}

// Coastline returns the coastline shading bands.
func (s *LocalStore) Coastline() (*Coast, error) {
	f, err := ncio.Open(s.Path(CoastlineFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	c := &Coast{}
	if c.Lon, err = f.Read1D("lon"); err != nil {
		return nil, err
	}
	if c.SA, err = f.Read1D("sa_coast"); err != nil {
		return nil, err
	}
	if c.AA, err = f.Read1D("aa_coast"); err != nil {
		return nil, err
	}
	return c, nil
}

// DepthAt returns the positive sea-floor depth at a location.
// Returns nil if the location is outside the grid or on land.
func (s *LocalStore) DepthAt(lat, lon float64) (*float64, error) {
	bathy, err := s.Grid(bathymetryVar, true)
	if err != nil {
		return nil, err
	}
	g, err := interp.FromField(bathy, 0)
	if err != nil {
		return nil, fmt.Errorf("bathymetry grid: %w", err)
	}
	depth, err := g.InterpolateAt(lon, lat)
	if err != nil {
		s.log.WithFields(logrus.Fields{"lat": lat, "lon": lon}).Debug("location outside bathymetry grid")
		return nil, nil
	}
	if math.IsNaN(depth) || depth <= 0 {
		return nil, nil
	}
	return &depth, nil
}

const (
	navLatName = "nav_lat"
	navLonName = "nav_lon"
)

func readNav(f *ncio.File) (grid.Nav, error) {
	navLat, err := f.Read(navLatName)
	if err != nil {
		return grid.Nav{}, fmt.Errorf("failed to read navigation: %w", err)
	}
	navLon, err := f.Read(navLonName)
	if err != nil {
		return grid.Nav{}, fmt.Errorf("failed to read navigation: %w", err)
	}
	return grid.NavFrom(navLat, navLon)
}
