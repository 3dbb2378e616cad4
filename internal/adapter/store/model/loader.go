// Package model loads BIOPERIANT12 5-day model output from the cluster filesystem.
package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bioperiant/bp12-tools/internal/adapter/grid"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/ncio"
	"github.com/bioperiant/bp12-tools/internal/domain"
)

// DefaultModelDir is the run directory on the cluster.
const DefaultModelDir = "/mnt/nrestore/users/ERTH0834/BIOPERIANT12/BIOPERIANT12-CNCLNG01-S"

const (
	runName    = "BIOPERIANT12-CNCLNG01"
	navLatName = "nav_lat"
	navLonName = "nav_lon"
)

// ErrNoFiles is returned when none of the requested model files exist.
var ErrNoFiles = errors.New("no model files found")

// FileObserver is notified about every model file looked up.
type FileObserver interface {
	ObserveFile(category string, found bool)
}

// Loader reads model variables for date specifications.
type Loader struct {
	modelDir string
	log      logrus.FieldLogger
	observer FileObserver

	nav *grid.Nav  // Navigation coordinates, identical for every output file.
	mu  sync.Mutex // Protect nav.
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(ld *Loader) { ld.log = l }
}

// WithObserver sets the file lookup observer.
func WithObserver(o FileObserver) Option {
	return func(ld *Loader) { ld.observer = o }
}

// NewLoader creates a loader rooted at modelDir. An empty modelDir uses DefaultModelDir.
func NewLoader(modelDir string, opts ...Option) *Loader {
	if modelDir == "" {
		modelDir = DefaultModelDir
	}
	ld := &Loader{
		modelDir: modelDir,
		log:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(ld)
	}
	return ld
}

// ModelDir returns the run directory.
func (ld *Loader) ModelDir() string { return ld.modelDir }

// FilePath returns the path of one model output file.
func FilePath(modelDir string, year int, tag string, category domain.FileCategory) string {
	return filepath.Join(modelDir, fmt.Sprint(year), fmt.Sprintf("%s_%s_%s.nc", runName, tag, category))
}

// Filenames returns the existing files of a category for a date
// specification together with their 12:00 timestamps. Missing files are
// skipped.
func (ld *Loader) Filenames(category domain.FileCategory, dates string) ([]string, []time.Time, error) {
	spec, err := domain.DecodeDateSpec(dates)
	if err != nil {
		return nil, nil, err
	}
	var (
		files []string
		times []time.Time
	)
	for _, tag := range spec.Tags() {
		path := FilePath(ld.modelDir, spec.Year, tag, category)
		found := ncio.Exists(path)
		if ld.observer != nil {
			ld.observer.ObserveFile(string(category), found)
		}
		if !found {
			ld.log.WithField("path", path).Debug("model file missing, skipped")
			continue
		}
		ts, err := domain.TagTime(tag)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, path)
		times = append(times, ts)
	}
	return files, times, nil
}

// Variable loads a variable over a date specification on the sorted grid,
// with canonical (time, [deptht,] lat, lon) axes and 12:00 timestamps.
//
// zlev >= 0 selects one depth level; zlev < 0 keeps the water column.
// Surface-only variables ignore zlev. Derived variables (pp, chl) are the
// sum of their components. An unknown variable returns (nil, nil).
func (ld *Loader) Variable(name, dates string, zlev int) (*domain.DataArray, error) {
	category, ok := domain.CategoryOf(name)
	if !ok {
		ld.log.WithField("variable", name).Debug("variable not in any model file category")
		return nil, nil
	}
	files, times, err := ld.Filenames(category, dates)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s %s for %s: %w", name, category, dates, ErrNoFiles)
	}

	components := []string{name}
	if parts, ok := domain.DerivedComponents(name); ok {
		components = parts
	}

	slices := make([]*domain.DataArray, 0, len(files))
	for _, path := range files {
		a, err := ld.readFile(path, components, zlev)
		if err != nil {
			return nil, err
		}
		slices = append(slices, a)
	}

	timeDim := slices[0].Dims[0]
	joined, err := domain.Concat(timeDim, slices...)
	if err != nil {
		return nil, fmt.Errorf("failed to join %s over %d files: %w", name, len(files), err)
	}
	if n := joined.Len(timeDim); n != len(times) {
		return nil, fmt.Errorf("%s: %d time steps in files but %d dates", name, n, len(times))
	}
	joined.Name = name

	nav, err := ld.navFrom(files[0])
	if err != nil {
		return nil, err
	}
	out, err := grid.Normalize(joined, nav, nil, true)
	if err != nil {
		return nil, fmt.Errorf("failed to normalise %s: %w", name, err)
	}
	out, err = out.AssignTimes(times)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	ld.log.WithFields(logrus.Fields{
		"variable": name,
		"dates":    dates,
		"files":    len(files),
		"shape":    out.Shape,
	}).Debug("loaded model variable")
	return out, nil
}

// VariableSubset loads a variable and keeps the index window
// lat [j1, j2) and lon [i1, i2) of the sorted grid.
func (ld *Loader) VariableSubset(name, dates string, zlev, j1, j2, i1, i2 int) (*domain.DataArray, error) {
	a, err := ld.Variable(name, dates, zlev)
	if err != nil || a == nil {
		return a, err
	}
	if a, err = a.Slice(domain.DimLat, j1, j2); err != nil {
		return nil, err
	}
	return a.Slice(domain.DimLon, i1, i2)
}

// Input reads one variable from an arbitrary model-grid file. When sorted
// is set, z becomes deptht and x/y become lon/lat with the file's nav
// coordinates, sorted by longitude.
func (ld *Loader) Input(name, path string, sorted bool) (*domain.DataArray, error) {
	f, err := ncio.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	a, err := f.Read(name)
	if err != nil {
		return nil, err
	}
	if !sorted {
		return a, nil
	}
	var nav grid.Nav
	if a.HasDim("x") {
		if nav, err = readNav(f); err != nil {
			return nil, err
		}
	}
	return grid.Normalize(a, nav, map[string]string{"z": domain.DimDepth, "x": domain.DimLon, "y": domain.DimLat}, true)
}

// readFile reads and sums the components of one variable from one file.
func (ld *Loader) readFile(path string, components []string, zlev int) (*domain.DataArray, error) {
	f, err := ncio.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var sum *domain.DataArray
	for _, c := range components {
		a, err := readComponent(f, c, zlev)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if sum == nil {
			sum = a
			continue
		}
		if sum, err = sum.Add(a); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return sum, nil
}

func readComponent(f *ncio.File, name string, zlev int) (*domain.DataArray, error) {
	dims, _, err := f.Shape(name)
	if err != nil {
		return nil, err
	}
	if zlev >= 0 && len(dims) > 3 {
		for _, d := range dims {
			if isDepthDim(d) {
				return f.ReadLevel(name, d, zlev)
			}
		}
	}
	a, err := f.Read(name)
	if err != nil {
		return nil, err
	}
	for _, d := range a.Dims {
		if !isDepthDim(d) {
			continue
		}
		if depth, err := f.Read1D(d); err == nil {
			return a.AssignCoord(d, depth)
		}
	}
	return a, nil
}

func isDepthDim(d string) bool {
	switch d {
	case "deptht", "depthu", "depthv", "depthw", "z":
		return true
	}
	return false
}

// navFrom returns the cached navigation coordinates, reading them from path
// the first time.
func (ld *Loader) navFrom(path string) (grid.Nav, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if ld.nav != nil {
		return *ld.nav, nil
	}
	f, err := ncio.Open(path)
	if err != nil {
		return grid.Nav{}, err
	}
	defer func() { _ = f.Close() }()

	nav, err := readNav(f)
	if err != nil {
		return grid.Nav{}, err
	}
	ld.nav = &nav
	return nav, nil
}

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
