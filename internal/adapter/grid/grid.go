// Package grid normalises model arrays onto sorted latitude/longitude axes
// and computes cell areas and area weights.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bioperiant/bp12-tools/internal/domain"
)

// EarthRadius is the mean Earth radius in metres.
const EarthRadius = 6371000.0

// DefaultRename maps model dimension names to canonical ones.
var DefaultRename = map[string]string{
	"y":            domain.DimLat,
	"x":            domain.DimLon,
	"time_counter": domain.DimTime,
	"depthu":       domain.DimDepth,
	"depthv":       domain.DimDepth,
	"depthw":       domain.DimDepth,
	"z":            domain.DimDepth,
}

// Nav holds the 1-D latitude and longitude vectors of the model grid.
type Nav struct {
	Lat []float64
	Lon []float64
}

// NavFrom extracts 1-D coordinates from 2-D navigation arrays:
// lat from the first column of nav_lat and lon from the first row of nav_lon.
// Leading dimensions (e.g. a length-1 time axis) are indexed at 0.
func NavFrom(navLat, navLon *domain.DataArray) (Nav, error) {
	latRows, err := navLat.Field(0)
	if err != nil {
		return Nav{}, fmt.Errorf("nav_lat: %w", err)
	}
	lonRows, err := navLon.Field(0)
	if err != nil {
		return Nav{}, fmt.Errorf("nav_lon: %w", err)
	}
	if len(lonRows) == 0 {
		return Nav{}, errors.New("nav_lon: empty")
	}
	lat := make([]float64, len(latRows))
	for j, row := range latRows {
		lat[j] = row[0]
	}
	return Nav{Lat: lat, Lon: append([]float64(nil), lonRows[0]...)}, nil
}

// Normalize renames axes, attaches nav coordinates and, when sorted is
// set, orders the longitude axis ascending with duplicate values dropped.
// A nil rename map uses DefaultRename.
func Normalize(a *domain.DataArray, nav Nav, rename map[string]string, sorted bool) (*domain.DataArray, error) {
	if rename == nil {
		rename = DefaultRename
	}
	out, err := a.Rename(rename)
	if err != nil {
		return nil, err
	}
	if out.HasDim(domain.DimLat) && nav.Lat != nil {
		if out, err = out.AssignCoord(domain.DimLat, nav.Lat); err != nil {
			return nil, err
		}
	}
	if out.HasDim(domain.DimLon) && nav.Lon != nil {
		if out, err = out.AssignCoord(domain.DimLon, nav.Lon); err != nil {
			return nil, err
		}
	}
	if !sorted || !out.HasDim(domain.DimLon) {
		return out, nil
	}
	return SortLon(out)
}

// SortLon sorts by longitude and drops repeated longitudes, keeping the first.
func SortLon(a *domain.DataArray) (*domain.DataArray, error) {
	s, err := a.SortBy(domain.DimLon)
	if err != nil {
		return nil, err
	}
	return s.DropDuplicates(domain.DimLon)
}

// bounds returns the lower and upper cell edge for every coordinate, placing
// each edge halfway to the neighbouring coordinate. Edge cells mirror their
// single neighbour.
func bounds(c []float64) (lo, hi []float64) {
	n := len(c)
	lo, hi = make([]float64, n), make([]float64, n)
	for i := range c {
		switch {
		case i > 0:
			lo[i] = (c[i-1] + c[i]) / 2
		default:
			lo[i] = c[0] - (c[1]-c[0])/2
		}
		switch {
		case i < n-1:
			hi[i] = (c[i] + c[i+1]) / 2
		default:
			hi[i] = c[n-1] + (c[n-1]-c[n-2])/2
		}
	}
	return lo, hi
}

// CellArea returns the area in m² of every cell of a regular lat/lon grid,
// indexed [lat][lon].
func CellArea(lon, lat []float64) ([][]float64, error) {
	if len(lon) < 2 || len(lat) < 2 {
		return nil, fmt.Errorf("cell area needs at least 2 points per axis, got %d lon and %d lat", len(lon), len(lat))
	}
	lonLo, lonHi := bounds(lon)
	latLo, latHi := bounds(lat)

	area := make([][]float64, len(lat))
	for j := range lat {
		phi1 := deg2rad(math.Max(-90, math.Min(90, latLo[j])))
		phi2 := deg2rad(math.Max(-90, math.Min(90, latHi[j])))
		dsin := math.Abs(math.Sin(phi2) - math.Sin(phi1))
		area[j] = make([]float64, len(lon))
		for i := range lon {
			dlam := math.Abs(deg2rad(lonHi[i] - lonLo[i]))
			area[j][i] = EarthRadius * EarthRadius * dlam * dsin
		}
	}
	return area, nil
}

// AreaWeight returns cell areas normalised to sum to 1 as a (lat, lon) array.
func AreaWeight(lon, lat []float64) (*domain.DataArray, error) {
	area, err := CellArea(lon, lat)
	if err != nil {
		return nil, err
	}
	flat := make([]float64, 0, len(lat)*len(lon))
	for _, row := range area {
		flat = append(flat, row...)
	}
	w, err := domain.NewDataArray("area_weight", []string{domain.DimLat, domain.DimLon}, []int{len(lat), len(lon)}, flat)
	if err != nil {
		return nil, err
	}
	w.Coords[domain.DimLat] = append([]float64(nil), lat...)
	w.Coords[domain.DimLon] = append([]float64(nil), lon...)
	return normalise(w)
}

// ModelWeights turns the model cell area (tmask·e1t·e2t at the surface) into
// weights summing to 1. When sorted is set the grid is first normalised with
// the nav coordinates so it lines up with sorted model fields.
func ModelWeights(tmask, e1t, e2t *domain.DataArray, nav Nav, sorted bool) (*domain.DataArray, error) {
	planes := make([][][]float64, 3)
	for i, a := range []*domain.DataArray{tmask, e1t, e2t} {
		p, err := a.Field(0)
		if err != nil {
			return nil, fmt.Errorf("model weights: %w", err)
		}
		planes[i] = p
	}
	ny := len(planes[0])
	if ny == 0 {
		return nil, errors.New("model weights: empty grid")
	}
	nx := len(planes[0][0])
	flat := make([]float64, 0, ny*nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			if len(planes[1]) != ny || len(planes[2]) != ny || len(planes[1][j]) != nx || len(planes[2][j]) != nx {
				return nil, errors.New("model weights: tmask, e1t and e2t shapes differ")
			}
			flat = append(flat, planes[0][j][i]*planes[1][j][i]*planes[2][j][i])
		}
	}
	area, err := domain.NewDataArray("area_model", []string{"y", "x"}, []int{ny, nx}, flat)
	if err != nil {
		return nil, err
	}
	if sorted {
		if area, err = Normalize(area, nav, nil, true); err != nil {
			return nil, err
		}
	}
	return normalise(area)
}

func normalise(a *domain.DataArray) (*domain.DataArray, error) {
	valid := make([]float64, 0, len(a.Values))
	for _, v := range a.Values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	total := floats.Sum(valid)
	if total == 0 {
		return nil, errors.New("weights: total area is zero")
	}
	return a.Scale(1 / total), nil
}

// BiomeMean masks a to cells where biome equals label and returns the
// area-weighted, NaN-skipping mean over the trailing (lat, lon) plane.
// Leading axes such as time are preserved.
func BiomeMean(a, biome *domain.DataArray, label float64, weights *domain.DataArray) (*domain.DataArray, error) {
	if a.Ndim() < 2 {
		return nil, fmt.Errorf("biome mean: array %s has %d dims", a.Name, a.Ndim())
	}
	plane := a.Shape[a.Ndim()-2:]
	if biome.Size() != plane[0]*plane[1] || weights.Size() != plane[0]*plane[1] {
		return nil, fmt.Errorf("biome mean: mask %v and weights %v do not match field %v", biome.Shape, weights.Shape, plane)
	}
	masked, err := a.WhereTrailing(plane, func(i int) bool { return biome.Values[i] == label })
	if err != nil {
		return nil, err
	}

	inner := plane[0] * plane[1]
	outer := masked.Size() / inner
	values := make([]float64, outer)
	x, w := make([]float64, 0, inner), make([]float64, 0, inner)
	for o := 0; o < outer; o++ {
		x, w = x[:0], w[:0]
		for i, v := range masked.Values[o*inner : (o+1)*inner] {
			if math.IsNaN(v) || math.IsNaN(weights.Values[i]) {
				continue
			}
			x = append(x, v)
			w = append(w, weights.Values[i])
		}
		if floats.Sum(w) == 0 {
			values[o] = math.NaN()
			continue
		}
		values[o] = stat.Mean(x, w)
	}

	lead := a.Ndim() - 2
	out, err := domain.NewDataArray(a.Name, a.Dims[:lead], a.Shape[:lead], values)
	if err != nil {
		return nil, err
	}
	for _, d := range out.Dims {
		if c, ok := a.Coords[d]; ok {
			out.Coords[d] = append([]float64(nil), c...)
		}
	}
	if a.Times != nil && out.HasDim(domain.DimTime) {
		out.Times = append(out.Times, a.Times...)
	}
	for k, v := range a.Attrs {
		out.Attrs[k] = v
	}
	return out, nil
}

// FindIndex returns the index of the coordinate closest to target, the
// first one on ties.
func FindIndex(coord []float64, target float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, c := range coord {
		if d := math.Abs(c - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
