// Package interp samples gridded model fields at observation locations.
package interp

import (
	"fmt"
	"math"
	"sort"

	"github.com/bioperiant/bp12-tools/internal/domain"
)

// GridCell represents a cell in a regular grid with four corner values.
type GridCell struct {
	// Corner coordinates (forming a rectangle).
	X0, X1 float64 // Longitude boundaries.
	Y0, Y1 float64 // Latitude boundaries.

	// Values at the four corners:
	// V00: value at (X0, Y0).
	// V10: value at (X1, Y0).
	// V01: value at (X0, Y1).
	// V11: value at (X1, Y1).
	V00, V10, V01, V11 float64
}

// BilinearInterpolate performs bilinear interpolation within a grid cell
// Formula:
//
//	f(x,y) ≈ (1-t)(1-u)f(x0,y0) + t(1-u)f(x1,y0) + (1-t)u*f(x0,y1) + tu*f(x1,y1)
//
// where:
//
//	t = (x - x0) / (x1 - x0)
//	u = (y - y0) / (y1 - y0)
//
// Land corners (NaN) are left out and the remaining weights renormalised,
// so a point next to the coast still samples the ocean cells around it.
// The result is NaN only when every corner with a non-zero weight is NaN.
func BilinearInterpolate(cell GridCell, x, y float64) (float64, error) {
	if cell.X1 <= cell.X0 {
		return 0, fmt.Errorf("invalid grid cell: X1 must be > X0")
	}
	if cell.Y1 <= cell.Y0 {
		return 0, fmt.Errorf("invalid grid cell: Y1 must be > Y0")
	}

	// Small tolerance for floating point.
	const epsilon = 1e-9
	if x < cell.X0-epsilon || x > cell.X1+epsilon {
		return 0, fmt.Errorf("x coordinate %.6f is outside grid cell [%.6f, %.6f]", x, cell.X0, cell.X1)
	}
	if y < cell.Y0-epsilon || y > cell.Y1+epsilon {
		return 0, fmt.Errorf("y coordinate %.6f is outside grid cell [%.6f, %.6f]", y, cell.Y0, cell.Y1)
	}

	t := math.Max(0, math.Min(1, (x-cell.X0)/(cell.X1-cell.X0)))
	u := math.Max(0, math.Min(1, (y-cell.Y0)/(cell.Y1-cell.Y0)))

	corners := [4]struct{ w, v float64 }{
		{(1 - t) * (1 - u), cell.V00},
		{t * (1 - u), cell.V10},
		{(1 - t) * u, cell.V01},
		{t * u, cell.V11},
	}
	sum, wsum := 0.0, 0.0
	for _, c := range corners {
		if c.w == 0 || math.IsNaN(c.v) {
			continue
		}
		sum += c.w * c.v
		wsum += c.w
	}
	if wsum == 0 {
		return math.NaN(), nil
	}
	return sum / wsum, nil
}

// Grid2D represents a regular lat/lon grid for interpolation.
type Grid2D struct {
	Lon    []float64   // Longitudes, strictly increasing.
	Lat    []float64   // Latitudes, strictly increasing.
	Values [][]float64 // Values[j][i] corresponds to (Lon[i], Lat[j]).
}

// FromField builds a grid from the (lat, lon) plane of a normalised array at
// leading index lead.
func FromField(a *domain.DataArray, lead int) (*Grid2D, error) {
	lat, okLat := a.Coords[domain.DimLat]
	lon, okLon := a.Coords[domain.DimLon]
	if !okLat || !okLon {
		return nil, fmt.Errorf("array %s has no lat/lon coordinates", a.Name)
	}
	rows, err := a.Field(lead)
	if err != nil {
		return nil, err
	}
	g := &Grid2D{Lon: lon, Lat: lat, Values: rows}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	return g, nil
}

// Validate checks if the grid is valid.
func (g *Grid2D) Validate() error {
	if len(g.Lon) < 2 {
		return fmt.Errorf("grid must have at least 2 longitudes")
	}
	if len(g.Lat) < 2 {
		return fmt.Errorf("grid must have at least 2 latitudes")
	}
	if len(g.Values) != len(g.Lat) {
		return fmt.Errorf("number of value rows (%d) must match latitudes (%d)", len(g.Values), len(g.Lat))
	}
	for i, row := range g.Values {
		if len(row) != len(g.Lon) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(g.Lon))
		}
	}
	for i := 1; i < len(g.Lon); i++ {
		if g.Lon[i] <= g.Lon[i-1] {
			return fmt.Errorf("longitudes must be strictly increasing")
		}
	}
	for i := 1; i < len(g.Lat); i++ {
		if g.Lat[i] <= g.Lat[i-1] {
			return fmt.Errorf("latitudes must be strictly increasing")
		}
	}
	return nil
}

// cellIndex returns i such that axis[i] <= v <= axis[i+1], or -1.
func cellIndex(axis []float64, v float64) int {
	n := len(axis)
	if v < axis[0] || v > axis[n-1] {
		return -1
	}
	i := sort.SearchFloat64s(axis, v)
	if i == 0 {
		return 0
	}
	if i >= n {
		return n - 2
	}
	return i - 1
}

// InterpolateAt samples the grid at (lon, lat). The longitude is wrapped
// onto the grid's convention first.
func (g *Grid2D) InterpolateAt(lon, lat float64) (float64, error) {
	if err := g.Validate(); err != nil {
		return 0, fmt.Errorf("invalid grid: %w", err)
	}
	lon = NormalizeLonForAxis(g.Lon, lon)

	i := cellIndex(g.Lon, lon)
	if i < 0 {
		return 0, fmt.Errorf("longitude %.6f is outside grid range [%.6f, %.6f]", lon, g.Lon[0], g.Lon[len(g.Lon)-1])
	}
	j := cellIndex(g.Lat, lat)
	if j < 0 {
		return 0, fmt.Errorf("latitude %.6f is outside grid range [%.6f, %.6f]", lat, g.Lat[0], g.Lat[len(g.Lat)-1])
	}

	cell := GridCell{
		X0:  g.Lon[i],
		X1:  g.Lon[i+1],
		Y0:  g.Lat[j],
		Y1:  g.Lat[j+1],
		V00: g.Values[j][i],
		V10: g.Values[j][i+1],
		V01: g.Values[j+1][i],
		V11: g.Values[j+1][i+1],
	}
	return BilinearInterpolate(cell, lon, lat)
}

// SampleSeries samples every leading slice of a (…, lat, lon) array at one
// location and returns the resulting series. The lat/lon axes are dropped.
func SampleSeries(a *domain.DataArray, lon, lat float64) (*domain.DataArray, error) {
	if a.Ndim() < 2 {
		return nil, fmt.Errorf("sample %s: need at least 2 dims, got %d", a.Name, a.Ndim())
	}
	lead := a.Ndim() - 2
	n := 1
	for _, s := range a.Shape[:lead] {
		n *= s
	}
	values := make([]float64, n)
	for k := 0; k < n; k++ {
		g, err := FromField(a, k)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", a.Name, err)
		}
		v, err := g.InterpolateAt(lon, lat)
		if err != nil {
			return nil, fmt.Errorf("sample %s at (%.4f, %.4f): %w", a.Name, lat, lon, err)
		}
		values[k] = v
	}
	out, err := domain.NewDataArray(a.Name, a.Dims[:lead], a.Shape[:lead], values)
	if err != nil {
		return nil, err
	}
	if a.Times != nil && out.HasDim(domain.DimTime) {
		out.Times = append(out.Times, a.Times...)
	}
	for k, v := range a.Attrs {
		out.Attrs[k] = v
	}
	return out, nil
}

// NormalizeLon360 maps arbitrary degree longitudes into the [0, 360) range.
func NormalizeLon360(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}

// NormalizeLonForAxis wraps lon onto a 0–360° axis or a −180–180° axis,
// whichever the coordinate vector uses.
func NormalizeLonForAxis(lons []float64, lon float64) float64 {
	if len(lons) == 0 {
		return lon
	}
	minVal, maxVal := lons[0], lons[len(lons)-1]
	if minVal > maxVal {
		minVal, maxVal = maxVal, minVal
	}
	if minVal >= 0 && maxVal > 180 {
		return NormalizeLon360(lon)
	}
	if lon > 180 {
		return lon - 360
	}
	return lon
}
