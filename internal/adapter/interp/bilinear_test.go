package interp

import (
	"math"
	"testing"
	"time"

	"github.com/bioperiant/bp12-tools/internal/domain"
)

// TestBilinearInterpolate_CenterPoint tests interpolation at the center of a grid cell
func TestBilinearInterpolate_CenterPoint(t *testing.T) {
	cell := GridCell{
		X0: 0.0, X1: 2.0,
		Y0: 0.0, Y1: 2.0,
		V00: 1.0, V10: 3.0,
		V01: 5.0, V11: 7.0,
	}

	// At center all four weights are 0.25: 0.25 * (1 + 3 + 5 + 7) = 4.0
	result, err := BilinearInterpolate(cell, 1.0, 1.0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(result-4.0) > 1e-9 {
		t.Errorf("Center point: expected 4.0, got %.10f", result)
	}
}

// TestBilinearInterpolate_LandCorner checks that NaN corners are skipped
func TestBilinearInterpolate_LandCorner(t *testing.T) {
	cell := GridCell{
		X0: 0.0, X1: 2.0,
		Y0: 0.0, Y1: 2.0,
		V00: 1.0, V10: 3.0,
		V01: 5.0, V11: math.NaN(),
	}

	result, err := BilinearInterpolate(cell, 1.0, 1.0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(result-3.0) > 1e-9 {
		t.Errorf("expected mean of ocean corners 3.0, got %.10f", result)
	}

	// On the land corner itself nothing else carries weight.
	result, err = BilinearInterpolate(cell, 2.0, 2.0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !math.IsNaN(result) {
		t.Errorf("expected NaN on land corner, got %v", result)
	}
}

// TestBilinearInterpolate_OutOfBounds tests error handling for out-of-bounds points
func TestBilinearInterpolate_OutOfBounds(t *testing.T) {
	cell := GridCell{
		X0: 0.0, X1: 10.0,
		Y0: 0.0, Y1: 10.0,
		V00: 1.0, V10: 2.0,
		V01: 3.0, V11: 4.0,
	}

	tests := []struct {
		x, y float64
		name string
	}{
		{-1.0, 5.0, "x too small"},
		{11.0, 5.0, "x too large"},
		{5.0, -1.0, "y too small"},
		{5.0, 11.0, "y too large"},
	}

	for _, tt := range tests {
		if _, err := BilinearInterpolate(cell, tt.x, tt.y); err == nil {
			t.Errorf("%s: expected error for point (%.1f, %.1f), got nil", tt.name, tt.x, tt.y)
		}
	}
}

func southernGrid() *Grid2D {
	return &Grid2D{
		Lon: []float64{-10.0, 0.0, 10.0},
		Lat: []float64{-60.0, -50.0, -40.0},
		Values: [][]float64{
			{1.0, 2.0, 3.0}, // -60
			{4.0, 5.0, 6.0}, // -50
			{7.0, 8.0, 9.0}, // -40
		},
	}
}

// TestGrid2D_InterpolateAt tests 2D grid interpolation
func TestGrid2D_InterpolateAt(t *testing.T) {
	grid := southernGrid()

	tests := []struct {
		lon, lat float64
		expected float64
	}{
		{-10.0, -60.0, 1.0},
		{0.0, -60.0, 2.0},
		{10.0, -60.0, 3.0},
		{0.0, -50.0, 5.0},
		{10.0, -40.0, 9.0},
		{-5.0, -55.0, 3.0},
		{355.0, -55.0, 3.0}, // wrapped onto the -180..180 axis
	}

	for _, tt := range tests {
		result, err := grid.InterpolateAt(tt.lon, tt.lat)
		if err != nil {
			t.Fatalf("Unexpected error at (%.1f, %.1f): %v", tt.lon, tt.lat, err)
		}
		if math.Abs(result-tt.expected) > 1e-9 {
			t.Errorf("At (%.1f, %.1f): expected %.10f, got %.10f", tt.lon, tt.lat, tt.expected, result)
		}
	}

	if _, err := grid.InterpolateAt(0, -70); err == nil {
		t.Errorf("expected error south of the grid")
	}
}

// TestGrid2D_Validate tests grid validation
func TestGrid2D_Validate(t *testing.T) {
	tests := []struct {
		name    string
		grid    *Grid2D
		wantErr bool
	}{
		{
			name: "valid grid",
			grid: &Grid2D{
				Lon:    []float64{0.0, 1.0, 2.0},
				Lat:    []float64{0.0, 1.0},
				Values: [][]float64{{1, 2, 3}, {4, 5, 6}},
			},
		},
		{
			name: "too few longitudes",
			grid: &Grid2D{
				Lon:    []float64{0.0},
				Lat:    []float64{0.0, 1.0},
				Values: [][]float64{{1}, {2}},
			},
			wantErr: true,
		},
		{
			name: "mismatched row count",
			grid: &Grid2D{
				Lon:    []float64{0.0, 1.0},
				Lat:    []float64{0.0, 1.0},
				Values: [][]float64{{1, 2}},
			},
			wantErr: true,
		},
		{
			name: "non-increasing longitude",
			grid: &Grid2D{
				Lon:    []float64{0.0, 2.0, 1.0},
				Lat:    []float64{0.0, 1.0},
				Values: [][]float64{{1, 2, 3}, {4, 5, 6}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.grid.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSampleSeries(t *testing.T) {
	a, err := domain.NewDataArray("votemper", []string{domain.DimTime, domain.DimLat, domain.DimLon}, []int{2, 2, 2},
		[]float64{0, 2, 0, 2, 10, 10, 20, 20})
	if err != nil {
		t.Fatal(err)
	}
	a.Coords[domain.DimLat] = []float64{-60, -50}
	a.Coords[domain.DimLon] = []float64{0, 10}
	a.Times = []time.Time{
		time.Date(2001, 1, 5, 12, 0, 0, 0, time.UTC),
		time.Date(2001, 1, 10, 12, 0, 0, 0, time.UTC),
	}

	s, err := SampleSeries(a, 5, -55)
	if err != nil {
		t.Fatalf("SampleSeries: %v", err)
	}
	if len(s.Values) != 2 || len(s.Times) != 2 {
		t.Fatalf("expected 2 samples with times, got %v / %v", s.Values, s.Times)
	}
	if math.Abs(s.Values[0]-1) > 1e-9 || math.Abs(s.Values[1]-15) > 1e-9 {
		t.Errorf("unexpected samples %v", s.Values)
	}
}

func TestNormalizeLonForAxis(t *testing.T) {
	if got := NormalizeLonForAxis([]float64{0, 359}, -10); got != 350 {
		t.Errorf("expected 350, got %v", got)
	}
	if got := NormalizeLonForAxis([]float64{-180, 179}, 350); got != -10 {
		t.Errorf("expected -10, got %v", got)
	}
}
