package synth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioperiant/bp12-tools/internal/adapter/store/model"
	"github.com/bioperiant/bp12-tools/internal/domain"
)

var testGrid = RegionalGrid{LatMin: -76, LatMax: -40, LonStart: 73, Resolution: 4, Depths: []float64{5, 50}}

func TestGridAxes(t *testing.T) {
	assert.Equal(t, 10, testGrid.NLat())
	assert.Equal(t, 90, testGrid.NLon())

	lons := testGrid.Lons()
	require.Len(t, lons, 91)
	assert.Equal(t, 73.0, lons[0])
	assert.Equal(t, lons[0], lons[90])
	assert.Equal(t, -179.0, lons[27])
}

func TestBiome(t *testing.T) {
	assert.Equal(t, 17.0, Biome(-65))
	assert.Equal(t, 16.0, Biome(-60))
	assert.Equal(t, 16.0, Biome(-50))
	assert.Equal(t, 15.0, Biome(-45))
}

func TestFieldValue(t *testing.T) {
	f := field{base: 1, trend: 1}
	jan := domain.PentadAxis(2000, 2000)[2]
	later := domain.PentadAxis(2004, 2004)[2]
	assert.InDelta(t, 4, f.value(later, 0, -45, 0)-f.value(jan, 0, -45, 0), 0.01)

	ice := field{merid: -0.04, nonneg: true}
	assert.Equal(t, 0.0, ice.value(jan, 0, -40, 0))
}

func TestWriteModelReadBack(t *testing.T) {
	dir := t.TempDir()
	gen := New(testGrid, nil)
	sum, err := gen.WriteModel(dir, "y2003m02")
	require.NoError(t, err)
	assert.Equal(t, 5*8, sum.Files)

	a, err := model.NewLoader(dir).Variable("votemper", "y2003m02", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10, 90}, a.Shape)
	assert.True(t, math.IsNaN(a.At(0, 0, 0)), "land row is missing")
	assert.False(t, math.IsNaN(a.At(0, 5, 0)))

	pp, err := model.NewLoader(dir).Variable("pp", "y2003m02d04", 0)
	require.NoError(t, err)
	assert.Greater(t, pp.At(0, 5, 10), 0.0)
}
