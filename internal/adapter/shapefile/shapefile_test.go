package shapefile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolylineRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coast.shp")
	lines := []Line{
		{{Lon: -180, Lat: -70}, {Lon: 0, Lat: -69}, {Lon: 180, Lat: -70}},
		{{Lon: 60, Lat: -50}, {Lon: 70, Lat: -49}},
	}
	require.NoError(t, WritePolylines(path, lines))

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, lines[0], got[0])
	assert.Equal(t, lines[1], got[1])
}

func TestPolygonRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "land.shp")
	ring := Line{{Lon: 0, Lat: -90}, {Lon: 90, Lat: -75}, {Lon: 180, Lat: -90}, {Lon: 0, Lat: -90}}
	require.NoError(t, WritePolygons(path, []Line{ring}))

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0], 4)
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.shp"))
	assert.Error(t, err)
}
