package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid2x4(t *testing.T) *DataArray {
	t.Helper()
	a, err := NewDataArray("v", []string{DimLat, DimLon}, []int{2, 4}, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
	})
	require.NoError(t, err)
	a, err = a.AssignCoord(DimLon, []float64{30, 10, 10, 20})
	require.NoError(t, err)
	return a
}

func TestNewDataArray_ShapeMismatch(t *testing.T) {
	_, err := NewDataArray("v", []string{"a", "b"}, []int{2, 2}, []float64{1, 2, 3})
	assert.Error(t, err)

	_, err = NewDataArray("v", []string{"a", "a"}, []int{1, 1}, []float64{1})
	assert.Error(t, err)
}

func TestSortByAndDropDuplicates(t *testing.T) {
	a := grid2x4(t)

	sorted, err := a.SortBy(DimLon)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10, 20, 30}, sorted.Coords[DimLon])
	assert.Equal(t, []float64{2, 3, 4, 1, 6, 7, 8, 5}, sorted.Values)

	dedup, err := sorted.DropDuplicates(DimLon)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, dedup.Coords[DimLon])
	assert.Equal(t, []int{2, 3}, dedup.Shape)
	assert.Equal(t, []float64{2, 4, 1, 6, 8, 5}, dedup.Values)

	// The receiver is unchanged.
	assert.Equal(t, []float64{30, 10, 10, 20}, a.Coords[DimLon])
}

func TestRename(t *testing.T) {
	a, err := NewDataArray("v", []string{"y", "x"}, []int{1, 2}, []float64{1, 2})
	require.NoError(t, err)
	a, err = a.AssignCoord("x", []float64{0, 1})
	require.NoError(t, err)

	r, err := a.Rename(map[string]string{"y": DimLat, "x": DimLon, "depthu": DimDepth})
	require.NoError(t, err)
	assert.Equal(t, []string{DimLat, DimLon}, r.Dims)
	assert.Equal(t, []float64{0, 1}, r.Coords[DimLon])
	_, stale := r.Coords["x"]
	assert.False(t, stale)
}

func TestIselAndSlice(t *testing.T) {
	a, err := NewDataArray("v", []string{DimTime, DimDepth, DimLat}, []int{2, 3, 2}, []float64{
		0, 1, 2, 3, 4, 5,
		6, 7, 8, 9, 10, 11,
	})
	require.NoError(t, err)

	level, err := a.Isel(DimDepth, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{DimTime, DimLat}, level.Dims)
	assert.Equal(t, []float64{2, 3, 8, 9}, level.Values)

	last, err := a.Isel(DimDepth, -1)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 10, 11}, last.Values)

	s, err := a.Slice(DimDepth, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, s.Shape)

	_, err = a.Isel("nope", 0)
	assert.ErrorIs(t, err, ErrDimNotFound)
}

func TestConcatAlongTime(t *testing.T) {
	t0 := time.Date(2000, 1, 5, 12, 0, 0, 0, time.UTC)
	mk := func(v float64, ts time.Time) *DataArray {
		a, err := NewDataArray("v", []string{DimTime, DimLat}, []int{1, 2}, []float64{v, v + 1})
		require.NoError(t, err)
		a.Times = []time.Time{ts}
		return a
	}
	c, err := Concat(DimTime, mk(1, t0), mk(10, t0.AddDate(0, 0, 5)))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, c.Shape)
	assert.Equal(t, []float64{1, 2, 10, 11}, c.Values)
	require.Len(t, c.Times, 2)
	assert.Equal(t, t0.AddDate(0, 0, 5), c.Times[1])
}

func TestWhereTrailingAndMeanOver(t *testing.T) {
	a, err := NewDataArray("v", []string{DimTime, DimLat, DimLon}, []int{2, 1, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	masked, err := a.WhereTrailing([]int{1, 2}, func(i int) bool { return i == 1 })
	require.NoError(t, err)
	assert.True(t, math.IsNaN(masked.Values[0]))
	assert.Equal(t, 2.0, masked.Values[1])

	m, err := masked.MeanOver(DimLon)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, m.Values)
	assert.Equal(t, []string{DimTime, DimLat}, m.Dims)
}

func TestAdd(t *testing.T) {
	a := grid2x4(t)
	sum, err := a.Add(a)
	require.NoError(t, err)
	assert.Equal(t, 16.0, sum.Values[7])

	b, err := NewDataArray("w", []string{DimLat}, []int{1}, []float64{1})
	require.NoError(t, err)
	_, err = a.Add(b)
	assert.Error(t, err)
}
