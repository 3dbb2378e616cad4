package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Canonical dimension names used after grid normalisation.
const (
	DimTime  = "time"
	DimLat   = "lat"
	DimLon   = "lon"
	DimDepth = "deptht"
)

// ErrDimNotFound is returned when an operation names a dimension the array does not have.
var ErrDimNotFound = errors.New("dimension not found")

// DataArray is an N-dimensional float64 array with named axes.
//
// Values are stored row-major in Dims order. Coords holds an optional 1-D
// coordinate vector per dimension; the time dimension carries its
// coordinate in Times instead. Operations never modify the receiver.
type DataArray struct {
	Name   string
	Dims   []string
	Shape  []int
	Values []float64
	Coords map[string][]float64
	Times  []time.Time
	Attrs  map[string]string
}

// NewDataArray builds an array and checks that the value count matches the shape.
func NewDataArray(name string, dims []string, shape []int, values []float64) (*DataArray, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("array %s: %d dims but %d shape entries", name, len(dims), len(shape))
	}
	seen := make(map[string]bool, len(dims))
	for _, d := range dims {
		if seen[d] {
			return nil, fmt.Errorf("array %s: duplicate dimension %q", name, d)
		}
		seen[d] = true
	}
	if n := product(shape); n != len(values) {
		return nil, fmt.Errorf("array %s: shape %v holds %d values, got %d", name, shape, n, len(values))
	}
	return &DataArray{
		Name:   name,
		Dims:   append([]string(nil), dims...),
		Shape:  append([]int(nil), shape...),
		Values: values,
		Coords: make(map[string][]float64),
		Attrs:  make(map[string]string),
	}, nil
}

// NewSeries builds a 1-D time series.
func NewSeries(name string, times []time.Time, values []float64) (*DataArray, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("series %s: %d times but %d values", name, len(times), len(values))
	}
	a, err := NewDataArray(name, []string{DimTime}, []int{len(values)}, append([]float64(nil), values...))
	if err != nil {
		return nil, err
	}
	a.Times = append([]time.Time(nil), times...)
	return a, nil
}

// Ndim returns the number of dimensions.
func (a *DataArray) Ndim() int { return len(a.Dims) }

// Size returns the total number of values.
func (a *DataArray) Size() int { return len(a.Values) }

// Axis returns the position of dim, or -1.
func (a *DataArray) Axis(dim string) int {
	for i, d := range a.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// HasDim reports whether the array has the named dimension.
func (a *DataArray) HasDim(dim string) bool { return a.Axis(dim) >= 0 }

// Len returns the length of dim, or 0 when absent.
func (a *DataArray) Len(dim string) int {
	if i := a.Axis(dim); i >= 0 {
		return a.Shape[i]
	}
	return 0
}

// Copy returns a deep copy.
func (a *DataArray) Copy() *DataArray {
	out := &DataArray{
		Name:   a.Name,
		Dims:   append([]string(nil), a.Dims...),
		Shape:  append([]int(nil), a.Shape...),
		Values: append([]float64(nil), a.Values...),
		Coords: make(map[string][]float64, len(a.Coords)),
		Attrs:  make(map[string]string, len(a.Attrs)),
	}
	for k, v := range a.Coords {
		out.Coords[k] = append([]float64(nil), v...)
	}
	for k, v := range a.Attrs {
		out.Attrs[k] = v
	}
	if a.Times != nil {
		out.Times = append([]time.Time(nil), a.Times...)
	}
	return out
}

// strides returns row-major strides for the shape.
func (a *DataArray) strides() []int {
	s := make([]int, len(a.Shape))
	step := 1
	for i := len(a.Shape) - 1; i >= 0; i-- {
		s[i] = step
		step *= a.Shape[i]
	}
	return s
}

// At returns the value at the given index tuple.
func (a *DataArray) At(idx ...int) float64 {
	st := a.strides()
	off := 0
	for i, v := range idx {
		off += v * st[i]
	}
	return a.Values[off]
}

// Rename renames dimensions (and their coordinates) using the map.
// Names that are absent from the array are ignored.
func (a *DataArray) Rename(names map[string]string) (*DataArray, error) {
	out := a.Copy()
	for i, d := range out.Dims {
		nd, ok := names[d]
		if !ok || nd == d {
			continue
		}
		if out.HasDim(nd) {
			return nil, fmt.Errorf("rename %s -> %s: %s already exists", d, nd, nd)
		}
		out.Dims[i] = nd
		if c, ok := out.Coords[d]; ok {
			out.Coords[nd] = c
			delete(out.Coords, d)
		}
	}
	return out, nil
}

// AssignCoord attaches a coordinate vector to dim.
func (a *DataArray) AssignCoord(dim string, values []float64) (*DataArray, error) {
	n := a.Len(dim)
	if !a.HasDim(dim) {
		return nil, fmt.Errorf("assign coord %s: %w", dim, ErrDimNotFound)
	}
	if len(values) != n {
		return nil, fmt.Errorf("assign coord %s: got %d values for axis of length %d", dim, len(values), n)
	}
	out := a.Copy()
	out.Coords[dim] = append([]float64(nil), values...)
	return out, nil
}

// AssignTimes attaches timestamps to the time dimension.
func (a *DataArray) AssignTimes(times []time.Time) (*DataArray, error) {
	if !a.HasDim(DimTime) {
		return nil, fmt.Errorf("assign times: %w", ErrDimNotFound)
	}
	if len(times) != a.Len(DimTime) {
		return nil, fmt.Errorf("assign times: got %d times for axis of length %d", len(times), a.Len(DimTime))
	}
	out := a.Copy()
	out.Times = append([]time.Time(nil), times...)
	return out, nil
}

// Take selects the given indices along dim, in order.
func (a *DataArray) Take(dim string, indices []int) (*DataArray, error) {
	ax := a.Axis(dim)
	if ax < 0 {
		return nil, fmt.Errorf("take %s: %w", dim, ErrDimNotFound)
	}
	for _, i := range indices {
		if i < 0 || i >= a.Shape[ax] {
			return nil, fmt.Errorf("take %s: index %d out of range [0, %d)", dim, i, a.Shape[ax])
		}
	}

	outer := product(a.Shape[:ax])
	inner := product(a.Shape[ax+1:])
	n := a.Shape[ax]

	values := make([]float64, 0, outer*len(indices)*inner)
	for o := 0; o < outer; o++ {
		for _, i := range indices {
			base := (o*n + i) * inner
			values = append(values, a.Values[base:base+inner]...)
		}
	}

	out := a.Copy()
	out.Values = values
	out.Shape[ax] = len(indices)
	if c, ok := a.Coords[dim]; ok {
		nc := make([]float64, len(indices))
		for k, i := range indices {
			nc[k] = c[i]
		}
		out.Coords[dim] = nc
	}
	if dim == DimTime && a.Times != nil {
		nt := make([]time.Time, len(indices))
		for k, i := range indices {
			nt[k] = a.Times[i]
		}
		out.Times = nt
	}
	return out, nil
}

// Slice selects the half-open index range [start, end) along dim.
// Bounds are clamped to the axis like Python slicing.
func (a *DataArray) Slice(dim string, start, end int) (*DataArray, error) {
	n := a.Len(dim)
	if !a.HasDim(dim) {
		return nil, fmt.Errorf("slice %s: %w", dim, ErrDimNotFound)
	}
	start, end = clampRange(start, end, n)
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return a.Take(dim, idx)
}

// Isel selects a single index along dim and drops the dimension.
func (a *DataArray) Isel(dim string, index int) (*DataArray, error) {
	n := a.Len(dim)
	if index < 0 {
		index += n
	}
	t, err := a.Take(dim, []int{index})
	if err != nil {
		return nil, err
	}
	return t.squeeze(dim), nil
}

// squeeze drops a length-1 dimension.
func (a *DataArray) squeeze(dim string) *DataArray {
	ax := a.Axis(dim)
	out := a.Copy()
	out.Dims = append(out.Dims[:ax:ax], out.Dims[ax+1:]...)
	out.Shape = append(out.Shape[:ax:ax], out.Shape[ax+1:]...)
	delete(out.Coords, dim)
	if dim == DimTime {
		out.Times = nil
	}
	return out
}

// SortBy sorts the array along dim by its coordinate, ascending and stable.
func (a *DataArray) SortBy(dim string) (*DataArray, error) {
	c, ok := a.Coords[dim]
	if !ok {
		return nil, fmt.Errorf("sort by %s: no coordinate", dim)
	}
	idx := make([]int, len(c))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return c[idx[i]] < c[idx[j]] })
	return a.Take(dim, idx)
}

// DropDuplicates removes repeated coordinate values along dim, keeping the first occurrence.
func (a *DataArray) DropDuplicates(dim string) (*DataArray, error) {
	c, ok := a.Coords[dim]
	if !ok {
		return nil, fmt.Errorf("drop duplicates %s: no coordinate", dim)
	}
	seen := make(map[float64]bool, len(c))
	idx := make([]int, 0, len(c))
	for i, v := range c {
		if seen[v] {
			continue
		}
		seen[v] = true
		idx = append(idx, i)
	}
	return a.Take(dim, idx)
}

// Map applies fn to every value.
func (a *DataArray) Map(fn func(float64) float64) *DataArray {
	out := a.Copy()
	for i, v := range out.Values {
		out.Values[i] = fn(v)
	}
	return out
}

// Scale multiplies every value by k.
func (a *DataArray) Scale(k float64) *DataArray {
	return a.Map(func(v float64) float64 { return v * k })
}

// Add returns the element-wise sum of two arrays of identical shape.
func (a *DataArray) Add(b *DataArray) (*DataArray, error) {
	if !sameShape(a.Shape, b.Shape) {
		return nil, fmt.Errorf("add %s + %s: shapes %v and %v differ", a.Name, b.Name, a.Shape, b.Shape)
	}
	out := a.Copy()
	for i := range out.Values {
		out.Values[i] += b.Values[i]
	}
	return out, nil
}

// WhereTrailing keeps values whose trailing (lat, lon)-style position
// satisfies keep and replaces the rest with NaN. mask is indexed over the
// last len(maskShape) dimensions of the array, broadcasting over the leading ones.
func (a *DataArray) WhereTrailing(maskShape []int, keep func(i int) bool) (*DataArray, error) {
	k := len(maskShape)
	if k > len(a.Shape) || !sameShape(a.Shape[len(a.Shape)-k:], maskShape) {
		return nil, fmt.Errorf("where: mask shape %v does not match trailing shape of %v", maskShape, a.Shape)
	}
	inner := product(maskShape)
	out := a.Copy()
	for i := range out.Values {
		if !keep(i % inner) {
			out.Values[i] = math.NaN()
		}
	}
	return out, nil
}

// Concat joins arrays along an existing dimension. Coordinates and times are concatenated.
func Concat(dim string, arrays ...*DataArray) (*DataArray, error) {
	if len(arrays) == 0 {
		return nil, errors.New("concat: no arrays")
	}
	first := arrays[0]
	ax := first.Axis(dim)
	if ax < 0 {
		return nil, fmt.Errorf("concat %s: %w", dim, ErrDimNotFound)
	}
	outer := product(first.Shape[:ax])
	inner := product(first.Shape[ax+1:])
	total := 0
	for _, a := range arrays {
		if len(a.Dims) != len(first.Dims) {
			return nil, fmt.Errorf("concat %s: dims %v and %v differ", dim, first.Dims, a.Dims)
		}
		for i := range a.Dims {
			if a.Dims[i] != first.Dims[i] || (i != ax && a.Shape[i] != first.Shape[i]) {
				return nil, fmt.Errorf("concat %s: incompatible shapes %v and %v", dim, first.Shape, a.Shape)
			}
		}
		total += a.Shape[ax]
	}

	values := make([]float64, 0, outer*total*inner)
	for o := 0; o < outer; o++ {
		for _, a := range arrays {
			n := a.Shape[ax] * inner
			values = append(values, a.Values[o*n:(o+1)*n]...)
		}
	}

	out := first.Copy()
	out.Values = values
	out.Shape[ax] = total
	if _, ok := first.Coords[dim]; ok {
		var c []float64
		for _, a := range arrays {
			c = append(c, a.Coords[dim]...)
		}
		out.Coords[dim] = c
	}
	if dim == DimTime && first.Times != nil {
		var ts []time.Time
		for _, a := range arrays {
			ts = append(ts, a.Times...)
		}
		out.Times = ts
	}
	return out, nil
}

// Field returns the trailing 2-D (lat, lon) plane at leading index lead as rows.
func (a *DataArray) Field(lead int) ([][]float64, error) {
	if a.Ndim() < 2 {
		return nil, fmt.Errorf("field: array %s has %d dims", a.Name, a.Ndim())
	}
	ny, nx := a.Shape[a.Ndim()-2], a.Shape[a.Ndim()-1]
	plane := ny * nx
	if (lead+1)*plane > len(a.Values) || lead < 0 {
		return nil, fmt.Errorf("field: leading index %d out of range", lead)
	}
	rows := make([][]float64, ny)
	for j := 0; j < ny; j++ {
		off := lead*plane + j*nx
		rows[j] = append([]float64(nil), a.Values[off:off+nx]...)
	}
	return rows, nil
}

// MeanOver averages over dim, skipping NaN, and drops the dimension.
func (a *DataArray) MeanOver(dim string) (*DataArray, error) {
	ax := a.Axis(dim)
	if ax < 0 {
		return nil, fmt.Errorf("mean over %s: %w", dim, ErrDimNotFound)
	}
	outer := product(a.Shape[:ax])
	inner := product(a.Shape[ax+1:])
	n := a.Shape[ax]
	values := make([]float64, outer*inner)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			sum, cnt := 0.0, 0
			for i := 0; i < n; i++ {
				v := a.Values[(o*n+i)*inner+in]
				if math.IsNaN(v) {
					continue
				}
				sum += v
				cnt++
			}
			if cnt == 0 {
				values[o*inner+in] = math.NaN()
			} else {
				values[o*inner+in] = sum / float64(cnt)
			}
		}
	}
	out := a.Copy()
	out.Values = values
	out.Shape[ax] = 1
	return out.squeeze(dim), nil
}

func product(s []int) int {
	p := 1
	for _, v := range s {
		p *= v
	}
	return p
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}
