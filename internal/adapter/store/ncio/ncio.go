// Package ncio reads NetCDF variables into labelled arrays.
package ncio

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/bioperiant/bp12-tools/internal/domain"
)

// ErrVarNotFound is returned when a file does not hold the requested variable.
var ErrVarNotFound = errors.New("variable not found")

// File is an open NetCDF dataset.
type File struct {
	path string
	nc   netcdf.Dataset
}

// Open opens a NetCDF file read-only.
func Open(path string) (*File, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file %s: %w", path, err)
	}
	return &File{path: path, nc: nc}, nil
}

// Exists reports whether path names a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Close closes the dataset.
func (f *File) Close() error {
	return f.nc.Close()
}

// Has reports whether the file holds a variable.
func (f *File) Has(name string) bool {
	_, err := f.nc.Var(name)
	return err == nil
}

// First returns the first of the candidate variable names present in the file.
func (f *File) First(names ...string) (string, bool) {
	for _, n := range names {
		if f.Has(n) {
			return n, true
		}
	}
	return "", false
}

// Shape returns the dimension names and lengths of a variable.
func (f *File) Shape(name string) ([]string, []int, error) {
	v, err := f.nc.Var(name)
	if err != nil {
		return nil, nil, fmt.Errorf("%s in %s: %w", name, f.path, ErrVarNotFound)
	}
	return varShape(v)
}

func varShape(v netcdf.Var) ([]string, []int, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	names := make([]string, len(dims))
	shape := make([]int, len(dims))
	for i, d := range dims {
		n, err := d.Name()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get dim%d name: %w", i, err)
		}
		l, err := d.Len()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
		names[i] = n
		shape[i] = int(l) //nolint:gosec // Dimension lengths fit in int.
	}
	return names, shape, nil
}

// Read reads a whole variable.
func (f *File) Read(name string) (*domain.DataArray, error) {
	return f.ReadSubset(name, nil, nil)
}

// Read1D reads a one-dimensional variable as a plain slice.
func (f *File) Read1D(name string) ([]float64, error) {
	a, err := f.Read(name)
	if err != nil {
		return nil, err
	}
	if a.Ndim() != 1 {
		return nil, fmt.Errorf("%s: expected 1D variable, got %dD", name, a.Ndim())
	}
	return a.Values, nil
}

// ReadLevel reads a single index along dim and drops that dimension.
// Only the selected hyperslab is read from disk.
func (f *File) ReadLevel(name, dim string, index int) (*domain.DataArray, error) {
	dims, shape, err := f.Shape(name)
	if err != nil {
		return nil, err
	}
	ax := -1
	for i, d := range dims {
		if d == dim {
			ax = i
		}
	}
	if ax < 0 {
		return nil, fmt.Errorf("%s has no dimension %s: %w", name, dim, domain.ErrDimNotFound)
	}
	if index < 0 {
		index += shape[ax]
	}
	if index < 0 || index >= shape[ax] {
		return nil, fmt.Errorf("%s: index %d out of range for %s of length %d", name, index, dim, shape[ax])
	}
	a, err := f.ReadSubset(name, map[string]int{dim: index}, map[string]int{dim: 1})
	if err != nil {
		return nil, err
	}
	return a.Isel(dim, 0)
}

// ReadSubset reads the hyperslab given by per-dimension start offsets and counts.
// Dimensions absent from the maps are read in full.
func (f *File) ReadSubset(name string, start, count map[string]int) (*domain.DataArray, error) {
	v, err := f.nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("%s in %s: %w", name, f.path, ErrVarNotFound)
	}
	dims, shape, err := varShape(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	st := make([]uint64, len(dims))
	ct := make([]uint64, len(dims))
	outShape := make([]int, len(dims))
	full := true
	for i, d := range dims {
		s, c := 0, shape[i]
		if sv, ok := start[d]; ok {
			s = sv
		}
		if cv, ok := count[d]; ok {
			c = cv
		} else {
			c = shape[i] - s
		}
		if s < 0 || c < 0 || s+c > shape[i] {
			return nil, fmt.Errorf("%s: hyperslab [%d, %d) outside %s of length %d", name, s, s+c, d, shape[i])
		}
		if s != 0 || c != shape[i] {
			full = false
		}
		st[i], ct[i] = uint64(s), uint64(c) //nolint:gosec // Checked non-negative above.
		outShape[i] = c
	}

	var values []float64
	if full {
		values, err = readAll(v, product(outShape))
	} else {
		values, err = readSlice(v, st, ct, product(outShape))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	applyPacking(v, values)

	a, err := domain.NewDataArray(name, dims, outShape, values)
	if err != nil {
		return nil, err
	}
	for _, attr := range []string{"units", "long_name"} {
		if s, ok := stringAttr(v, attr); ok {
			a.Attrs[attr] = s
		}
	}
	return a, nil
}

func readAll(v netcdf.Var, total int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, total)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.BYTE:
		tmp := make([]int8, total)
		if err := v.ReadInt8s(tmp); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}

func readSlice(v netcdf.Var, start, count []uint64, total int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, total)
		if err := v.ReadFloat64Slice(data, start, count); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32Slice(tmp, start, count); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32Slice(tmp, start, count); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16Slice(tmp, start, count); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.BYTE:
		tmp := make([]int8, total)
		if err := v.ReadInt8Slice(tmp, start, count); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}

func widen[T float32 | int32 | int16 | int8](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// applyPacking replaces fill values with NaN and then applies
// scale_factor and add_offset when present.
func applyPacking(v netcdf.Var, values []float64) {
	if fv, ok := FillValue(v); ok {
		for i, x := range values {
			if x == fv {
				values[i] = math.NaN()
			}
		}
	}
	scale, hasScale := floatAttr(v, "scale_factor")
	offset, hasOffset := floatAttr(v, "add_offset")
	if !hasScale || scale == 0 {
		scale = 1
	}
	if !hasOffset {
		offset = 0
	}
	if scale == 1 && offset == 0 {
		return
	}
	for i := range values {
		values[i] = values[i]*scale + offset
	}
}

// FillValue returns the _FillValue or missing_value attribute if present as float64.
func FillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		if fv, ok := floatAttr(v, name); ok {
			return fv, true
		}
	}
	return 0, false
}

func floatAttr(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	buf64 := make([]float64, n)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	buf32 := make([]float32, n)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	bufi := make([]int32, n)
	if err := a.ReadInt32s(bufi); err == nil {
		return float64(bufi[0]), true
	}
	return 0, false
}

func stringAttr(v netcdf.Var, name string) (string, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return "", false
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", false
	}
	return string(buf), true
}

func product(s []int) int {
	p := 1
	for _, v := range s {
		p *= v
	}
	return p
}
