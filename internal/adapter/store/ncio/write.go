package ncio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/fhs/go-netcdf/netcdf"
)

// Dim declares a dimension for Write.
type Dim struct {
	Name string
	Len  int
}

// Var declares a variable for Write. Values are row-major in Dims order.
// NaN values are stored as Fill when Fill is set.
type Var struct {
	Name    string
	Dims    []string
	Values  []float64
	Float32 bool
	Fill    *float64
	Attrs   map[string]string
}

// Write creates (or overwrites) a NetCDF file holding the given variables.
//
//nolint:gocyclo // Define then write phases each walk every variable.
func Write(path string, dims []Dim, vars []Var) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // Data directories are shared.
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create NetCDF file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	ncDims := make(map[string]netcdf.Dim, len(dims))
	lens := make(map[string]int, len(dims))
	for _, d := range dims {
		nd, err := f.AddDim(d.Name, uint64(d.Len)) //nolint:gosec // Dimension lengths are non-negative.
		if err != nil {
			return fmt.Errorf("failed to add dim %s: %w", d.Name, err)
		}
		ncDims[d.Name] = nd
		lens[d.Name] = d.Len
	}

	ncVars := make([]netcdf.Var, len(vars))
	for i, v := range vars {
		vd := make([]netcdf.Dim, len(v.Dims))
		total := 1
		for j, name := range v.Dims {
			d, ok := ncDims[name]
			if !ok {
				return fmt.Errorf("variable %s: undeclared dimension %s", v.Name, name)
			}
			vd[j] = d
			total *= lens[name]
		}
		if total != len(v.Values) {
			return fmt.Errorf("variable %s: %d values for %d cells", v.Name, len(v.Values), total)
		}
		typ := netcdf.DOUBLE
		if v.Float32 {
			typ = netcdf.FLOAT
		}
		nv, err := f.AddVar(v.Name, typ, vd)
		if err != nil {
			return fmt.Errorf("failed to add var %s: %w", v.Name, err)
		}
		for k, s := range v.Attrs {
			if err := nv.Attr(k).WriteBytes([]byte(s)); err != nil {
				return fmt.Errorf("failed to write %s:%s: %w", v.Name, k, err)
			}
		}
		if v.Fill != nil {
			if v.Float32 {
				err = nv.Attr("_FillValue").WriteFloat32s([]float32{float32(*v.Fill)})
			} else {
				err = nv.Attr("_FillValue").WriteFloat64s([]float64{*v.Fill})
			}
			if err != nil {
				return fmt.Errorf("failed to write %s:_FillValue: %w", v.Name, err)
			}
		}
		ncVars[i] = nv
	}

	if err := f.EndDef(); err != nil {
		return fmt.Errorf("enddef: %w", err)
	}

	for i, v := range vars {
		values := v.Values
		if v.Fill != nil {
			values = make([]float64, len(v.Values))
			for k, x := range v.Values {
				if math.IsNaN(x) {
					x = *v.Fill
				}
				values[k] = x
			}
		}
		if v.Float32 {
			tmp := make([]float32, len(values))
			for k, x := range values {
				tmp[k] = float32(x)
			}
			err = ncVars[i].WriteFloat32s(tmp)
		} else {
			err = ncVars[i].WriteFloat64s(values)
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", v.Name, err)
		}
	}
	return nil
}
