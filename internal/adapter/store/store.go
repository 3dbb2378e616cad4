// Package store declares the data sources used by the use cases.
package store

import (
	"time"

	"github.com/bioperiant/bp12-tools/internal/adapter/grid"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/domain"
)

// VariableLoader is the interface for loading model output.
type VariableLoader interface {
	// Filenames lists the existing files of a category for a date specification.
	Filenames(category domain.FileCategory, dates string) ([]string, []time.Time, error)

	// Variable loads a variable on the sorted grid; zlev < 0 keeps every level.
	Variable(name, dates string, zlev int) (*domain.DataArray, error)
}

// ReferenceStore is the interface for the static grid and climatology data.
type ReferenceStore interface {
	Grid(name string, sorted bool) (*domain.DataArray, error)
	Nav() (grid.Nav, error)
	Weights(sorted bool) (*domain.DataArray, error)
	BiomeMask() (*domain.DataArray, error)
	FrontLine(src reference.Source, front reference.Front, month int) (*reference.Line, error)
	BiomeBoundary(src reference.Source, biome int) (*reference.Line, error)
	Coastline() (*reference.Coast, error)
	DepthAt(lat, lon float64) (*float64, error)
	Path(rel string) string
}

// SeriesLoader is the interface for observational time series.
type SeriesLoader interface {
	Load(name string) (*domain.DataArray, error)
	List() ([]string, error)
}
