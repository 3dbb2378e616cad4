package usecase

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bioperiant/bp12-tools/internal/adapter/grid"
	"github.com/bioperiant/bp12-tools/internal/adapter/interp"
	"github.com/bioperiant/bp12-tools/internal/adapter/store"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/model"
	"github.com/bioperiant/bp12-tools/internal/analysis"
	"github.com/bioperiant/bp12-tools/internal/domain"
	"github.com/bioperiant/bp12-tools/internal/plot"
)

// ErrInvalidRequest marks request validation failures.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound is returned when a requested variable or series does not exist.
var ErrNotFound = errors.New("not found")

var errNoFiles = model.ErrNoFiles

const maxDateSpecs = 40

// SeriesRequest selects a model time series.
type SeriesRequest struct {
	Variable string
	Dates    []string // Date specifications, joined in order.
	ZLev     int      // Depth level; negative selects the surface.

	// Region: a biome mean (mutually exclusive with Lat/Lon), a point
	// sample, or the whole ocean when both are unset.
	Biome    *int
	Lat, Lon *float64

	Test string // Mann-Kendall variant; empty skips the test.
	Obs  string // Observation series to return alongside the model.
}

// SeriesResponse is a model time series in display units.
type SeriesResponse struct {
	Variable string            `json:"variable"`
	LongName string            `json:"long_name"`
	Unit     string            `json:"unit"`
	Region   string            `json:"region"`
	Points   []SeriesPoint     `json:"points"`
	Obs      []SeriesPoint     `json:"obs,omitempty"`
	Trend    *TrendResponse    `json:"trend,omitempty"`
	Meta     map[string]string `json:"meta"`
}

// SeriesPoint is one dated value; Value is null when missing.
type SeriesPoint struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"`
}

// SeriesUseCase builds time series from model output.
type SeriesUseCase struct {
	loader store.VariableLoader
	ref    store.ReferenceStore
	obs    store.SeriesLoader
	log    logrus.FieldLogger
}

// NewSeriesUseCase creates the use case. obs may be nil.
func NewSeriesUseCase(loader store.VariableLoader, ref store.ReferenceStore, obs store.SeriesLoader, log logrus.FieldLogger) *SeriesUseCase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SeriesUseCase{loader: loader, ref: ref, obs: obs, log: log}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Validate checks if the request is valid.
func (r *SeriesRequest) Validate() error {
	if r.Variable == "" {
		return invalid("variable must be provided")
	}
	if len(r.Dates) == 0 {
		return invalid("at least one date specification must be provided")
	}
	if len(r.Dates) > maxDateSpecs {
		return invalid("at most %d date specifications per request", maxDateSpecs)
	}
	for _, d := range r.Dates {
		if _, err := domain.DecodeDateSpec(d); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	if (r.Lat == nil) != (r.Lon == nil) {
		return invalid("lat and lon must be given together")
	}
	if r.Lat != nil {
		if r.Biome != nil {
			return invalid("biome and lat/lon are mutually exclusive")
		}
		if *r.Lat < -90 || *r.Lat > 90 {
			return invalid("latitude must be between -90 and 90")
		}
		if *r.Lon < -180 || *r.Lon > 360 {
			return invalid("longitude must be between -180 and 360")
		}
	}
	if r.Biome != nil && *r.Biome <= 0 {
		return invalid("biome must be a positive mask label")
	}
	if _, err := analysis.ParseTest(r.Test); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// Region names the reduction a request applies.
func (r *SeriesRequest) Region() string {
	switch {
	case r.Biome != nil:
		return fmt.Sprintf("biome %d", *r.Biome)
	case r.Lat != nil:
		return fmt.Sprintf("point (%.4f, %.4f)", *r.Lat, *r.Lon)
	}
	return "ocean"
}

// LoadVariable loads a variable over several date specifications and joins
// them along time. Years without files are skipped; ErrNotFound is
// returned for unknown variables.
func (uc *SeriesUseCase) LoadVariable(name string, dates []string, zlev int) (*domain.DataArray, error) {
	var parts []*domain.DataArray
	for _, d := range dates {
		a, err := uc.loader.Variable(name, d, zlev)
		if err != nil {
			if errors.Is(err, errNoFiles) {
				uc.log.WithFields(logrus.Fields{"variable": name, "dates": d}).Debug("no model files for date specification")
				continue
			}
			return nil, err
		}
		if a == nil {
			return nil, fmt.Errorf("variable %q: %w", name, ErrNotFound)
		}
		parts = append(parts, a)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%s for %v: %w", name, dates, errNoFiles)
	}
	return domain.Concat(domain.DimTime, parts...)
}

// Series reduces a variable to a time series in display units.
func (uc *SeriesUseCase) Series(req SeriesRequest) (*domain.DataArray, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	zlev := req.ZLev
	if zlev < 0 {
		zlev = 0
	}
	a, err := uc.LoadVariable(req.Variable, req.Dates, zlev)
	if err != nil {
		return nil, err
	}

	var s *domain.DataArray
	switch {
	case req.Lat != nil:
		s, err = interp.SampleSeries(a, *req.Lon, *req.Lat)
	default:
		s, err = uc.areaMean(a, req.Biome)
	}
	if err != nil {
		return nil, err
	}
	return s.Scale(domain.VariableCoefficient(req.Variable, domain.FieldMCoef)), nil
}

// areaMean is the area-weighted mean over one biome or, with biome nil,
// over every ocean cell.
func (uc *SeriesUseCase) areaMean(a *domain.DataArray, biome *int) (*domain.DataArray, error) {
	weights, err := uc.ref.Weights(true)
	if err != nil {
		return nil, err
	}
	if biome == nil {
		ones := weights.Map(func(float64) float64 { return 1 })
		return grid.BiomeMean(a, ones, 1, weights)
	}
	mask, err := uc.ref.BiomeMask()
	if err != nil {
		return nil, err
	}
	if !hasLabel(mask, float64(*biome)) {
		return nil, invalid("biome %d does not occur in the biome mask", *biome)
	}
	return grid.BiomeMean(a, mask, float64(*biome), weights)
}

func hasLabel(mask *domain.DataArray, label float64) bool {
	for _, v := range mask.Values {
		if v == label {
			return true
		}
	}
	return false
}

// Execute builds the series response, with the trend test and observation
// series when requested.
func (uc *SeriesUseCase) Execute(req SeriesRequest) (*SeriesResponse, error) {
	s, err := uc.Series(req)
	if err != nil {
		return nil, err
	}
	resp := &SeriesResponse{
		Variable: req.Variable,
		LongName: domain.VariableString(req.Variable, domain.FieldLongName),
		Unit:     plot.UnitLabel(domain.VariableString(req.Variable, domain.FieldUnit)),
		Region:   req.Region(),
		Points:   points(s),
		Meta: map[string]string{
			"dates":  fmt.Sprint(req.Dates),
			"source": "BIOPERIANT12",
		},
	}
	if req.Test != "" {
		test, _ := analysis.ParseTest(req.Test)
		tr, err := Trend(s.Values, test)
		if err != nil {
			return nil, err
		}
		resp.Trend = tr
	}
	if req.Obs != "" {
		o, err := uc.Observation(req.Obs, req.Variable)
		if err != nil {
			return nil, err
		}
		resp.Obs = points(o)
	}
	return resp, nil
}

// Observation loads an observation series in the display units of variable.
func (uc *SeriesUseCase) Observation(name, variable string) (*domain.DataArray, error) {
	if uc.obs == nil {
		return nil, fmt.Errorf("observation %q: no observation store: %w", name, ErrNotFound)
	}
	o, err := uc.obs.Load(name)
	if err != nil {
		return nil, fmt.Errorf("observation %q: %w", name, err)
	}
	return o.Scale(domain.VariableCoefficient(variable, domain.FieldOCoef)), nil
}

func points(a *domain.DataArray) []SeriesPoint {
	out := make([]SeriesPoint, len(a.Values))
	for i, v := range a.Values {
		if len(a.Times) == len(a.Values) {
			out[i].Time = a.Times[i].UTC().Format(time.RFC3339)
		}
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			r := roundToDecimal(v, 6)
			out[i].Value = &r
		}
	}
	return out
}

// roundToDecimal rounds half away from zero.
func roundToDecimal(val float64, precision int) float64 {
	m := math.Pow(10, float64(precision))
	return math.Round(val*m) / m
}
