package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/bioperiant/bp12-tools/internal/adapter/store"
	"github.com/bioperiant/bp12-tools/internal/domain"
	"github.com/bioperiant/bp12-tools/internal/plot"
)

// VariableResponse describes a model variable.
type VariableResponse struct {
	Name       string   `json:"name"`
	LongName   string   `json:"long_name"`
	ShortName  string   `json:"short_name"`
	Unit       string   `json:"unit"`
	Label      string   `json:"label"`
	MCoef      float64  `json:"model_coefficient"`
	OCoef      float64  `json:"obs_coefficient"`
	Category   string   `json:"category,omitempty"`
	Components []string `json:"components,omitempty"`
}

// DescribeVariable returns the descriptor of a variable. A variable is
// known if it has a descriptor or a model file category.
func DescribeVariable(name string) (*VariableResponse, error) {
	info, hasInfo := domain.LookupVariable(name)
	category, hasCategory := domain.CategoryOf(name)
	if !hasInfo && !hasCategory {
		return nil, fmt.Errorf("variable %q: %w", name, ErrNotFound)
	}
	resp := &VariableResponse{
		Name:      strings.ToLower(name),
		LongName:  info.LongName,
		ShortName: info.ShortName,
		Unit:      plot.UnitLabel(info.Unit),
		Label:     plot.Label(name),
		MCoef:     domain.VariableCoefficient(name, domain.FieldMCoef),
		OCoef:     domain.VariableCoefficient(name, domain.FieldOCoef),
	}
	if hasCategory {
		resp.Category = string(category)
	}
	if parts, ok := domain.DerivedComponents(name); ok {
		resp.Components = parts
	}
	return resp, nil
}

// DatesResponse lists the model output dates of a date specification.
type DatesResponse struct {
	Spec  string   `json:"spec"`
	Year  int      `json:"year"`
	Tags  []string `json:"tags"`
	Times []string `json:"times"`
}

// ExpandDates decodes a date specification into its tags and timestamps.
func ExpandDates(spec string) (*DatesResponse, error) {
	ds, err := domain.DecodeDateSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	tags := ds.Tags()
	resp := &DatesResponse{Spec: spec, Year: ds.Year, Tags: tags, Times: make([]string, len(tags))}
	for i, tag := range tags {
		ts, err := domain.TagTime(tag)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		resp.Times[i] = ts.Format(time.RFC3339)
	}
	return resp, nil
}

// FilesResponse lists the existing model files of a variable.
type FilesResponse struct {
	Variable string   `json:"variable"`
	Category string   `json:"category"`
	Files    []string `json:"files"`
	Times    []string `json:"times"`
}

// ListFiles returns the model files a variable would be read from.
func ListFiles(loader store.VariableLoader, name, dates string) (*FilesResponse, error) {
	category, ok := domain.CategoryOf(name)
	if !ok {
		return nil, fmt.Errorf("variable %q has no model file category: %w", name, ErrNotFound)
	}
	if _, err := domain.DecodeDateSpec(dates); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	files, times, err := loader.Filenames(category, dates)
	if err != nil {
		return nil, err
	}
	resp := &FilesResponse{Variable: name, Category: string(category), Files: files, Times: make([]string, len(times))}
	if resp.Files == nil {
		resp.Files = []string{}
	}
	for i, ts := range times {
		resp.Times[i] = ts.Format(time.RFC3339)
	}
	return resp, nil
}

// DepthResponse is the model sea-floor depth at a location. Depth is null
// on land and outside the grid.
type DepthResponse struct {
	Lat   float64  `json:"lat"`
	Lon   float64  `json:"lon"`
	Depth *float64 `json:"depth_m"`
}

// Depth looks up the bathymetry at a location.
func (uc *SeriesUseCase) Depth(lat, lon float64) (*DepthResponse, error) {
	if lat < -90 || lat > 90 {
		return nil, invalid("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 360 {
		return nil, invalid("longitude must be between -180 and 360")
	}
	d, err := uc.ref.DepthAt(lat, lon)
	if err != nil {
		return nil, err
	}
	if d != nil {
		r := roundToDecimal(*d, 2)
		d = &r
	}
	return &DepthResponse{Lat: lat, Lon: lon, Depth: d}, nil
}

// Observations lists the observation series available for comparison.
func (uc *SeriesUseCase) Observations() ([]string, error) {
	if uc.obs == nil {
		return []string{}, nil
	}
	names, err := uc.obs.List()
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
