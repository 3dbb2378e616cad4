package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioperiant/bp12-tools/internal/adapter/store"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/csv"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/model"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/analysis"
	"github.com/bioperiant/bp12-tools/internal/domain"
	"github.com/bioperiant/bp12-tools/internal/plot"
	"github.com/bioperiant/bp12-tools/internal/synth"
)

var testGrid = synth.RegionalGrid{LatMin: -76, LatMax: -40, LonStart: 73, Resolution: 4, Depths: []float64{5, 50}}

type fixture struct {
	uc     *SeriesUseCase
	loader *model.Loader
	ref    *reference.LocalStore
	obs    *csv.SeriesStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	modelDir, dataDir := filepath.Join(dir, "model"), filepath.Join(dir, "data")
	gen := synth.New(testGrid, nil)
	_, err := gen.WriteModel(modelDir, "y2003m02", "y2004m02")
	require.NoError(t, err)
	require.NoError(t, gen.WriteReference(dataDir))

	loader := model.NewLoader(modelDir)
	ref := reference.NewLocalStore(dataDir, nil)
	obs := csv.NewSeriesStore(dataDir)
	return fixture{
		uc:     NewSeriesUseCase(loader, ref, obs, nil),
		loader: loader,
		ref:    ref,
		obs:    obs,
	}
}

func ptr[T any](v T) *T { return &v }

func TestSeriesRequestValidate(t *testing.T) {
	ok := SeriesRequest{Variable: "votemper", Dates: []string{"y2003"}}
	require.NoError(t, ok.Validate())

	tests := map[string]SeriesRequest{
		"no variable":      {Dates: []string{"y2003"}},
		"no dates":         {Variable: "votemper"},
		"bad date":         {Variable: "votemper", Dates: []string{"x2003"}},
		"lat without lon":  {Variable: "votemper", Dates: []string{"y2003"}, Lat: ptr(-50.0)},
		"biome and point":  {Variable: "votemper", Dates: []string{"y2003"}, Lat: ptr(-50.0), Lon: ptr(0.0), Biome: ptr(16)},
		"latitude range":   {Variable: "votemper", Dates: []string{"y2003"}, Lat: ptr(-95.0), Lon: ptr(0.0)},
		"biome label":      {Variable: "votemper", Dates: []string{"y2003"}, Biome: ptr(0)},
		"unknown test":     {Variable: "votemper", Dates: []string{"y2003"}, Test: "sens"},
		"too many periods": {Variable: "votemper", Dates: make([]string, maxDateSpecs+1)},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)
		})
	}
}

func TestBiomeSeries(t *testing.T) {
	f := newFixture(t)

	s, err := f.uc.Series(SeriesRequest{Variable: "votemper", Dates: []string{"y2003m02", "y2004m02"}, Biome: ptr(16)})
	require.NoError(t, err)
	require.Len(t, s.Values, 10)
	require.Len(t, s.Times, 10)
	assert.True(t, s.Times[0].Before(s.Times[9]))
	for _, v := range s.Values {
		assert.False(t, math.IsNaN(v))
	}

	ocean, err := f.uc.Series(SeriesRequest{Variable: "votemper", Dates: []string{"y2003m02"}})
	require.NoError(t, err)
	assert.Len(t, ocean.Values, 5)
	assert.False(t, math.IsNaN(ocean.Values[0]))
}

func TestPointSeries(t *testing.T) {
	f := newFixture(t)
	s, err := f.uc.Series(SeriesRequest{Variable: "votemper", Dates: []string{"y2003m02"}, Lat: ptr(-50.0), Lon: ptr(10.0)})
	require.NoError(t, err)
	assert.Len(t, s.Values, 5)
	assert.False(t, math.IsNaN(s.Values[0]))
}

func TestSeriesErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Series(SeriesRequest{Variable: "nonsense", Dates: []string{"y2003m02"}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.uc.Series(SeriesRequest{Variable: "votemper", Dates: []string{"y2001"}})
	assert.ErrorIs(t, err, model.ErrNoFiles)

	// Years without files are skipped when others have data.
	s, err := f.uc.Series(SeriesRequest{Variable: "votemper", Dates: []string{"y2001m02", "y2003m02"}, Biome: ptr(15)})
	require.NoError(t, err)
	assert.Len(t, s.Values, 5)
}

// relabeledMask serves the reference biome mask with one label renamed.
type relabeledMask struct {
	store.ReferenceStore
	from, to float64
}

func (r relabeledMask) BiomeMask() (*domain.DataArray, error) {
	mask, err := r.ReferenceStore.BiomeMask()
	if err != nil {
		return nil, err
	}
	return mask.Map(func(v float64) float64 {
		if v == r.from {
			return r.to
		}
		return v
	}), nil
}

func TestBiomeSeriesAnyMaskLabel(t *testing.T) {
	f := newFixture(t)
	want, err := f.uc.Series(SeriesRequest{Variable: "votemper", Dates: []string{"y2003m02"}, Biome: ptr(17)})
	require.NoError(t, err)

	_, err = f.uc.Series(SeriesRequest{Variable: "votemper", Dates: []string{"y2003m02"}, Biome: ptr(7)})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	uc := NewSeriesUseCase(f.loader, relabeledMask{ReferenceStore: f.ref, from: 17, to: 7}, f.obs, nil)
	got, err := uc.Series(SeriesRequest{Variable: "votemper", Dates: []string{"y2003m02"}, Biome: ptr(7)})
	require.NoError(t, err)
	assert.Equal(t, want.Values, got.Values)
}

func TestExecuteWithTrendAndObs(t *testing.T) {
	f := newFixture(t)
	req := SeriesRequest{Variable: "votemper", Dates: []string{"y2003m02", "y2004m02"}, Biome: ptr(17)}
	s, err := f.uc.Series(req)
	require.NoError(t, err)
	require.NoError(t, f.obs.Write("sst_so_ice", s.Scale(0.9)))

	req.Test = "original"
	req.Obs = "sst_so_ice"
	resp, err := f.uc.Execute(req)
	require.NoError(t, err)
	assert.Equal(t, "biome 17", resp.Region)
	assert.Equal(t, "[°C]", resp.Unit)
	assert.Equal(t, "Temperature", resp.LongName)
	require.Len(t, resp.Points, 10)
	require.NotNil(t, resp.Points[0].Value)
	require.Len(t, resp.Obs, 10)
	require.NotNil(t, resp.Trend)
	assert.Equal(t, "original", resp.Trend.Test)
	assert.Equal(t, 10, resp.Trend.N)

	req.Obs = "missing"
	_, err = f.uc.Execute(req)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestTrend(t *testing.T) {
	r, err := Trend([]float64{1, 2, math.NaN(), 3, 4, 5}, analysis.TestOriginal)
	require.NoError(t, err)
	assert.Equal(t, analysis.Increasing, r.Trend)
	assert.Equal(t, 5, r.N)
	assert.Equal(t, "original", r.Test)

	require.NotNil(t, r.P)
	require.NotNil(t, r.Z)
	assert.Less(t, *r.P, 0.05)

	// A negative corrected variance leaves Z and P undefined.
	r, err = Trend([]float64{1, 4.6, 0, 3.3, 0, 2, 3, 0.6, 3, 0.3, 3, 2.6, 0, 3, 0}, analysis.TestHamedRao)
	require.NoError(t, err)
	assert.Equal(t, analysis.NoTrend, r.Trend)
	assert.Less(t, r.VarS, 0.0)
	assert.Nil(t, r.P)
	assert.Nil(t, r.Z)
	body, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"p":null`)
	assert.Contains(t, string(body), `"z":null`)

	_, err = Trend([]float64{1}, analysis.TestOriginal)
	assert.ErrorIs(t, err, analysis.ErrInsufficientData)

	_, err = Trend(make([]float64, maxValues+1), analysis.TestOriginal)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPDF(t *testing.T) {
	r, err := PDF([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}, true)
	require.NoError(t, err)
	assert.Equal(t, 10, r.Count)
	assert.Len(t, r.Values, 9)
	assert.Len(t, r.Density, 9)
	assert.Equal(t, 10.0, r.UpperPct)

	_, err = PDF([]float64{2, 2, 2}, false)
	assert.ErrorIs(t, err, analysis.ErrInsufficientData)

	_, err = PDF(nil, false)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFieldPDF(t *testing.T) {
	f := newFixture(t)
	r, err := f.uc.FieldPDF("votemper", []string{"y2003m02d04"}, 0, true)
	require.NoError(t, err)
	assert.Greater(t, r.Count, 800)
	assert.NotEmpty(t, r.Values)
	assert.LessOrEqual(t, len(r.Values), r.Count)

	_, err = f.uc.FieldPDF("", nil, 0, false)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCatalog(t *testing.T) {
	v, err := DescribeVariable("pco2")
	require.NoError(t, err)
	assert.Equal(t, "pCO₂ [μatm]", v.Label)
	assert.Empty(t, v.Category)

	v, err = DescribeVariable("pp")
	require.NoError(t, err)
	assert.Equal(t, "diadT", v.Category)
	assert.Equal(t, []string{"PPPHY", "PPPHY2"}, v.Components)

	v, err = DescribeVariable("PPPHY")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.MCoef)

	_, err = DescribeVariable("unknown_var")
	assert.ErrorIs(t, err, ErrNotFound)

	d, err := ExpandDates("y2003m02")
	require.NoError(t, err)
	assert.Equal(t, []string{"y2003m02d04", "y2003m02d09", "y2003m02d14", "y2003m02d19", "y2003m02d24"}, d.Tags)
	assert.Equal(t, "2003-02-04T12:00:00Z", d.Times[0])

	_, err = ExpandDates("z2003")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestListFiles(t *testing.T) {
	f := newFixture(t)
	r, err := ListFiles(f.loader, "votemper", "y2003m02")
	require.NoError(t, err)
	assert.Equal(t, "gridT", r.Category)
	assert.Len(t, r.Files, 5)
	assert.Len(t, r.Times, 5)

	r, err = ListFiles(f.loader, "votemper", "y2001")
	require.NoError(t, err)
	assert.Empty(t, r.Files)
	assert.NotNil(t, r.Files)

	_, err = ListFiles(f.loader, "eke", "y2003")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapFigure(t *testing.T) {
	f := newFixture(t)
	fig, err := f.uc.MapFigure(MapRequest{
		Variable: "votemper", Dates: []string{"y2003m02"},
		Fronts: true, Month: 2, Biomes: true,
	})
	require.NoError(t, err)
	fig.DPI = 30

	var buf bytes.Buffer
	_, err = fig.WriteTo(&buf, "svg")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<svg")

	_, err = f.uc.MapFigure(MapRequest{Variable: "votemper", Dates: []string{"y2003m02"}, Month: 13})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestTimeseriesFigure(t *testing.T) {
	f := newFixture(t)
	fig, err := f.uc.TimeseriesFigure(TimeseriesRequest{
		Variables: []string{"votemper", "somxl010"},
		Dates:     []string{"y2003m02", "y2004m02"},
		Biome:     ptr(16),
		Colors:    []string{"k", "r"},
		Trend:     true,
		Seasons:   true,
	})
	require.NoError(t, err)
	fig.DPI = 30
	require.NoError(t, fig.Save(filepath.Join(t.TempDir(), "ts.png")))

	s, err := f.uc.Series(SeriesRequest{Variable: "votemper", Dates: []string{"y2003m02"}, Biome: ptr(16)})
	require.NoError(t, err)
	require.NoError(t, f.obs.Write("sst_spss", s))
	fig, err = f.uc.TimeseriesFigure(TimeseriesRequest{
		Variables: []string{"votemper"},
		Dates:     []string{"y2003m02"},
		Biome:     ptr(16),
		Obs:       "sst_spss",
		Limits:    []plot.Limits{{Min: -5, Max: 15, Tick: 5}},
	})
	require.NoError(t, err)
	_, err = fig.WriteTo(&bytes.Buffer{}, "svg")
	require.NoError(t, err)

	_, err = f.uc.TimeseriesFigure(TimeseriesRequest{Variables: []string{"votemper", "vosaline"}, Dates: []string{"y2003m02"}, Obs: "sst_spss"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = f.uc.TimeseriesFigure(TimeseriesRequest{Dates: []string{"y2003m02"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAutoLimits(t *testing.T) {
	l := autoLimits([]float64{0.2, math.NaN(), 3.7}, []float64{-1.2})
	assert.Equal(t, plot.Limits{Min: -2, Max: 4, Tick: 1.2}, l)
	assert.Equal(t, plot.Limits{Min: 0, Max: 1, Tick: 0.2}, autoLimits([]float64{math.NaN()}))
}

func TestDepthAndObservations(t *testing.T) {
	f := newFixture(t)

	d, err := f.uc.Depth(-50, 30)
	require.NoError(t, err)
	require.NotNil(t, d.Depth)
	assert.InDelta(t, synth.Depth(-50, 30), *d.Depth, 400)

	_, err = f.uc.Depth(-91, 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	names, err := f.uc.Observations()
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NotNil(t, names)

	s, err := f.uc.Series(SeriesRequest{Variable: "votemper", Dates: []string{"y2003m02"}, Biome: ptr(15)})
	require.NoError(t, err)
	require.NoError(t, f.obs.Write("sst_stss", s))
	names, err = f.uc.Observations()
	require.NoError(t, err)
	assert.Equal(t, []string{"sst_stss"}, names)
}
