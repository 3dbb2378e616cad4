package usecase

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/domain"
	"github.com/bioperiant/bp12-tools/internal/plot"
)

// MapRequest selects a time-mean map of a model variable.
type MapRequest struct {
	Variable string
	Dates    []string
	ZLev     int
	Limits   *plot.Limits // Nil derives limits from the data.
	Title    string

	Fronts      bool
	FrontSource reference.Source // Default SourceModel.
	Month       int              // Front month 1-12; 0 is the annual mean.
	Biomes      bool
	FM2014      bool // Fay & McKinley biome colors.
}

// TimeseriesRequest selects a time-series figure.
type TimeseriesRequest struct {
	Variables []string // One to three, each on its own y axis.
	Dates     []string
	ZLev      int
	Biome     *int
	Lat, Lon  *float64

	Obs     string        // With one variable, plot model against this series.
	Limits  []plot.Limits // Optional, one per variable.
	Colors  []string
	Trend   bool
	Seasons bool
	Title   string
}

// autoLimits spans the finite values with axis limits and five tick steps.
func autoLimits(series ...[]float64) plot.Limits {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return plot.Limits{Min: 0, Max: 1, Tick: 0.2}
	}
	lo, hi = plot.AxisLimits(lo, hi)
	if hi <= lo {
		hi = lo + 1
	}
	return plot.Limits{Min: lo, Max: hi, Tick: (hi - lo) / 5}
}

// MapFigure draws the time mean of a variable on a south-polar map with
// land, and optionally fronts and biome boundaries.
func (uc *SeriesUseCase) MapFigure(req MapRequest) (*plot.Figure, error) {
	if req.Variable == "" || len(req.Dates) == 0 {
		return nil, invalid("variable and dates must be provided")
	}
	if req.Month < 0 || req.Month > 12 {
		return nil, invalid("month must be between 0 and 12")
	}
	zlev := req.ZLev
	if zlev < 0 {
		zlev = 0
	}
	a, err := uc.LoadVariable(req.Variable, req.Dates, zlev)
	if err != nil {
		return nil, err
	}
	mean, err := a.MeanOver(domain.DimTime)
	if err != nil {
		return nil, err
	}
	mean = mean.Scale(domain.VariableCoefficient(req.Variable, domain.FieldMCoef))

	lim := autoLimits(mean.Values)
	if req.Limits != nil {
		lim = *req.Limits
	}

	fig := plot.NewFigure(1, 1)
	p := fig.Panel(0, 0)
	p.Title.Text = req.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s %s", domain.VariableString(req.Variable, domain.FieldLongName), strings.Join(req.Dates, " "))
	}
	if err := p.SouthPolarMap(); err != nil {
		return nil, err
	}
	if err := p.AddField(mean, lim, plot.Label(req.Variable)); err != nil {
		return nil, err
	}

	land, coast, err := plot.LoadLand(uc.ref)
	if err != nil {
		uc.log.WithError(err).Warn("land shapefiles unavailable, map drawn without land")
	} else if err := p.AddLand(land, coast); err != nil {
		return nil, err
	}

	src := req.FrontSource
	if src == "" {
		src = reference.SourceModel
	}
	if req.Fronts {
		if err := p.AddFronts(uc.ref, src, req.Month); err != nil {
			return nil, err
		}
	}
	if req.Biomes {
		if err := p.AddBiomes(uc.ref, src, req.FM2014); err != nil {
			return nil, err
		}
		p.AddBiomeLegend(plot.Anchor{X: 0.02, Y: 0.02}, 3, req.FM2014)
	}
	return fig, nil
}

// TimeseriesFigure draws one to three model series on separate axes, or one
// model series against an observation series.
func (uc *SeriesUseCase) TimeseriesFigure(req TimeseriesRequest) (*plot.Figure, error) {
	n := len(req.Variables)
	if n < 1 || n > 3 {
		return nil, invalid("1 to 3 variables required, got %d", n)
	}
	if req.Obs != "" && n != 1 {
		return nil, invalid("observations can only be compared with one variable")
	}
	if len(req.Limits) != 0 && len(req.Limits) != n {
		return nil, invalid("%d limits for %d variables", len(req.Limits), n)
	}

	series := make([]*domain.DataArray, n)
	labels := make([]string, n)
	for i, v := range req.Variables {
		s, err := uc.Series(SeriesRequest{
			Variable: v, Dates: req.Dates, ZLev: req.ZLev,
			Biome: req.Biome, Lat: req.Lat, Lon: req.Lon,
		})
		if err != nil {
			return nil, err
		}
		series[i], labels[i] = s, plot.Label(v)
	}

	opt := plot.TSOptions{Colors: req.Colors, Trend: req.Trend}
	first, last := yearSpan(series[0].Times)
	if first > 0 {
		opt.Start = time.Date(first, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		opt.End = time.Date(last+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	fig := plot.NewFigure(1, 1)
	p := fig.Panel(0, 0)
	p.Title.Text = req.Title

	if req.Obs != "" {
		obs, err := uc.Observation(req.Obs, req.Variables[0])
		if err != nil {
			return nil, err
		}
		lim := autoLimits(series[0].Values, obs.Values)
		if len(req.Limits) == 1 {
			lim = req.Limits[0]
		}
		if err := p.ModelVsObs(series[0], obs, lim, labels[0], opt); err != nil {
			return nil, err
		}
		p.AddModelObsLegend(plot.Anchor{X: 0.75, Y: 0.05}, req.Colors, true)
	} else {
		lims := req.Limits
		if len(lims) == 0 {
			lims = make([]plot.Limits, n)
			for i, s := range series {
				lims[i] = autoLimits(s.Values)
			}
		}
		if err := p.Timeseries(series, lims, labels, opt); err != nil {
			return nil, err
		}
		if n > 1 {
			names := make([]string, n)
			for i, v := range req.Variables {
				names[i] = plot.NameLabel(v)
			}
			if err := p.AddVarLegend(plot.Anchor{X: 0.02, Y: 0.88}, names, req.Colors, nil, n); err != nil {
				return nil, err
			}
		}
	}
	if req.Seasons && first > 0 {
		if err := p.AddSeasons(first, last, true); err != nil {
			return nil, err
		}
	}
	return fig, nil
}

func yearSpan(times []time.Time) (first, last int) {
	if len(times) == 0 {
		return 0, 0
	}
	return times[0].Year(), times[len(times)-1].Year()
}
