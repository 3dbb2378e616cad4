package usecase

import (
	"fmt"
	"math"

	"github.com/bioperiant/bp12-tools/internal/analysis"
	"github.com/bioperiant/bp12-tools/internal/domain"
)

const maxValues = 100000

// TrendResponse is a Mann-Kendall test result with its variant name. Z and
// P are null when a corrected Var(S) is not positive.
type TrendResponse struct {
	Test      string   `json:"test"`
	N         int      `json:"n"` // Valid values tested.
	Trend     string   `json:"trend"`
	H         bool     `json:"h"`
	P         *float64 `json:"p"`
	Z         *float64 `json:"z"`
	Tau       float64  `json:"tau"`
	S         float64  `json:"s"`
	VarS      float64  `json:"var_s"`
	Slope     float64  `json:"slope"`
	Intercept float64  `json:"intercept"`
}

// Trend runs a Mann-Kendall test on values. NaN values are skipped.
func Trend(values []float64, test analysis.Test) (*TrendResponse, error) {
	if len(values) > maxValues {
		return nil, invalid("at most %d values per request", maxValues)
	}
	r, err := analysis.TrendTest(values, test)
	if err != nil {
		return nil, err
	}
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			n++
		}
	}
	resp := &TrendResponse{
		Test: test.String(), N: n,
		Trend: r.Trend, H: r.H,
		Tau: finiteOrZero(r.Tau), S: r.S, VarS: finiteOrZero(r.VarS),
		Slope: finiteOrZero(r.Slope), Intercept: finiteOrZero(r.Intercept),
	}
	if isFinite(r.Z) && isFinite(r.P) {
		p, z := roundToDecimal(r.P, 6), r.Z
		resp.P, resp.Z = &p, &z
	}
	return resp, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// finiteOrZero maps values JSON cannot carry to 0.
func finiteOrZero(f float64) float64 {
	if isFinite(f) {
		return f
	}
	return 0
}

// PDFResponse is a normal density fitted to outlier-trimmed values.
type PDFResponse struct {
	Count    int       `json:"count"` // Values before trimming, NaN included.
	Values   []float64 `json:"values"`
	Density  []float64 `json:"density"`
	Mean     float64   `json:"mean"`
	StdDev   float64   `json:"std_dev"`
	Lower    float64   `json:"lower_bound"`
	Upper    float64   `json:"upper_bound"`
	LowerPct float64   `json:"lower_percent"`
	UpperPct float64   `json:"upper_percent"`
}

// PDF trims Tukey outliers from values and fits a normal density. The
// outlier percentages are filled in only when withOutliers is set.
func PDF(values []float64, withOutliers bool) (*PDFResponse, error) {
	if len(values) == 0 {
		return nil, invalid("values must not be empty")
	}
	if len(values) > maxValues {
		return nil, invalid("at most %d values per request", maxValues)
	}
	a, err := domain.NewDataArray("values", []string{"n"}, []int{len(values)}, values)
	if err != nil {
		return nil, err
	}
	return pdfOf(a, withOutliers)
}

func pdfOf(a *domain.DataArray, withOutliers bool) (*PDFResponse, error) {
	p, err := analysis.TrimmedPDF(a, withOutliers)
	if err != nil {
		return nil, err
	}
	density := make([]float64, len(p.Density))
	for i, d := range p.Density {
		// JSON has no NaN; a zero spread has no density.
		if !math.IsNaN(d) {
			density[i] = d
		}
	}
	return &PDFResponse{
		Count:    a.Size(),
		Values:   p.Values,
		Density:  density,
		Mean:     p.Mean,
		StdDev:   p.StdDev,
		Lower:    p.Lower,
		Upper:    p.Upper,
		LowerPct: p.LowerPct,
		UpperPct: p.UpperPct,
	}, nil
}

// FieldPDF fits the density of every value of a model variable over a date
// specification at one depth level, in display units.
func (uc *SeriesUseCase) FieldPDF(name string, dates []string, zlev int, withOutliers bool) (*PDFResponse, error) {
	if name == "" || len(dates) == 0 {
		return nil, invalid("variable and dates must be provided")
	}
	if zlev < 0 {
		zlev = 0
	}
	a, err := uc.LoadVariable(name, dates, zlev)
	if err != nil {
		return nil, err
	}
	if a.Size() > maxValues*10 {
		return nil, invalid("%s over %v has %d values", name, dates, a.Size())
	}
	resp, err := pdfOf(a.Scale(domain.VariableCoefficient(name, domain.FieldMCoef)), withOutliers)
	if err != nil {
		return nil, fmt.Errorf("pdf of %s: %w", name, err)
	}
	return resp, nil
}
