package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Test selects a Mann-Kendall variant.
type Test int

// Mann-Kendall variants.
const (
	TestOriginal Test = iota
	TestHamedRao
	TestYueWang
	TestTrendFreePreWhitening
	TestPreWhitening
	TestSeasonal
)

// Alpha is the significance level of every test.
const Alpha = 0.05

// SeasonalPeriod is the number of seasons of TestSeasonal (monthly data).
const SeasonalPeriod = 12

// Trend directions.
const (
	Increasing = "increasing"
	Decreasing = "decreasing"
	NoTrend    = "no trend"
)

func (t Test) String() string {
	switch t {
	case TestOriginal:
		return "original"
	case TestHamedRao:
		return "hamed_rao"
	case TestYueWang:
		return "yue_wang"
	case TestTrendFreePreWhitening:
		return "trend_free_pre_whitening"
	case TestPreWhitening:
		return "pre_whitening"
	case TestSeasonal:
		return "seasonal"
	}
	return fmt.Sprintf("Test(%d)", int(t))
}

// ParseTest accepts a variant name ("original", "seasonal", ...) or its
// number. The empty string is TestOriginal.
func ParseTest(s string) (Test, error) {
	if s == "" {
		return TestOriginal, nil
	}
	for t := TestOriginal; t <= TestSeasonal; t++ {
		if s == t.String() || s == strconv.Itoa(int(t)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown trend test %q", s)
}

// MKResult holds the outcome of a Mann-Kendall test.
type MKResult struct {
	Trend     string  `json:"trend"`
	H         bool    `json:"h"` // Trend is significant at Alpha.
	P         float64 `json:"p"`
	Z         float64 `json:"z"`
	Tau       float64 `json:"tau"`
	S         float64 `json:"s"`
	VarS      float64 `json:"var_s"`
	Slope     float64 `json:"slope"` // Sen's slope per step (per cycle for the seasonal test).
	Intercept float64 `json:"intercept"`
}

// TrendTest runs a Mann-Kendall test on values, skipping NaN.
func TrendTest(values []float64, test Test) (MKResult, error) {
	switch test {
	case TestOriginal:
		return originalTest(values)
	case TestHamedRao:
		return hamedRaoTest(values)
	case TestYueWang:
		return yueWangTest(values)
	case TestTrendFreePreWhitening:
		return trendFreePreWhiteningTest(values)
	case TestPreWhitening:
		return preWhiteningTest(values)
	case TestSeasonal:
		return seasonalTest(values, SeasonalPeriod)
	}
	return MKResult{}, fmt.Errorf("unknown trend test %d", int(test))
}

// CheckTrend returns the trend direction and p-value of a test.
func CheckTrend(values []float64, test Test) (string, float64, error) {
	r, err := TrendTest(values, test)
	if err != nil {
		return "", 0, err
	}
	return r.Trend, r.P, nil
}

const minSamples = 3

func valid(values []float64) ([]float64, error) {
	x := finite(values)
	if len(x) < minSamples {
		return nil, fmt.Errorf("trend test with %d valid values: %w", len(x), ErrInsufficientData)
	}
	return x, nil
}

// mkScore is S = Σ_{k<j} sign(x_j − x_k).
func mkScore(x []float64) float64 {
	s := 0.0
	for k := 0; k < len(x)-1; k++ {
		for j := k + 1; j < len(x); j++ {
			switch d := x[j] - x[k]; {
			case d > 0:
				s++
			case d < 0:
				s--
			}
		}
	}
	return s
}

// varianceS is Var(S) with the tie correction.
func varianceS(x []float64) float64 {
	n := float64(len(x))
	v := n * (n - 1) * (2*n + 5)
	counts := make(map[float64]int, len(x))
	for _, xi := range x {
		counts[xi]++
	}
	for _, c := range counts {
		tp := float64(c)
		v -= tp * (tp - 1) * (2*tp + 5)
	}
	return v / 18
}

func zScore(s, varS float64) float64 {
	switch {
	case s > 0:
		return (s - 1) / math.Sqrt(varS)
	case s < 0:
		return (s + 1) / math.Sqrt(varS)
	}
	return 0
}

func pValue(z float64) (p float64, h bool, trend string) {
	p = 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
	h = math.Abs(z) > distuv.UnitNormal.Quantile(1-Alpha/2)
	switch {
	case z < 0 && h:
		trend = Decreasing
	case z > 0 && h:
		trend = Increasing
	default:
		trend = NoTrend
	}
	return p, h, trend
}

func tau(s float64, n int) float64 {
	return s / (0.5 * float64(n) * float64(n-1))
}

// result assembles the common tail of every test. slopeOf is the series
// Sen's slope is computed from.
func result(s, varS float64, n int, slopeOf []float64) MKResult {
	z := zScore(s, varS)
	p, h, trend := pValue(z)
	slope, intercept := SensSlope(slopeOf)
	return MKResult{
		Trend: trend, H: h, P: p, Z: z,
		Tau: tau(s, n), S: s, VarS: varS,
		Slope: slope, Intercept: intercept,
	}
}

func originalTest(values []float64) (MKResult, error) {
	x, err := valid(values)
	if err != nil {
		return MKResult{}, err
	}
	return result(mkScore(x), varianceS(x), len(x), values), nil
}

// hamedRaoTest corrects Var(S) for autocorrelation of the ranks of the
// detrended series, counting only significant lags.
func hamedRaoTest(values []float64) (MKResult, error) {
	x, err := valid(values)
	if err != nil {
		return MKResult{}, err
	}
	n := len(x)
	s, varS := mkScore(x), varianceS(x)

	slope, _ := SensSlope(values)
	acf := autocorrelation(rank(detrend(x, slope)), n-1)
	nf := float64(n)
	bound := distuv.UnitNormal.Quantile(1-Alpha/2) / math.Sqrt(nf)
	sni := 0.0
	for i := 1; i < n; i++ {
		if math.IsNaN(acf[i]) || (acf[i] <= bound && acf[i] >= -bound) {
			continue
		}
		fi := float64(i)
		sni += (nf - fi) * (nf - fi - 1) * (nf - fi - 2) * acf[i]
	}
	varS *= 1 + 2/(nf*(nf-1)*(nf-2))*sni
	return result(s, varS, n, values), nil
}

// yueWangTest corrects Var(S) with the effective sample size of the
// detrended series.
func yueWangTest(values []float64) (MKResult, error) {
	x, err := valid(values)
	if err != nil {
		return MKResult{}, err
	}
	n := len(x)
	s, varS := mkScore(x), varianceS(x)

	slope, _ := SensSlope(values)
	acf := autocorrelation(detrend(x, slope), n-1)
	sni := 0.0
	for i := 1; i < n; i++ {
		if math.IsNaN(acf[i]) {
			continue
		}
		sni += (1 - float64(i)/float64(n)) * acf[i]
	}
	varS *= 1 + 2*sni
	return result(s, varS, n, values), nil
}

// preWhiteningTest removes lag-1 autocorrelation before testing.
func preWhiteningTest(values []float64) (MKResult, error) {
	x, err := valid(values)
	if err != nil {
		return MKResult{}, err
	}
	r1 := autocorrelation(x, 1)[1]
	w := make([]float64, len(x)-1)
	for i := range w {
		w[i] = x[i+1] - x[i]*r1
	}
	return result(mkScore(w), varianceS(w), len(w), values), nil
}

// trendFreePreWhiteningTest removes the Sen trend, pre-whitens the residual
// at lag 1 and adds the trend back before testing.
func trendFreePreWhiteningTest(values []float64) (MKResult, error) {
	x, err := valid(values)
	if err != nil {
		return MKResult{}, err
	}
	slope, _ := SensSlope(values)
	d := detrend(x, slope)
	r1 := autocorrelation(d, 1)[1]
	w := make([]float64, len(d)-1)
	for i := range w {
		w[i] = d[i+1] - d[i]*r1 + float64(i+1)*slope
	}
	return result(mkScore(w), varianceS(w), len(w), values), nil
}

// seasonalTest sums S and Var(S) over each season of a series with the
// given period. The series is padded with NaN to whole cycles and every
// cycle holding a NaN is dropped, so all seasons share the same n.
func seasonalTest(values []float64, period int) (MKResult, error) {
	cycles := completeCycles(values, period)
	if len(cycles) < 2 {
		return MKResult{}, fmt.Errorf("seasonal trend test with %d complete cycles of period %d: %w",
			len(cycles), period, ErrInsufficientData)
	}
	n := float64(len(cycles))
	var s, varS, denom float64
	x := make([]float64, len(cycles))
	for p := 0; p < period; p++ {
		for c, cycle := range cycles {
			x[c] = cycle[p]
		}
		s += mkScore(x)
		varS += varianceS(x)
		denom += n * (n - 1) / 2
	}
	z := zScore(s, varS)
	p, h, trend := pValue(z)
	slope, intercept := SeasonalSensSlope(values, period)
	return MKResult{
		Trend: trend, H: h, P: p, Z: z,
		Tau: s / denom, S: s, VarS: varS,
		Slope: slope, Intercept: intercept,
	}, nil
}

// completeCycles returns the cycles of values, period values each, that hold
// no NaN. A trailing partial cycle counts as padded with NaN.
func completeCycles(values []float64, period int) [][]float64 {
	var out [][]float64
	for start := 0; start+period <= len(values); start += period {
		cycle := values[start : start+period]
		if len(finite(cycle)) == period {
			out = append(out, cycle)
		}
	}
	return out
}

// seasons splits values into period columns, one value per cycle.
func seasons(values []float64, period int) [][]float64 {
	cycles := (len(values) + period - 1) / period
	out := make([][]float64, period)
	for p := range out {
		out[p] = make([]float64, cycles)
		for c := 0; c < cycles; c++ {
			i := c*period + p
			if i < len(values) {
				out[p][c] = values[i]
			} else {
				out[p][c] = math.NaN()
			}
		}
	}
	return out
}

// sensDifferences returns (x_j − x_i)/(j − i) for every pair with both ends valid.
func sensDifferences(x []float64) []float64 {
	var d []float64
	for i := 0; i < len(x)-1; i++ {
		if math.IsNaN(x[i]) {
			continue
		}
		for j := i + 1; j < len(x); j++ {
			if math.IsNaN(x[j]) {
				continue
			}
			d = append(d, (x[j]-x[i])/float64(j-i))
		}
	}
	return d
}

// SensSlope returns Sen's slope per step and the matching intercept,
// median(x) − median(valid indices)·slope. NaN values are skipped but keep
// their position.
func SensSlope(x []float64) (slope, intercept float64) {
	slope = Median(sensDifferences(x))
	return slope, Median(x) - Median(validIndices(x))*slope
}

// SeasonalSensSlope returns the median of the per-season Sen slopes, per
// cycle, and its intercept.
func SeasonalSensSlope(x []float64, period int) (slope, intercept float64) {
	var d []float64
	for _, season := range seasons(x, period) {
		d = append(d, sensDifferences(season)...)
	}
	slope = Median(d)
	return slope, Median(x) - Median(validIndices(x))/float64(period)*slope
}

func validIndices(x []float64) []float64 {
	idx := make([]float64, 0, len(x))
	for i, v := range x {
		if !math.IsNaN(v) {
			idx = append(idx, float64(i))
		}
	}
	return idx
}

// detrend subtracts slope·i (i from 1) from x.
func detrend(x []float64, slope float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - float64(i+1)*slope
	}
	return out
}

// autocorrelation returns the sample autocorrelation of x at lags 0..nlags.
func autocorrelation(x []float64, nlags int) []float64 {
	mean := stat.Mean(x, nil)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = v - mean
	}
	c0 := floats.Dot(y, y)
	acf := make([]float64, nlags+1)
	for k := range acf {
		if k >= len(y) {
			break
		}
		if c0 == 0 {
			acf[k] = math.NaN()
			continue
		}
		acf[k] = floats.Dot(y[:len(y)-k], y[k:]) / c0
	}
	return acf
}

// rank returns 1-based ranks of x, averaging ties.
func rank(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	r := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			r[idx[k]] = avg
		}
		i = j + 1
	}
	return r
}
