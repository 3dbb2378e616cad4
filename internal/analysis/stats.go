// Package analysis provides the statistics used on model and observation
// fields: outlier-trimmed density estimates, linear trends and
// Mann-Kendall trend significance tests.
package analysis

import (
	"errors"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// ErrInsufficientData is returned when too few valid samples remain for a statistic.
var ErrInsufficientData = errors.New("insufficient data")

// Log receives debug output such as the outlier bounds of TrimmedPDF.
var Log logrus.FieldLogger = logrus.StandardLogger()

// PCeil rounds a up to precision decimal places.
func PCeil(a float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Ceil(a*p) / p
}

// PFloor rounds a down to precision decimal places.
func PFloor(a float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Floor(a*p) / p
}

// finite returns the non-NaN values of x in a new slice.
func finite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Percentile returns the q-th percentile (0..100) of the non-NaN values of
// x, linearly interpolating between order statistics. NaN when x holds no
// valid value.
func Percentile(x []float64, q float64) float64 {
	s := finite(x)
	if len(s) == 0 {
		return math.NaN()
	}
	sort.Float64s(s)
	return percentileSorted(s, q)
}

// percentileSorted interpolates at rank q/100·(n−1), the convention of
// numpy's default "linear" method. gonum's stat.Quantile only offers the
// empirical and LinInterp estimators, neither of which matches it.
func percentileSorted(s []float64, q float64) float64 {
	pos := q / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	frac := pos - float64(lo)
	return s[lo] + frac*(s[hi]-s[lo])
}

// Median returns the NaN-skipping median of x.
func Median(x []float64) float64 {
	return Percentile(x, 50)
}
