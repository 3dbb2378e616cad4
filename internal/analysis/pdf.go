package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bioperiant/bp12-tools/internal/domain"
)

// PDF is a normal density fitted to the outlier-trimmed values of a field.
type PDF struct {
	Values  []float64 // Trimmed values, ascending.
	Density []float64 // Normal density at each value.
	Mean    float64
	StdDev  float64 // Population standard deviation.

	Lower, Upper float64 // Outlier bounds Q1−1.5·IQR and Q3+1.5·IQR.

	// Percent of all points at or beyond each bound. Only set when
	// requested from TrimmedPDF.
	LowerPct, UpperPct float64
}

// TrimmedPDF drops the Tukey outliers of every point in a, sorts what is
// left and evaluates a normal density with the sample mean and population
// standard deviation at each value. NaN points are dropped.
//
// Points strictly between the bounds are kept; outlier percentages count
// points at or beyond a bound, relative to the total number of points.
// When withOutliers is set those percentages are filled in and logged.
func TrimmedPDF(a *domain.DataArray, withOutliers bool) (*PDF, error) {
	if a.Size() == 0 {
		return nil, fmt.Errorf("pdf of %s: %w", a.Name, ErrInsufficientData)
	}
	valid := finite(a.Values)
	if len(valid) == 0 {
		return nil, fmt.Errorf("pdf of %s: all values missing: %w", a.Name, ErrInsufficientData)
	}
	sort.Float64s(valid)

	q1, q3 := percentileSorted(valid, 25), percentileSorted(valid, 75)
	iqr := q3 - q1
	pdf := &PDF{Lower: q1 - 1.5*iqr, Upper: q3 + 1.5*iqr}

	var nLow, nHigh int
	pdf.Values = make([]float64, 0, len(valid))
	for _, v := range valid {
		if v >= pdf.Upper {
			nHigh++
		}
		if v <= pdf.Lower {
			nLow++
		}
		if pdf.Lower < v && v < pdf.Upper {
			pdf.Values = append(pdf.Values, v)
		}
	}
	if len(pdf.Values) == 0 {
		return nil, fmt.Errorf("pdf of %s: no values inside the outlier bounds: %w", a.Name, ErrInsufficientData)
	}

	pdf.Mean, pdf.StdDev = stat.PopMeanStdDev(pdf.Values, nil)
	pdf.Density = make([]float64, len(pdf.Values))
	norm := distuv.Normal{Mu: pdf.Mean, Sigma: pdf.StdDev}
	for i, v := range pdf.Values {
		if pdf.StdDev == 0 {
			pdf.Density[i] = math.NaN()
			continue
		}
		pdf.Density[i] = norm.Prob(v)
	}

	if withOutliers {
		total := float64(a.Size())
		pdf.LowerPct = float64(nLow) / total * 100
		pdf.UpperPct = float64(nHigh) / total * 100
		Log.WithFields(logrus.Fields{
			"variable":      a.Name,
			"lower_bound":   fmt.Sprintf("%3.3f", pdf.Lower),
			"lower_percent": fmt.Sprintf("%2.4f", pdf.LowerPct),
			"upper_bound":   fmt.Sprintf("%3.3f", pdf.Upper),
			"upper_percent": fmt.Sprintf("%2.4f", pdf.UpperPct),
		}).Debug("outlier bounds")
	}
	return pdf, nil
}
