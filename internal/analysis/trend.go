package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/bioperiant/bp12-tools/internal/domain"
)

const secondsPerYear = 365.25 * 24 * 3600

// Fit is a first-degree least-squares fit against time.
type Fit struct {
	Intercept    float64 // Value at the first time step.
	SlopePerYear float64
	Valid        int // Points used in the fit.
}

// timeAxis returns the time dimension of a, renaming time_counter to time.
func timeAxis(a *domain.DataArray) (*domain.DataArray, error) {
	if a.HasDim(domain.DimTime) {
		return a, nil
	}
	if !a.HasDim("time_counter") {
		return nil, fmt.Errorf("trend of %s: no time axis: %w", a.Name, domain.ErrDimNotFound)
	}
	return a.Rename(map[string]string{"time_counter": domain.DimTime})
}

// elapsed returns the time coordinate in years since the first step.
// Arrays without timestamps use the step index.
func elapsed(a *domain.DataArray) []float64 {
	n := a.Len(domain.DimTime)
	x := make([]float64, n)
	for i := range x {
		if len(a.Times) == n {
			x[i] = a.Times[i].Sub(a.Times[0]).Seconds() / secondsPerYear
			continue
		}
		x[i] = float64(i)
	}
	return x
}

// LinearFit fits a 1-D time series, skipping NaN values.
func LinearFit(a *domain.DataArray) (Fit, error) {
	a, err := timeAxis(a)
	if err != nil {
		return Fit{}, err
	}
	if a.Ndim() != 1 {
		return Fit{}, fmt.Errorf("linear fit of %s: want 1 dim, got %v", a.Name, a.Dims)
	}
	return fitColumn(elapsed(a), a.Values)
}

func fitColumn(x, y []float64) (Fit, error) {
	xs := make([]float64, 0, len(y))
	ys := make([]float64, 0, len(y))
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, v)
	}
	if len(ys) < 2 {
		return Fit{}, fmt.Errorf("linear fit with %d points: %w", len(ys), ErrInsufficientData)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Fit{Intercept: alpha, SlopePerYear: beta, Valid: len(ys)}, nil
}

// LinearTrend fits a first-degree polynomial along the time axis (time or
// time_counter) at every other position and returns the fitted line
// evaluated at each original time step. Positions with fewer than two valid
// values come back as NaN.
func LinearTrend(a *domain.DataArray) (*domain.DataArray, error) {
	a, err := timeAxis(a)
	if err != nil {
		return nil, err
	}
	ax := a.Axis(domain.DimTime)
	n := a.Shape[ax]
	inner := 1
	for _, s := range a.Shape[ax+1:] {
		inner *= s
	}
	outer := a.Size() / (n * inner)
	x := elapsed(a)

	out := a.Copy()
	col := make([]float64, n)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			for i := 0; i < n; i++ {
				col[i] = a.Values[(o*n+i)*inner+in]
			}
			fit, err := fitColumn(x, col)
			for i := 0; i < n; i++ {
				v := math.NaN()
				if err == nil {
					v = fit.Intercept + fit.SlopePerYear*x[i]
				}
				out.Values[(o*n+i)*inner+in] = v
			}
		}
	}
	if a.Ndim() == 1 && out.Values != nil && math.IsNaN(out.Values[0]) {
		return nil, fmt.Errorf("trend of %s: %w", a.Name, ErrInsufficientData)
	}
	out.Name = a.Name + "_trend"
	return out, nil
}
