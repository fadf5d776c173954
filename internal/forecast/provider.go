// Package forecast produces per-entity forecasts for the six
// supply-chain modules. The forecasting model is pluggable: anything
// producing a point estimate with interval bounds per future date
// satisfies Provider.
package forecast

import (
	"context"
	"errors"
	"math"

	"github.com/yosoku-ai/yosoku/internal/model"
)

// ErrInsufficientData is returned when a series is too short to forecast.
var ErrInsufficientData = errors.New("insufficient data for forecasting")

// Provider forecasts a single historical series over a horizon.
// Implementations must be deterministic for a given input and safe for
// concurrent use.
type Provider interface {
	Forecast(ctx context.Context, series []model.Observation, horizonDays int) ([]model.ForecastPoint, error)
}

// intervalZ is the standard-normal quantile for a 95% interval.
const intervalZ = 1.96

// Baseline is a deterministic trend forecaster: a least-squares linear
// trend plus an additive day-of-week component, with interval bounds from
// the residual spread. It needs at least three observations.
type Baseline struct{}

// NewBaseline returns a Baseline provider.
func NewBaseline() *Baseline { return &Baseline{} }

// Forecast fits the series and extrapolates one point per day after the
// last observation.
func (b *Baseline) Forecast(_ context.Context, series []model.Observation, horizonDays int) ([]model.ForecastPoint, error) {
	if len(series) < 3 {
		return nil, ErrInsufficientData
	}
	if horizonDays <= 0 {
		return nil, errors.New("forecast: horizon must be positive")
	}

	first := series[0].Date
	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, obs := range series {
		xs[i] = obs.Date.Sub(first).Hours() / 24
		ys[i] = obs.Value
	}

	intercept, slope := leastSquares(xs, ys)

	// Day-of-week component from the detrended residuals.
	var weekday [7]float64
	var weekdayN [7]int
	for i, obs := range series {
		resid := ys[i] - (intercept + slope*xs[i])
		d := int(obs.Date.Weekday())
		weekday[d] += resid
		weekdayN[d]++
	}
	for d := range weekday {
		if weekdayN[d] > 0 {
			weekday[d] /= float64(weekdayN[d])
		}
	}

	// Residual spread after trend and seasonality.
	var ss float64
	for i, obs := range series {
		resid := ys[i] - (intercept + slope*xs[i]) - weekday[int(obs.Date.Weekday())]
		ss += resid * resid
	}
	dof := float64(len(series) - 2)
	spread := intervalZ * math.Sqrt(ss/dof)

	last := series[len(series)-1].Date
	points := make([]model.ForecastPoint, horizonDays)
	for i := range points {
		date := last.AddDate(0, 0, i+1)
		x := date.Sub(first).Hours() / 24
		trend := intercept + slope*x
		yhat := trend + weekday[int(date.Weekday())]
		points[i] = model.ForecastPoint{
			Date:  date,
			Yhat:  yhat,
			Lower: yhat - spread,
			Upper: yhat + spread,
			Trend: trend,
		}
	}
	return points, nil
}

func leastSquares(xs, ys []float64) (intercept, slope float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return intercept, slope
}
