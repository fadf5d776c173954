package model

import (
	"time"
)

// Module identifies one of the six forecastable supply-chain domains.
type Module string

const (
	ModuleSuppliers      Module = "suppliers"
	ModuleManufacturing  Module = "manufacturing"
	ModuleInventory      Module = "inventory"
	ModuleDemand         Module = "demand"
	ModuleTransportation Module = "transportation"
	ModuleExternal       Module = "external"
)

// AllModules returns every module in canonical analysis order.
// This order is load-bearing: aggregation ties are broken by it.
func AllModules() []Module {
	return []Module{
		ModuleSuppliers,
		ModuleManufacturing,
		ModuleInventory,
		ModuleDemand,
		ModuleTransportation,
		ModuleExternal,
	}
}

// Valid reports whether m is a known module.
func (m Module) Valid() bool {
	switch m {
	case ModuleSuppliers, ModuleManufacturing, ModuleInventory,
		ModuleDemand, ModuleTransportation, ModuleExternal:
		return true
	}
	return false
}

// Observation is one historical data point of a series to be forecast.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ForecastPoint is a single day of a forecast: point estimate plus the
// confidence interval bounds and the trend component.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Yhat  float64   `json:"yhat"`
	Lower float64   `json:"yhat_lower"`
	Upper float64   `json:"yhat_upper"`
	Trend float64   `json:"trend,omitempty"`
}

// DowntimeForecast is the secondary downtime series attached to
// manufacturing forecasts.
type DowntimeForecast struct {
	HistoricalAvg float64         `json:"historical_avg"`
	ForecastedAvg float64         `json:"forecasted_avg"`
	Points        []ForecastPoint `json:"forecast_data,omitempty"`
}

// ForecastResult is the forecast for one entity/metric pair.
// When the source series had fewer points than the configured minimum,
// Err carries an explanation and every numeric field is zero; downstream
// stages treat such results as "skip this entity", never as a failure.
type ForecastResult struct {
	EntityID      string          `json:"entity_id"`
	EntityName    string          `json:"entity_name,omitempty"`
	Metric        string          `json:"metric"`
	HistoricalAvg float64         `json:"historical_avg"`
	ForecastedAvg float64         `json:"forecasted_avg"`
	ChangePct     float64         `json:"change_percentage"`
	Points        []ForecastPoint `json:"forecast_data"`
	Err           string          `json:"error,omitempty"`

	// Module-specific extras. Zero-valued unless the producing module
	// sets them.
	ComponentID string            `json:"component_id,omitempty"` // suppliers
	SKU         string            `json:"sku,omitempty"`          // manufacturing, inventory, demand
	SafetyStock float64           `json:"safety_stock,omitempty"` // inventory
	MinForecast float64           `json:"min_forecasted,omitempty"`
	BelowSafety bool              `json:"below_safety_stock,omitempty"`
	Volatility  float64           `json:"volatility,omitempty"` // demand, as a percentage
	HighVol     bool              `json:"high_volatility,omitempty"`
	MaxForecast float64           `json:"max_forecasted,omitempty"` // transportation
	DelayRisk   bool              `json:"delay_risk,omitempty"`
	Downtime    *DowntimeForecast `json:"downtime_forecast,omitempty"` // manufacturing
}

// Failed reports whether the forecast carries an error marker and must be
// skipped by risk analysis.
func (f ForecastResult) Failed() bool { return f.Err != "" }

// AvgIntervalWidth returns the mean upper-lower width across all points,
// or 0 for an empty forecast.
func (f ForecastResult) AvgIntervalWidth() float64 {
	if len(f.Points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range f.Points {
		sum += p.Upper - p.Lower
	}
	return sum / float64(len(f.Points))
}

// MinLower returns the smallest lower bound across all points, or 0 for an
// empty forecast.
func (f ForecastResult) MinLower() float64 {
	if len(f.Points) == 0 {
		return 0
	}
	min := f.Points[0].Lower
	for _, p := range f.Points[1:] {
		if p.Lower < min {
			min = p.Lower
		}
	}
	return min
}

// MaxUpper returns the largest upper bound across all points, or 0 for an
// empty forecast.
func (f ForecastResult) MaxUpper() float64 {
	if len(f.Points) == 0 {
		return 0
	}
	max := f.Points[0].Upper
	for _, p := range f.Points[1:] {
		if p.Upper > max {
			max = p.Upper
		}
	}
	return max
}

// Means returns the average yhat, lower and upper across all points.
func (f ForecastResult) Means() (yhat, lower, upper float64) {
	if len(f.Points) == 0 {
		return 0, 0, 0
	}
	for _, p := range f.Points {
		yhat += p.Yhat
		lower += p.Lower
		upper += p.Upper
	}
	n := float64(len(f.Points))
	return yhat / n, lower / n, upper / n
}
