package forecast

import (
	"context"
	"log/slog"
	"math"

	"github.com/yosoku-ai/yosoku/internal/dataset"
	"github.com/yosoku-ai/yosoku/internal/model"
)

// highVolatilityThreshold marks a demand forecast as high-volatility on
// the ForecastResult itself, independent of risk scoring.
const highVolatilityThreshold = 0.3

// delayRiskMultiplier marks a transit forecast as delay-risky on the
// ForecastResult itself.
const delayRiskMultiplier = 1.3

// Runner produces the forecast list for one module by iterating the
// dataset's entity combinations through the Provider.
type Runner struct {
	store     *dataset.Store
	provider  Provider
	minPoints int
	log       *slog.Logger
}

// NewRunner returns a Runner over the given datasets and provider.
// Series shorter than minPoints are skipped, not failed.
func NewRunner(store *dataset.Store, provider Provider, minPoints int, log *slog.Logger) *Runner {
	return &Runner{store: store, provider: provider, minPoints: minPoints, log: log}
}

// Run forecasts every entity combination of a module. Entities whose
// series cannot be forecast are logged and omitted; per-entity failures
// never abort the batch. Returns the dataset load error, if any, so the
// caller can record the module as degraded.
func (r *Runner) Run(ctx context.Context, module model.Module, horizonDays int) ([]model.ForecastResult, error) {
	if reason, failed := r.store.LoadError(module); failed {
		return nil, &ModuleError{Module: module, Reason: reason}
	}

	switch module {
	case model.ModuleSuppliers:
		return r.supplierForecasts(ctx, horizonDays), nil
	case model.ModuleManufacturing:
		return r.manufacturingForecasts(ctx, horizonDays), nil
	case model.ModuleInventory:
		return r.inventoryForecasts(ctx, horizonDays), nil
	case model.ModuleDemand:
		return r.demandForecasts(ctx, horizonDays), nil
	case model.ModuleTransportation:
		return r.transportationForecasts(ctx, horizonDays), nil
	case model.ModuleExternal:
		return r.externalForecasts(ctx, horizonDays), nil
	default:
		return nil, &ModuleError{Module: module, Reason: "unknown module"}
	}
}

// ModuleError marks a whole module as unforecastable.
type ModuleError struct {
	Module model.Module
	Reason string
}

func (e *ModuleError) Error() string {
	return "forecast: module " + string(e.Module) + ": " + e.Reason
}

// forecastSeries runs the provider over one series and computes the
// shared statistics. A nil result means the entity was skipped.
func (r *Runner) forecastSeries(ctx context.Context, combo dataset.Combo, metric string, series []model.Observation, horizonDays int) *model.ForecastResult {
	if len(series) < r.minPoints {
		r.log.Debug("insufficient data",
			"entity_id", combo.EntityID, "metric", metric, "points", len(series), "min", r.minPoints)
		return nil
	}
	points, err := r.provider.Forecast(ctx, series, horizonDays)
	if err != nil {
		r.log.Warn("forecast failed",
			"entity_id", combo.EntityID, "metric", metric, "error", err)
		return nil
	}

	res := model.ForecastResult{
		EntityID:   combo.EntityID,
		EntityName: combo.EntityName,
		Metric:     metric,
		Points:     points,
	}
	res.HistoricalAvg = round2(mean(series))
	yhat, _, _ := res.Means()
	res.ForecastedAvg = round2(yhat)
	if res.HistoricalAvg > 0 {
		res.ChangePct = round2((res.ForecastedAvg - res.HistoricalAvg) / res.HistoricalAvg * 100)
	}
	return &res
}

func (r *Runner) supplierForecasts(ctx context.Context, horizonDays int) []model.ForecastResult {
	var out []model.ForecastResult
	for _, combo := range r.store.SupplierCombos() {
		if ctx.Err() != nil {
			break
		}
		series := r.store.SupplierLeadTimeSeries(combo.EntityID, combo.Secondary)
		res := r.forecastSeries(ctx, combo, "lead_time_days", series, horizonDays)
		if res == nil {
			continue
		}
		res.ComponentID = combo.Secondary
		out = append(out, *res)
	}
	return out
}

func (r *Runner) manufacturingForecasts(ctx context.Context, horizonDays int) []model.ForecastResult {
	var out []model.ForecastResult
	for _, combo := range r.store.ProductionCombos() {
		if ctx.Err() != nil {
			break
		}
		series := r.store.UtilizationSeries(combo.EntityID, combo.Secondary)
		res := r.forecastSeries(ctx, combo, "capacity_utilization", series, horizonDays)
		if res == nil {
			continue
		}
		// Utilization is a fraction; two decimals would flatten it.
		res.HistoricalAvg = round4(mean(series))
		yhat, _, _ := res.Means()
		res.ForecastedAvg = round4(yhat)
		res.SKU = combo.Secondary

		downtimeSeries := r.store.DowntimeSeries(combo.EntityID, combo.Secondary)
		if downtimePoints, err := r.provider.Forecast(ctx, downtimeSeries, horizonDays); err == nil {
			dt := &model.DowntimeForecast{
				HistoricalAvg: round2(mean(downtimeSeries)),
				Points:        downtimePoints,
			}
			var sum float64
			for _, p := range downtimePoints {
				sum += p.Yhat
			}
			dt.ForecastedAvg = round2(sum / float64(len(downtimePoints)))
			res.Downtime = dt
		}
		out = append(out, *res)
	}
	return out
}

func (r *Runner) inventoryForecasts(ctx context.Context, horizonDays int) []model.ForecastResult {
	var out []model.ForecastResult
	for _, combo := range r.store.InventoryCombos() {
		if ctx.Err() != nil {
			break
		}
		series := r.store.StockSeries(combo.EntityID, combo.Secondary)
		res := r.forecastSeries(ctx, combo, "stock_on_hand", series, horizonDays)
		if res == nil {
			continue
		}
		res.SKU = combo.Secondary
		res.SafetyStock = r.store.SafetyStock(combo.EntityID, combo.Secondary)
		res.MinForecast = round2(res.MinLower())
		res.BelowSafety = res.MinForecast < res.SafetyStock
		out = append(out, *res)
	}
	return out
}

func (r *Runner) demandForecasts(ctx context.Context, horizonDays int) []model.ForecastResult {
	var out []model.ForecastResult
	for _, combo := range r.store.DemandCombos() {
		if ctx.Err() != nil {
			break
		}
		series := r.store.DemandSeries(combo.EntityID, combo.Secondary)
		res := r.forecastSeries(ctx, combo, "order_quantity", series, horizonDays)
		if res == nil {
			continue
		}
		res.SKU = combo.Secondary
		if res.ForecastedAvg > 0 {
			vol := res.AvgIntervalWidth() / res.ForecastedAvg
			res.Volatility = round2(vol * 100)
			res.HighVol = vol > highVolatilityThreshold
		}
		out = append(out, *res)
	}
	return out
}

func (r *Runner) transportationForecasts(ctx context.Context, horizonDays int) []model.ForecastResult {
	var out []model.ForecastResult
	for _, combo := range r.store.RouteCombos() {
		if ctx.Err() != nil {
			break
		}
		series := r.store.TransitSeries(combo.EntityID)
		res := r.forecastSeries(ctx, combo, "transit_time_days", series, horizonDays)
		if res == nil {
			continue
		}
		res.MaxForecast = round2(res.MaxUpper())
		res.DelayRisk = res.ForecastedAvg > res.HistoricalAvg*delayRiskMultiplier
		out = append(out, *res)
	}
	return out
}

func (r *Runner) externalForecasts(ctx context.Context, horizonDays int) []model.ForecastResult {
	var out []model.ForecastResult
	for _, combo := range r.store.ExternalCombos() {
		if ctx.Err() != nil {
			break
		}
		series := r.store.ExternalSeries(combo.EntityID, combo.Secondary)
		res := r.forecastSeries(ctx, combo, combo.Secondary, series, horizonDays)
		if res == nil {
			continue
		}
		res.MaxForecast = round2(res.MaxUpper())
		out = append(out, *res)
	}
	return out
}

func mean(series []model.Observation) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, obs := range series {
		sum += obs.Value
	}
	return sum / float64(len(series))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
