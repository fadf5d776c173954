package risk

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yosoku-ai/yosoku/internal/model"
)

// HistoryProvider supplies the historical aggregates analyzers need for
// context: delivery reliability, regions, downtime baselines. The second
// return value reports whether any history exists for the entity; callers
// fall back to conservative defaults when it does not.
type HistoryProvider interface {
	SupplierOnTimeRate(supplierID string) (float64, bool)
	SupplierRegion(supplierID string) string
	PlantDowntime(plantID, sku string) (float64, bool)
	PlantUtilization(plantID, sku string) (float64, bool)
	PlantDefectRate(plantID, sku string) (float64, bool)
	PlantRegion(plantID string) string
	WarehouseRegion(warehouseID string) string
	RouteOnTimeRate(routeID string) (float64, bool)
	Route(routeID string) (origin, destination, carrier string, ok bool)
}

// defaultOnTimeRate is assumed for suppliers and routes with no delivery
// history.
const defaultOnTimeRate = 0.9

// Analyzer turns per-module forecasts into materialized risk records.
type Analyzer struct {
	scorer  *Scorer
	history HistoryProvider
	log     *slog.Logger
}

// NewAnalyzer returns an Analyzer backed by the given scorer and history.
func NewAnalyzer(scorer *Scorer, history HistoryProvider, log *slog.Logger) *Analyzer {
	return &Analyzer{scorer: scorer, history: history, log: log}
}

// SupplierRisks analyzes supplier lead-time forecasts.
func (a *Analyzer) SupplierRisks(forecasts []model.ForecastResult, horizonDays int) []model.RiskItem {
	var risks []model.RiskItem
	for _, f := range forecasts {
		if f.Failed() {
			continue
		}
		onTime, hasHistory := a.history.SupplierOnTimeRate(f.EntityID)
		if !hasHistory {
			onTime = defaultOnTimeRate
		}

		score := a.scorer.SupplierRisk(f.ForecastedAvg, f.HistoricalAvg, f.AvgIntervalWidth(), horizonDays, onTime)
		if !score.Detected {
			continue
		}

		region := a.history.SupplierRegion(f.EntityID)
		risk := model.RiskItem{
			RiskID:        model.NewRiskID(),
			Category:      model.CategorySupplierDelays,
			SubCategories: []string{"Lead Time Increase"},
			Impact:        "Production Delays",
			Severity:      score.Priority,
			Probability:   score.Probability,
			RiskScore:     score.Score,
			Priority:      score.Priority,
			TimelineDays:  horizonDays,
			Affected: model.AffectedEntities{
				Suppliers: []string{f.EntityID},
				Regions:   regionSlot(region),
			},
			Metrics:    score.Metrics,
			RootCauses: a.supplierRootCauses(score, onTime, hasHistory, region),
		}
		risks = append(risks, risk)
		a.log.Info("supplier risk detected",
			"risk_id", risk.RiskID,
			"supplier_id", f.EntityID,
			"component_id", f.ComponentID,
			"score", score.Score,
			"priority", score.Priority)
	}
	return risks
}

func (a *Analyzer) supplierRootCauses(score model.RiskScore, onTime float64, hasHistory bool, region string) []string {
	var causes []string
	if len(score.Metrics) > 0 && score.Metrics[0].ChangePct > 0 {
		causes = append(causes, fmt.Sprintf("Lead time increase of %.1f%%", score.Metrics[0].ChangePct))
	}
	if hasHistory && onTime < defaultOnTimeRate {
		causes = append(causes, fmt.Sprintf("Low historical on-time delivery rate: %.1f%%", onTime*100))
	}
	if region != "" {
		causes = append(causes, fmt.Sprintf("Supplier located in %s region", region))
	}
	if len(causes) == 0 {
		causes = append(causes, "Historical performance trends indicate potential delays")
	}
	return causes
}

// ProductionRisks analyzes capacity-utilization forecasts together with
// their downtime forecasts.
func (a *Analyzer) ProductionRisks(forecasts []model.ForecastResult, horizonDays int) []model.RiskItem {
	var risks []model.RiskItem
	for _, f := range forecasts {
		if f.Failed() {
			continue
		}
		histDowntime, _ := a.history.PlantDowntime(f.EntityID, f.SKU)
		forecastedDowntime := histDowntime
		if f.Downtime != nil {
			forecastedDowntime = f.Downtime.ForecastedAvg
		}

		score := a.scorer.ProductionRisk(f.ForecastedAvg, forecastedDowntime, histDowntime, horizonDays)
		if !score.Detected {
			continue
		}

		var subCats []string
		if score.BottleneckRisk {
			subCats = append(subCats, "Capacity Bottleneck")
		}
		if score.DowntimeRisk {
			subCats = append(subCats, "Increased Downtime")
		}

		// The utilization baseline lives in the history, not the
		// forecast; fill it in here.
		if histUtil, ok := a.history.PlantUtilization(f.EntityID, f.SKU); ok && len(score.Metrics) > 0 {
			score.Metrics[0].Baseline = histUtil
		}

		risk := model.RiskItem{
			RiskID:        model.NewRiskID(),
			Category:      model.CategoryProductionDelays,
			SubCategories: subCats,
			Impact:        "Reduced Output",
			Severity:      score.Priority,
			Probability:   score.Probability,
			RiskScore:     score.Score,
			Priority:      score.Priority,
			TimelineDays:  horizonDays,
			Affected: model.AffectedEntities{
				Plants:  []string{f.EntityID},
				SKUs:    skuSlot(f.SKU),
				Regions: regionSlot(a.history.PlantRegion(f.EntityID)),
			},
			Metrics:    score.Metrics,
			RootCauses: a.productionRootCauses(f, score),
		}
		risks = append(risks, risk)
	}
	return risks
}

func (a *Analyzer) productionRootCauses(f model.ForecastResult, score model.RiskScore) []string {
	var causes []string
	if score.BottleneckRisk && len(score.Metrics) > 0 {
		causes = append(causes, fmt.Sprintf("Capacity utilization at %.1f%%", score.Metrics[0].Forecasted*100))
	}
	if score.DowntimeRisk {
		causes = append(causes, fmt.Sprintf("Downtime increase of %.1f%%", score.DowntimeIncreasePct))
	}
	if defectRate, ok := a.history.PlantDefectRate(f.EntityID, f.SKU); ok && defectRate > 0.03 {
		causes = append(causes, fmt.Sprintf("Elevated defect rate: %.2f%%", defectRate*100))
	}
	if len(causes) == 0 {
		causes = append(causes, "Production constraints identified in forecast")
	}
	return causes
}

// InventoryRisks analyzes inventory forecasts, cross-checking each
// warehouse/SKU pair against the demand forecasts for the same SKU. This
// is the only cross-domain coupling in the analyzer.
func (a *Analyzer) InventoryRisks(invForecasts, demandForecasts []model.ForecastResult, horizonDays int) []model.RiskItem {
	var risks []model.RiskItem
	for _, f := range invForecasts {
		if f.Failed() {
			continue
		}

		inventoryLower := f.MinLower()

		// First demand forecast for the same SKU wins.
		var demandUpper float64
		for _, d := range demandForecasts {
			if d.SKU == f.SKU {
				demandUpper = d.MaxUpper()
				break
			}
		}

		score := a.scorer.InventoryRisk(f.ForecastedAvg, f.SafetyStock, demandUpper, inventoryLower, horizonDays)
		if !score.Detected {
			continue
		}

		var subCats []string
		if score.ShortageRisk {
			subCats = append(subCats, "Below Safety Stock")
		}
		if score.DemandExceedsSupply {
			subCats = append(subCats, "Demand Exceeds Supply")
		}

		secondary := "Insufficient replenishment"
		if demandUpper > 0 {
			secondary = "High demand variability"
		}

		risk := model.RiskItem{
			RiskID:        model.NewRiskID(),
			Category:      model.CategoryStockShortages,
			SubCategories: subCats,
			Impact:        "Stockout Risk",
			Severity:      score.Priority,
			Probability:   score.Probability,
			RiskScore:     score.Score,
			Priority:      score.Priority,
			TimelineDays:  horizonDays,
			Affected: model.AffectedEntities{
				Warehouses: []string{f.EntityID},
				SKUs:       skuSlot(f.SKU),
				Regions:    regionSlot(a.history.WarehouseRegion(f.EntityID)),
			},
			Metrics: score.Metrics,
			RootCauses: []string{
				fmt.Sprintf("Forecasted inventory (%.0f) below safety stock (%.0f)", f.ForecastedAvg, f.SafetyStock),
				secondary,
			},
		}
		risks = append(risks, risk)
	}
	return risks
}

// DemandRisks analyzes demand forecasts for volatility.
func (a *Analyzer) DemandRisks(forecasts []model.ForecastResult, horizonDays int) []model.RiskItem {
	var risks []model.RiskItem
	for _, f := range forecasts {
		if f.Failed() || len(f.Points) == 0 {
			continue
		}
		yhat, lower, upper := f.Means()

		score := a.scorer.DemandVolatilityRisk(yhat, upper, lower, horizonDays)
		if !score.Detected {
			continue
		}

		risk := model.RiskItem{
			RiskID:        model.NewRiskID(),
			Category:      model.CategoryDemandVolatility,
			SubCategories: []string{"High Forecast Uncertainty"},
			Impact:        "Planning Difficulty",
			Severity:      score.Priority,
			Probability:   score.Probability,
			RiskScore:     score.Score,
			Priority:      score.Priority,
			TimelineDays:  horizonDays,
			Affected: model.AffectedEntities{
				SKUs:    skuSlot(f.SKU),
				Regions: regionSlot(f.EntityID),
			},
			Metrics: score.Metrics,
			RootCauses: []string{
				fmt.Sprintf("High demand uncertainty: ±%.1f%%", score.VolatilityPct),
				"Seasonal fluctuations",
				"Market unpredictability",
			},
		}
		risks = append(risks, risk)
	}
	return risks
}

// TransportationRisks analyzes transit-time forecasts per route.
func (a *Analyzer) TransportationRisks(forecasts []model.ForecastResult, horizonDays int) []model.RiskItem {
	var risks []model.RiskItem
	for _, f := range forecasts {
		if f.Failed() {
			continue
		}
		onTime, hasHistory := a.history.RouteOnTimeRate(f.EntityID)
		if !hasHistory {
			onTime = defaultOnTimeRate
		}

		score := a.scorer.TransportationRisk(f.ForecastedAvg, f.HistoricalAvg, horizonDays, onTime)
		if !score.Detected {
			continue
		}

		origin, destination, carrier, _ := a.history.Route(f.EntityID)

		affected := model.AffectedEntities{Routes: []string{f.EntityID}}
		// Route endpoints carry typed prefixes; anything else is an
		// external location and stays out of the entity slots.
		if strings.HasPrefix(origin, "PLANT") {
			affected.Plants = []string{origin}
		}
		if strings.HasPrefix(destination, "WH") {
			affected.Warehouses = []string{destination}
		}

		var delayPct float64
		if len(score.Metrics) > 0 {
			delayPct = score.Metrics[0].ChangePct
		}

		risk := model.RiskItem{
			RiskID:        model.NewRiskID(),
			Category:      model.CategoryTransportationIssues,
			SubCategories: []string{"Transit Delay"},
			Impact:        "Delivery Delays",
			Severity:      score.Priority,
			Probability:   score.Probability,
			RiskScore:     score.Score,
			Priority:      score.Priority,
			TimelineDays:  horizonDays,
			Affected:      affected,
			Metrics:       score.Metrics,
			RootCauses: []string{
				fmt.Sprintf("Transit time increase: +%.1f%%", delayPct),
				fmt.Sprintf("Historical on-time rate: %.1f%%", onTime*100),
				fmt.Sprintf("Carrier: %s", carrier),
			},
		}
		risks = append(risks, risk)
	}
	return risks
}

// externalImpacts maps factor types to their business impact strings.
var externalImpacts = map[string]string{
	"weather_severity_index":  "Supply Chain Disruption",
	"tariff_rate":             "Cost Increase",
	"port_congestion_index":   "Shipping Delays",
	"fuel_price_usd":          "Transportation Cost Increase",
	"geopolitical_risk_index": "Supply Uncertainty",
}

// ExternalRisks analyzes external-factor forecasts per region.
func (a *Analyzer) ExternalRisks(forecasts []model.ForecastResult, horizonDays int) []model.RiskItem {
	var risks []model.RiskItem
	for _, f := range forecasts {
		if f.Failed() {
			continue
		}

		score := a.scorer.ExternalFactorRisk(f.Metric, f.ForecastedAvg, f.HistoricalAvg, horizonDays)
		if !score.Detected {
			continue
		}

		impact, ok := externalImpacts[f.Metric]
		if !ok {
			impact = "External Disruption"
		}

		risk := model.RiskItem{
			RiskID:        model.NewRiskID(),
			Category:      model.CategoryExternalFactors,
			SubCategories: []string{score.SubCategory},
			Impact:        impact,
			Severity:      score.Priority,
			Probability:   score.Probability,
			RiskScore:     score.Score,
			Priority:      score.Priority,
			TimelineDays:  horizonDays,
			Affected: model.AffectedEntities{
				Regions: regionSlot(f.EntityID),
			},
			Metrics: score.Metrics,
			RootCauses: []string{
				fmt.Sprintf("Elevated %s: %.2f", strings.ReplaceAll(f.Metric, "_", " "), f.ForecastedAvg),
				fmt.Sprintf("Region: %s", f.EntityID),
			},
		}
		risks = append(risks, risk)
	}
	return risks
}

func regionSlot(region string) []string {
	if region == "" {
		return nil
	}
	return []string{region}
}

func skuSlot(sku string) []string {
	if sku == "" {
		return nil
	}
	return []string{sku}
}
