// Package risk detects and scores supply-chain risks from forecast output.
//
// The scorer is a set of pure functions: forecast-derived numbers in, a
// composite score and detection detail out. No I/O, no state beyond the
// configured thresholds. The analyzer layers entity context and record
// assembly on top; the aggregator merges across domains.
package risk

import (
	"math"

	"github.com/yosoku-ai/yosoku/internal/config"
	"github.com/yosoku-ai/yosoku/internal/model"
)

// Scorer computes composite risk scores against configured thresholds.
// Safe for concurrent use.
type Scorer struct {
	thresholds config.Thresholds
	priorities config.PriorityBoundaries
}

// NewScorer returns a Scorer using the given detection thresholds and
// priority boundaries.
func NewScorer(t config.Thresholds, p config.PriorityBoundaries) *Scorer {
	return &Scorer{thresholds: t, priorities: p}
}

// Composite combines the three score components into one 0-100 score.
// Weights: impact 40%, probability 30%, urgency 30%. The weighted sum is
// divided by mitigation readiness, so a poorly-prepared organization sees
// the same underlying risk as a higher score.
func (s *Scorer) Composite(impact, probability, urgency, readiness float64) float64 {
	impact = clamp(impact, 0, 100)
	probability = clamp(probability, 0, 1)
	urgency = clamp(urgency, 0, 100)
	readiness = clamp(readiness, 0.1, 1.0)

	raw := impact*0.4 + probability*100*0.3 + urgency*0.3
	return clamp(raw/readiness, 0, 100)
}

// ClassifyPriority maps a score to a priority bucket. Boundaries are
// inclusive on the low side.
func (s *Scorer) ClassifyPriority(score float64) model.Priority {
	switch {
	case score >= s.priorities.Critical:
		return model.PriorityCritical
	case score >= s.priorities.High:
		return model.PriorityHigh
	case score >= s.priorities.Medium:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// SupplierRisk scores a supplier lead-time forecast. Detection fires when
// the forecast/historical ratio exceeds the configured multiplier.
// A narrower confidence interval means a more certain forecast and so a
// higher probability; a poor on-time history raises probability further
// and lowers readiness.
func (s *Scorer) SupplierRisk(forecastedLeadTime, historicalAvg, intervalWidth float64, timelineDays int, onTimeRate float64) model.RiskScore {
	ratio := safeDiv(forecastedLeadTime, historicalAvg, 1.0)
	if ratio <= s.thresholds.SupplierLeadTimeMultiplier {
		return notDetected()
	}

	base := 0.5 + 0.5*(1-math.Min(safeDiv(intervalWidth, forecastedLeadTime, 1), 1))
	probability := clamp(base*(1+(1-onTimeRate)), 0, 1)

	impact := math.Min((ratio-1)*100*2, 100)
	urgency := math.Max(100-float64(timelineDays), 0)
	readiness := math.Max(onTimeRate, 0.1)

	score := s.Composite(impact, probability, urgency, readiness)
	return model.RiskScore{
		Detected:      true,
		Score:         round2(score),
		Priority:      s.ClassifyPriority(score),
		Probability:   round2(probability),
		Impact:        round2(impact),
		Urgency:       round2(urgency),
		IncreaseRatio: round2(ratio),
		Metrics: []model.ForecastedMetric{{
			MetricName: "lead_time_days",
			Forecasted: round2(forecastedLeadTime),
			Baseline:   round2(historicalAvg),
			ChangePct:  round2((ratio - 1) * 100),
		}},
	}
}

// ProductionRisk scores a capacity-utilization forecast together with its
// downtime forecast. Either an over-threshold utilization or an
// over-threshold downtime increase triggers detection; both together
// compound probability and impact.
func (s *Scorer) ProductionRisk(forecastedUtilization, forecastedDowntime, historicalDowntime float64, timelineDays int) model.RiskScore {
	utilThreshold := s.thresholds.CapacityUtilization
	bottleneck := forecastedUtilization > utilThreshold

	downtimeIncrease := safeDiv(forecastedDowntime-historicalDowntime, historicalDowntime, 0)
	downtime := downtimeIncrease > s.thresholds.DowntimeIncrease

	if !bottleneck && !downtime {
		return notDetected()
	}

	probability := 0.5
	if bottleneck {
		probability += 0.25 * (forecastedUtilization - utilThreshold) / (1 - utilThreshold)
	}
	if downtime {
		probability += 0.25 * math.Min(downtimeIncrease/0.5, 1)
	}
	probability = clamp(probability, 0, 1)

	impact := 0.0
	if bottleneck {
		impact += 50 * (forecastedUtilization - utilThreshold) / (1 - utilThreshold)
	}
	if downtime {
		impact += 50 * math.Min(downtimeIncrease, 1)
	}
	impact = clamp(impact, 0, 100)

	urgency := math.Max(100-float64(timelineDays), 0)

	score := s.Composite(impact, probability, urgency, 0.7)
	return model.RiskScore{
		Detected:            true,
		Score:               round2(score),
		Priority:            s.ClassifyPriority(score),
		Probability:         round2(probability),
		Impact:              round2(impact),
		Urgency:             round2(urgency),
		BottleneckRisk:      bottleneck,
		DowntimeRisk:        downtime,
		DowntimeIncreasePct: round2(downtimeIncrease * 100),
		Metrics: []model.ForecastedMetric{{
			MetricName: "capacity_utilization",
			Forecasted: round4(forecastedUtilization),
		}},
	}
}

// InventoryRisk scores an inventory forecast cross-checked against the
// matching demand forecast. Inventory below safety stock or demand upper
// bound exceeding the inventory lower bound triggers detection.
func (s *Scorer) InventoryRisk(forecastedInventory, safetyStock, demandUpper, inventoryLower float64, timelineDays int) model.RiskScore {
	shortage := forecastedInventory < safetyStock
	highDemand := demandUpper > inventoryLower

	if !shortage && !highDemand {
		return notDetected()
	}

	probability := 0.3
	if shortage {
		severity := safeDiv(safetyStock-forecastedInventory, safetyStock, 0)
		probability += 0.4 * math.Min(severity, 1)
	}
	if highDemand {
		gap := safeDiv(demandUpper-inventoryLower, inventoryLower, 0)
		probability += 0.3 * math.Min(gap, 1)
	}
	probability = clamp(probability, 0, 1)

	impact := 0.0
	if shortage {
		pct := safeDiv(safetyStock-forecastedInventory, safetyStock, 0)
		impact += 60 * math.Min(pct, 1)
	}
	if highDemand {
		impact += 40
	}
	impact = clamp(impact, 0, 100)

	urgency := math.Max(100-float64(timelineDays), 0)

	score := s.Composite(impact, probability, urgency, 0.6)
	return model.RiskScore{
		Detected:            true,
		Score:               round2(score),
		Priority:            s.ClassifyPriority(score),
		Probability:         round2(probability),
		Impact:              round2(impact),
		Urgency:             round2(urgency),
		ShortageRisk:        shortage,
		DemandExceedsSupply: highDemand,
		Metrics: []model.ForecastedMetric{{
			MetricName: "stock_on_hand",
			Forecasted: round2(forecastedInventory),
			Baseline:   round2(safetyStock),
		}},
	}
}

// DemandVolatilityRisk scores the width of a demand forecast's confidence
// interval relative to the point estimate.
func (s *Scorer) DemandVolatilityRisk(yhat, upper, lower float64, timelineDays int) model.RiskScore {
	threshold := s.thresholds.DemandVolatility
	volatility := safeDiv(upper-lower, yhat, 0)
	if volatility <= threshold {
		return notDetected()
	}

	probability := math.Min((volatility-threshold)/threshold+0.5, 1)
	impact := math.Min(volatility*100, 100)
	urgency := math.Max(100-float64(timelineDays), 0)

	score := s.Composite(impact, probability, urgency, 0.8)
	return model.RiskScore{
		Detected:      true,
		Score:         round2(score),
		Priority:      s.ClassifyPriority(score),
		Probability:   round2(probability),
		Impact:        round2(impact),
		Urgency:       round2(urgency),
		VolatilityPct: round2(volatility * 100),
		Metrics: []model.ForecastedMetric{{
			MetricName: "demand_volatility",
			Forecasted: round2(volatility * 100),
			Baseline:   round2(threshold * 100),
		}},
	}
}

// TransportationRisk scores a transit-time forecast. Readiness tracks the
// route's on-time rate directly: an unreliable route has less slack to
// absorb a delay.
func (s *Scorer) TransportationRisk(forecastedTransit, baselineTransit float64, timelineDays int, onTimeRate float64) model.RiskScore {
	ratio := safeDiv(forecastedTransit, baselineTransit, 1.0)
	if ratio <= s.thresholds.TransitTimeMultiplier {
		return notDetected()
	}

	probability := clamp(0.5+0.5*(1-onTimeRate), 0, 1)
	delayPct := (ratio - 1) * 100
	impact := math.Min(delayPct*2, 100)
	urgency := math.Max(100-float64(timelineDays), 0)

	score := s.Composite(impact, probability, urgency, onTimeRate)
	return model.RiskScore{
		Detected:    true,
		Score:       round2(score),
		Priority:    s.ClassifyPriority(score),
		Probability: round2(probability),
		Impact:      round2(impact),
		Urgency:     round2(urgency),
		Metrics: []model.ForecastedMetric{{
			MetricName: "transit_time_days",
			Forecasted: round2(forecastedTransit),
			Baseline:   round2(baselineTransit),
			ChangePct:  round2(delayPct),
		}},
	}
}

// ExternalFactorRisk scores one external-factor forecast. Each factor
// type has its own detection gate and its own probability and impact
// shape; all share the fixed 0.5 readiness of events nobody controls.
func (s *Scorer) ExternalFactorRisk(factorType string, forecasted, historical float64, timelineDays int) model.RiskScore {
	var (
		detected    bool
		probability float64
		impact      float64
		subCategory = factorType
	)

	switch factorType {
	case "weather_severity_index":
		if detected = forecasted > s.thresholds.WeatherSeverity; detected {
			probability = math.Min((forecasted-s.thresholds.WeatherSeverity)/3, 1)
			impact = math.Min(forecasted/10*100, 100)
			subCategory = "Weather"
		}
	case "tariff_rate":
		increase := safeDiv(forecasted-historical, historical, 0)
		if detected = increase > s.thresholds.TariffIncrease; detected {
			probability = math.Min(increase/0.3, 1)
			impact = math.Min(increase*200, 100)
			subCategory = "Trade/Tariffs"
		}
	case "port_congestion_index":
		if detected = forecasted > s.thresholds.PortCongestion; detected {
			probability = math.Min((forecasted-s.thresholds.PortCongestion)/20, 1)
			impact = math.Min(forecasted/50*100, 100)
			subCategory = "Port Congestion"
		}
	case "fuel_price_usd":
		increase := safeDiv(forecasted-historical, historical, 0)
		if detected = increase > s.thresholds.FuelPriceIncrease; detected {
			probability = math.Min(increase/0.3, 1)
			impact = math.Min(increase*150, 100)
			subCategory = "Fuel Costs"
		}
	case "geopolitical_risk_index":
		if detected = forecasted > s.thresholds.GeopoliticalRisk; detected {
			probability = math.Min(forecasted/10, 1)
			impact = math.Min(forecasted*10, 100)
			subCategory = "Geopolitical"
		}
	}

	if !detected {
		return notDetected()
	}

	probability = clamp(probability, 0, 1)
	impact = clamp(impact, 0, 100)
	urgency := math.Max(100-float64(timelineDays), 0)

	score := s.Composite(impact, probability, urgency, 0.5)
	return model.RiskScore{
		Detected:    true,
		Score:       round2(score),
		Priority:    s.ClassifyPriority(score),
		Probability: round2(probability),
		Impact:      round2(impact),
		Urgency:     round2(urgency),
		SubCategory: subCategory,
		Metrics: []model.ForecastedMetric{{
			MetricName: factorType,
			Forecasted: round2(forecasted),
			Baseline:   round2(historical),
		}},
	}
}

func notDetected() model.RiskScore {
	return model.RiskScore{Priority: model.PriorityLow}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// safeDiv returns num/den, or fallback when the denominator is zero.
func safeDiv(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return num / den
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
