package model

// RiskScore is the output of one scorer invocation: the composite score,
// its components, and the domain-specific detection flags. A score with
// Detected false carries zero everywhere else; detection is a hard gate,
// not a low score.
type RiskScore struct {
	Detected    bool     `json:"risk_detected"`
	Score       float64  `json:"risk_score"`
	Priority    Priority `json:"priority"`
	Probability float64  `json:"probability"`
	Impact      float64  `json:"impact_severity"`
	Urgency     float64  `json:"urgency"`

	// Domain-specific detection detail. Only the producing scorer's
	// fields are meaningful.
	IncreaseRatio       float64 `json:"increase_ratio,omitempty"`       // supplier
	BottleneckRisk      bool    `json:"bottleneck_risk,omitempty"`      // production
	DowntimeRisk        bool    `json:"downtime_risk,omitempty"`        // production
	DowntimeIncreasePct float64 `json:"downtime_increase_pct,omitempty"`
	ShortageRisk        bool    `json:"shortage_risk,omitempty"`        // inventory
	DemandExceedsSupply bool    `json:"demand_exceeds_supply,omitempty"`
	VolatilityPct       float64 `json:"volatility,omitempty"`    // demand
	SubCategory         string  `json:"sub_category,omitempty"`  // external

	Metrics []ForecastedMetric `json:"forecasted_metrics,omitempty"`
}
