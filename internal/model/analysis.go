package model

import (
	"time"
)

// AnalysisRequest is the caller-facing input to a risk analysis run.
// Zero values mean "use configured defaults"; ApplyDefaults resolves them.
type AnalysisRequest struct {
	Modules            []Module `json:"modules,omitempty" validate:"omitempty,dive,oneof=suppliers manufacturing inventory demand transportation external"`
	RiskThreshold      *float64 `json:"risk_threshold,omitempty" validate:"omitempty,min=0,max=100"`
	IncludeMitigations *bool    `json:"include_mitigations,omitempty"`
}

// ApplyDefaults fills unset fields from the configured defaults and puts
// the requested modules into canonical order, dropping duplicates.
func (r *AnalysisRequest) ApplyDefaults(threshold float64, includeMitigations bool) {
	if len(r.Modules) == 0 {
		r.Modules = AllModules()
	} else {
		requested := make(map[Module]bool, len(r.Modules))
		for _, m := range r.Modules {
			requested[m] = true
		}
		ordered := make([]Module, 0, len(requested))
		for _, m := range AllModules() {
			if requested[m] {
				ordered = append(ordered, m)
			}
		}
		r.Modules = ordered
	}
	if r.RiskThreshold == nil {
		r.RiskThreshold = &threshold
	}
	if r.IncludeMitigations == nil {
		r.IncludeMitigations = &includeMitigations
	}
}

// AnalysisSummary aggregates counts over the risks that survived the
// threshold filter.
type AnalysisSummary struct {
	TotalRisks            int `json:"total_risks"`
	CriticalRisks         int `json:"critical_risks"`
	HighRisks             int `json:"high_risks"`
	MediumRisks           int `json:"medium_risks"`
	LowRisks              int `json:"low_risks"`
	TotalEntitiesAffected int `json:"total_entities_affected"`
}

// ActionRecommendation is one entry in a recommendation bucket.
type ActionRecommendation struct {
	RiskID       string       `json:"risk_id"`
	Category     RiskCategory `json:"category"`
	Action       string       `json:"action"`
	Priority     Priority     `json:"priority"`
	TimelineDays int          `json:"timeline_days"`
}

// Recommendations groups suggested actions by how soon they should start.
type Recommendations struct {
	ImmediateActions []ActionRecommendation `json:"immediate_actions"`
	ShortTermActions []ActionRecommendation `json:"short_term_actions"`
	LongTermActions  []ActionRecommendation `json:"long_term_actions"`
}

// ModuleFailure records a forecast module that produced no usable data
// during a run. Failures degrade the analysis rather than abort it.
type ModuleFailure struct {
	Module Module `json:"module"`
	Reason string `json:"reason"`
}

// AnalysisResult is the complete output of one analysis run.
type AnalysisResult struct {
	AnalysisID      string                      `json:"analysis_id"`
	GeneratedAt     time.Time                   `json:"generated_at"`
	HorizonDays     int                         `json:"forecast_horizon_days"`
	ModulesAnalyzed []Module                    `json:"modules_analyzed"`
	RiskThreshold   float64                     `json:"risk_threshold"`
	Forecasts       map[Module][]ForecastResult `json:"forecasts"`
	Risks           []RiskItem                  `json:"risks"`
	Summary         AnalysisSummary             `json:"summary"`
	Recommendations Recommendations             `json:"recommendations"`
	ModuleFailures  []ModuleFailure             `json:"module_failures,omitempty"`
}
