package model

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// RiskCategory is one of the six fixed risk categories. Each domain
// analyzer produces exactly one category.
type RiskCategory string

const (
	CategorySupplierDelays       RiskCategory = "Supplier Delays"
	CategoryProductionDelays     RiskCategory = "Production Delays"
	CategoryStockShortages       RiskCategory = "Stock Shortages"
	CategoryDemandVolatility     RiskCategory = "Demand Volatility"
	CategoryTransportationIssues RiskCategory = "Transportation Issues"
	CategoryExternalFactors      RiskCategory = "External Factors"
)

// Priority classifies a risk score into one of four ordered buckets.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// AffectedEntities lists the entities a risk touches, one slot per entity
// type. An analyzer populates only the slots its domain knows about;
// empty slots are intentional.
type AffectedEntities struct {
	Suppliers  []string `json:"suppliers"`
	Plants     []string `json:"plants"`
	Warehouses []string `json:"warehouses"`
	SKUs       []string `json:"skus"`
	Routes     []string `json:"routes"`
	Regions    []string `json:"regions"`
}

// NamespacedIDs returns every entity identifier prefixed with its entity
// type, sorted. Namespacing keeps a warehouse and a supplier that happen
// to share an identifier string from colliding when counting distinct
// affected entities.
func (a AffectedEntities) NamespacedIDs() []string {
	var ids []string
	add := func(kind string, list []string) {
		for _, id := range list {
			if id != "" {
				ids = append(ids, kind+":"+id)
			}
		}
	}
	add("supplier", a.Suppliers)
	add("plant", a.Plants)
	add("warehouse", a.Warehouses)
	add("sku", a.SKUs)
	add("route", a.Routes)
	add("region", a.Regions)
	sort.Strings(ids)
	return ids
}

// ForecastedMetric is one metric attached to a risk for audit and display.
type ForecastedMetric struct {
	MetricName string  `json:"metric_name"`
	Forecasted float64 `json:"forecasted_value"`
	Baseline   float64 `json:"baseline_value"`
	ChangePct  float64 `json:"change_percentage"`
}

// MitigationStrategy is a single remediation plan attached to a risk.
// The field bounds are a hard contract enforced on every strategy
// regardless of whether it came from the LLM or the fallback table.
type MitigationStrategy struct {
	StrategyName  string   `json:"strategy_name" validate:"required,max=100"`
	ActionSteps   []string `json:"action_steps" validate:"required,max=10,dive,max=500"`
	TimelineDays  int      `json:"timeline_days" validate:"min=1"`
	EstimatedCost float64  `json:"estimated_cost" validate:"min=0"`
	RiskReduction float64  `json:"risk_reduction" validate:"min=0,max=100"`
	Dependencies  []string `json:"dependencies" validate:"max=5,dive,max=200"`
	Pros          []string `json:"pros" validate:"max=5,dive,max=200"`
	Cons          []string `json:"cons" validate:"max=5,dive,max=200"`
}

// RiskItem is a materialized, user-facing risk. Immutable after analysis
// except for the Mitigations slice, which the mitigation stage appends to.
type RiskItem struct {
	RiskID        string               `json:"risk_id"`
	Category      RiskCategory         `json:"category"`
	SubCategories []string             `json:"sub_categories"`
	Impact        string               `json:"impact"`
	Severity      Priority             `json:"severity"`
	Probability   float64              `json:"probability"`
	RiskScore     float64              `json:"risk_score"`
	Priority      Priority             `json:"priority"`
	TimelineDays  int                  `json:"timeline_days"`
	Affected      AffectedEntities     `json:"affected_entities"`
	Metrics       []ForecastedMetric   `json:"forecasted_metrics"`
	RootCauses    []string             `json:"root_causes"`
	Mitigations   []MitigationStrategy `json:"mitigations"`
}

// NewRiskID generates a unique risk identifier of the form R-1A2B3C4D.
func NewRiskID() string {
	return "R-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// NewAnalysisID generates a unique analysis identifier of the form
// A-1A2B3C4D5E6F.
func NewAnalysisID() string {
	return "A-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// RiskCategoryInfo describes a risk category for the metadata endpoint.
type RiskCategoryInfo struct {
	ID          string       `json:"id"`
	Name        RiskCategory `json:"name"`
	Description string       `json:"description"`
	ImpactTypes []string     `json:"impact_types"`
}

// RiskCategories returns the catalog of risk categories.
func RiskCategories() []RiskCategoryInfo {
	return []RiskCategoryInfo{
		{ID: "supplier_delays", Name: CategorySupplierDelays,
			Description: "Risks related to supplier lead time increases",
			ImpactTypes: []string{"Production Delays", "Stockouts"}},
		{ID: "production_delays", Name: CategoryProductionDelays,
			Description: "Risks related to manufacturing capacity and downtime",
			ImpactTypes: []string{"Reduced Output", "Delivery Delays"}},
		{ID: "stock_shortages", Name: CategoryStockShortages,
			Description: "Risks related to inventory levels below safety stock",
			ImpactTypes: []string{"Stockouts", "Lost Sales"}},
		{ID: "demand_volatility", Name: CategoryDemandVolatility,
			Description: "Risks related to high demand uncertainty",
			ImpactTypes: []string{"Planning Difficulty", "Overstock/Understock"}},
		{ID: "transportation_issues", Name: CategoryTransportationIssues,
			Description: "Risks related to transit delays and carrier issues",
			ImpactTypes: []string{"Delivery Delays", "Cost Increases"}},
		{ID: "external_factors", Name: CategoryExternalFactors,
			Description: "Risks from weather, tariffs, and other external events",
			ImpactTypes: []string{"Supply Chain Disruption", "Cost Increases"}},
	}
}

// ModuleInfo describes a forecast module for the metadata endpoint.
type ModuleInfo struct {
	ID          Module `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModuleCatalog returns the catalog of forecast modules.
func ModuleCatalog() []ModuleInfo {
	return []ModuleInfo{
		{ID: ModuleSuppliers, Name: "Supplier Lead Times", Description: "Forecast supplier delivery lead times"},
		{ID: ModuleManufacturing, Name: "Manufacturing Production", Description: "Forecast production capacity and downtime"},
		{ID: ModuleInventory, Name: "Inventory Levels", Description: "Forecast warehouse stock levels"},
		{ID: ModuleDemand, Name: "Customer Demand", Description: "Forecast customer order volumes"},
		{ID: ModuleTransportation, Name: "Transportation", Description: "Forecast transit times and delivery performance"},
		{ID: ModuleExternal, Name: "External Factors", Description: "Forecast weather, tariffs, and other external factors"},
	}
}

func (c RiskCategory) String() string { return string(c) }

func (p Priority) String() string { return string(p) }
