package mitigation

import (
	"github.com/yosoku-ai/yosoku/internal/model"
)

// costMultiplier scales fallback strategy costs by how urgent the risk is.
func costMultiplier(p model.Priority) float64 {
	switch p {
	case model.PriorityCritical:
		return 2.0
	case model.PriorityHigh:
		return 1.5
	case model.PriorityMedium:
		return 1.0
	case model.PriorityLow:
		return 0.5
	default:
		return 1.0
	}
}

// Fallback returns the rule-based strategy catalog for a risk's category.
// Costs scale with priority; everything else is fixed so results stay
// reproducible when no LLM is in play.
func Fallback(risk model.RiskItem) []model.MitigationStrategy {
	mult := costMultiplier(risk.Priority)

	switch risk.Category {
	case model.CategorySupplierDelays:
		return supplierFallback(mult)
	case model.CategoryProductionDelays:
		return productionFallback(mult)
	case model.CategoryStockShortages:
		return inventoryFallback(mult)
	case model.CategoryTransportationIssues:
		return transportationFallback(mult)
	default:
		return defaultFallback(mult)
	}
}

func supplierFallback(mult float64) []model.MitigationStrategy {
	return []model.MitigationStrategy{
		{
			StrategyName: "Activate Backup Supplier",
			ActionSteps: []string{
				"Identify and contact qualified backup suppliers",
				"Request expedited quotes and capacity confirmation",
				"Negotiate emergency supply agreements",
				"Place initial trial orders to verify quality",
				"Establish regular communication channels",
			},
			TimelineDays:  5,
			EstimatedCost: 45000 * mult,
			RiskReduction: 60,
			Dependencies:  []string{"Pre-qualified supplier list", "Budget approval"},
			Pros:          []string{"Immediate capacity increase", "Supply diversification"},
			Cons:          []string{"Higher unit costs", "Quality verification needed"},
		},
		{
			StrategyName: "Build Safety Stock Buffer",
			ActionSteps: []string{
				"Calculate optimal safety stock levels",
				"Place expedited orders with current supplier",
				"Arrange additional warehouse capacity",
				"Implement inventory monitoring system",
			},
			TimelineDays:  14,
			EstimatedCost: 75000 * mult,
			RiskReduction: 40,
			Dependencies:  []string{"Warehouse capacity", "Working capital"},
			Pros:          []string{"Buffers against future delays", "No supplier change"},
			Cons:          []string{"Increased inventory costs", "Capital tied up"},
		},
		{
			StrategyName: "Negotiate Priority Allocation",
			ActionSteps: []string{
				"Schedule meeting with supplier management",
				"Present volume commitment projections",
				"Negotiate priority production slots",
				"Document agreements in contract amendment",
			},
			TimelineDays:  7,
			EstimatedCost: 15000 * mult,
			RiskReduction: 30,
			Dependencies:  []string{"Supplier relationship", "Volume commitment"},
			Pros:          []string{"Maintains partnership", "Lower cost option"},
			Cons:          []string{"Dependent on supplier", "May not guarantee delivery"},
		},
	}
}

func productionFallback(mult float64) []model.MitigationStrategy {
	return []model.MitigationStrategy{
		{
			StrategyName: "Implement Overtime Production",
			ActionSteps: []string{
				"Assess equipment capacity for extended runs",
				"Schedule additional shifts",
				"Coordinate with workforce management",
				"Monitor equipment stress levels",
			},
			TimelineDays:  3,
			EstimatedCost: 35000 * mult,
			RiskReduction: 45,
			Dependencies:  []string{"Labor availability", "Equipment condition"},
			Pros:          []string{"Quick implementation", "Uses existing assets"},
			Cons:          []string{"Higher labor costs", "Worker fatigue risk"},
		},
		{
			StrategyName: "Outsource to Contract Manufacturer",
			ActionSteps: []string{
				"Identify qualified contract manufacturers",
				"Share product specifications",
				"Conduct quality audits",
				"Transfer production batch",
			},
			TimelineDays:  21,
			EstimatedCost: 120000 * mult,
			RiskReduction: 55,
			Dependencies:  []string{"CM availability", "Quality certification"},
			Pros:          []string{"Adds capacity", "Maintains delivery"},
			Cons:          []string{"Higher costs", "Quality control challenges"},
		},
	}
}

func inventoryFallback(mult float64) []model.MitigationStrategy {
	return []model.MitigationStrategy{
		{
			StrategyName: "Expedite Inbound Shipments",
			ActionSteps: []string{
				"Identify in-transit inventory",
				"Upgrade to air freight where possible",
				"Coordinate with carriers for priority handling",
				"Track shipments in real-time",
			},
			TimelineDays:  2,
			EstimatedCost: 25000 * mult,
			RiskReduction: 35,
			Dependencies:  []string{"Carrier capacity", "Budget approval"},
			Pros:          []string{"Fast impact", "Immediate stock boost"},
			Cons:          []string{"High shipping costs", "Limited volume"},
		},
		{
			StrategyName: "Implement Demand Prioritization",
			ActionSteps: []string{
				"Segment customers by priority/value",
				"Allocate available inventory to key accounts",
				"Communicate proactively with affected customers",
				"Offer alternatives or future delivery dates",
			},
			TimelineDays:  1,
			EstimatedCost: 5000 * mult,
			RiskReduction: 25,
			Dependencies:  []string{"Customer segmentation data"},
			Pros:          []string{"Protects key relationships", "Low cost"},
			Cons:          []string{"Some customers impacted", "Revenue deferral"},
		},
	}
}

func transportationFallback(mult float64) []model.MitigationStrategy {
	return []model.MitigationStrategy{
		{
			StrategyName: "Use Alternative Carriers",
			ActionSteps: []string{
				"Contact backup carrier network",
				"Negotiate spot rates",
				"Reroute affected shipments",
				"Monitor delivery performance",
			},
			TimelineDays:  2,
			EstimatedCost: 20000 * mult,
			RiskReduction: 50,
			Dependencies:  []string{"Carrier availability"},
			Pros:          []string{"Maintains delivery schedule", "Flexible"},
			Cons:          []string{"Premium rates", "Coordination overhead"},
		},
		{
			StrategyName: "Switch Transportation Mode",
			ActionSteps: []string{
				"Evaluate air vs. ground vs. rail options",
				"Calculate cost-benefit of mode switch",
				"Book alternative transport",
				"Update tracking systems",
			},
			TimelineDays:  3,
			EstimatedCost: 40000 * mult,
			RiskReduction: 45,
			Dependencies:  []string{"Mode availability", "Cost approval"},
			Pros:          []string{"Can significantly speed delivery"},
			Cons:          []string{"Higher costs", "May not suit all products"},
		},
	}
}

// defaultFallback covers demand volatility, external factors, and any
// future category without a dedicated catalog.
func defaultFallback(mult float64) []model.MitigationStrategy {
	return []model.MitigationStrategy{
		{
			StrategyName: "Activate Contingency Plan",
			ActionSteps: []string{
				"Review existing contingency procedures",
				"Brief relevant teams",
				"Implement pre-planned mitigation steps",
				"Monitor situation closely",
			},
			TimelineDays:  1,
			EstimatedCost: 10000 * mult,
			RiskReduction: 30,
			Dependencies:  []string{"Documented contingency plan"},
			Pros:          []string{"Rapid response", "Pre-approved actions"},
			Cons:          []string{"May not cover all scenarios"},
		},
		{
			StrategyName: "Increase Monitoring and Communication",
			ActionSteps: []string{
				"Set up enhanced monitoring for affected areas",
				"Establish daily status calls with stakeholders",
				"Create situation dashboard",
				"Prepare communication templates",
			},
			TimelineDays:  1,
			EstimatedCost: 5000 * mult,
			RiskReduction: 20,
			Dependencies:  []string{"Communication tools"},
			Pros:          []string{"Early warning of changes", "Stakeholder alignment"},
			Cons:          []string{"Reactive approach", "Time investment"},
		},
		{
			StrategyName: "Hedge Risk Exposure",
			ActionSteps: []string{
				"Analyze exposure to specific risk factor",
				"Explore financial hedging options",
				"Implement contractual protections",
				"Diversify where possible",
			},
			TimelineDays:  14,
			EstimatedCost: 30000 * mult,
			RiskReduction: 35,
			Dependencies:  []string{"Financial team involvement", "Market instruments"},
			Pros:          []string{"Reduces financial impact", "Long-term protection"},
			Cons:          []string{"Complexity", "Upfront costs"},
		},
	}
}
