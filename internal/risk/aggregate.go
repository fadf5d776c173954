package risk

import (
	"fmt"
	"sort"

	"github.com/yosoku-ai/yosoku/internal/model"
)

// recommendationBucketCap limits each recommendation bucket.
const recommendationBucketCap = 5

// Aggregate filters risks below the threshold and orders the survivors
// by descending score. The sort is stable: ties keep their input order,
// which is the fixed module iteration order, so repeated runs over the
// same forecasts produce the same ranking.
func Aggregate(risks []model.RiskItem, threshold float64) []model.RiskItem {
	filtered := make([]model.RiskItem, 0, len(risks))
	for _, r := range risks {
		if r.RiskScore >= threshold {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].RiskScore > filtered[j].RiskScore
	})
	return filtered
}

// Summarize computes counts per priority and the number of distinct
// affected entities. Entities are counted under type-namespaced keys so
// a supplier and a warehouse sharing an identifier string stay distinct.
func Summarize(risks []model.RiskItem) model.AnalysisSummary {
	summary := model.AnalysisSummary{TotalRisks: len(risks)}
	entities := make(map[string]struct{})
	for _, r := range risks {
		switch r.Priority {
		case model.PriorityCritical:
			summary.CriticalRisks++
		case model.PriorityHigh:
			summary.HighRisks++
		case model.PriorityMedium:
			summary.MediumRisks++
		case model.PriorityLow:
			summary.LowRisks++
		}
		for _, id := range r.Affected.NamespacedIDs() {
			entities[id] = struct{}{}
		}
	}
	summary.TotalEntitiesAffected = len(entities)
	return summary
}

// Recommend buckets risks into immediate, short-term, and long-term
// actions. CRITICAL priority or a timeline within a week is immediate;
// HIGH or within three weeks is short-term; everything else is long-term.
// Risks must already be ranked; each bucket keeps its first five entries.
func Recommend(risks []model.RiskItem) model.Recommendations {
	var rec model.Recommendations
	for _, r := range risks {
		entry := model.ActionRecommendation{
			RiskID:       r.RiskID,
			Category:     r.Category,
			Priority:     r.Priority,
			TimelineDays: r.TimelineDays,
		}
		switch {
		case r.Priority == model.PriorityCritical || r.TimelineDays <= 7:
			entry.Action = fmt.Sprintf("Address %s: %s", r.Category, r.Impact)
			rec.ImmediateActions = append(rec.ImmediateActions, entry)
		case r.Priority == model.PriorityHigh || r.TimelineDays <= 21:
			entry.Action = fmt.Sprintf("Monitor and plan for %s", r.Category)
			rec.ShortTermActions = append(rec.ShortTermActions, entry)
		default:
			entry.Action = fmt.Sprintf("Prepare contingency for %s", r.Category)
			rec.LongTermActions = append(rec.LongTermActions, entry)
		}
	}
	rec.ImmediateActions = capBucket(rec.ImmediateActions)
	rec.ShortTermActions = capBucket(rec.ShortTermActions)
	rec.LongTermActions = capBucket(rec.LongTermActions)
	return rec
}

func capBucket(bucket []model.ActionRecommendation) []model.ActionRecommendation {
	if len(bucket) > recommendationBucketCap {
		return bucket[:recommendationBucketCap]
	}
	return bucket
}
