package risk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yosoku-ai/yosoku/internal/model"
)

func riskWith(id string, score float64, priority model.Priority, timeline int) model.RiskItem {
	return model.RiskItem{
		RiskID:       id,
		Category:     model.CategorySupplierDelays,
		Impact:       "Production Delays",
		RiskScore:    score,
		Priority:     priority,
		TimelineDays: timeline,
	}
}

func TestAggregate_FilterAndSort(t *testing.T) {
	risks := []model.RiskItem{
		riskWith("R-1", 55, model.PriorityMedium, 45),
		riskWith("R-2", 92, model.PriorityCritical, 45),
		riskWith("R-3", 30, model.PriorityLow, 45),
		riskWith("R-4", 71, model.PriorityHigh, 45),
	}

	got := Aggregate(risks, 50)
	require.Len(t, got, 3)
	assert.Equal(t, "R-2", got[0].RiskID)
	assert.Equal(t, "R-4", got[1].RiskID)
	assert.Equal(t, "R-1", got[2].RiskID)
}

func TestAggregate_StableOnTies(t *testing.T) {
	risks := []model.RiskItem{
		riskWith("R-A", 60, model.PriorityMedium, 45),
		riskWith("R-B", 60, model.PriorityMedium, 45),
		riskWith("R-C", 60, model.PriorityMedium, 45),
	}
	got := Aggregate(risks, 0)
	require.Len(t, got, 3)
	assert.Equal(t, "R-A", got[0].RiskID)
	assert.Equal(t, "R-B", got[1].RiskID)
	assert.Equal(t, "R-C", got[2].RiskID)
}

func TestAggregate_HigherThresholdIsSubset(t *testing.T) {
	var risks []model.RiskItem
	for i := 0; i < 20; i++ {
		risks = append(risks, riskWith(fmt.Sprintf("R-%02d", i), float64(i*5), model.PriorityLow, 45))
	}

	loose := Aggregate(risks, 30)
	strict := Aggregate(risks, 70)

	looseIDs := make(map[string]bool)
	for _, r := range loose {
		looseIDs[r.RiskID] = true
	}
	for _, r := range strict {
		assert.True(t, looseIDs[r.RiskID], "strict result %s missing from loose result", r.RiskID)
	}
}

func TestAggregate_BoundaryInclusive(t *testing.T) {
	got := Aggregate([]model.RiskItem{riskWith("R-1", 50, model.PriorityMedium, 45)}, 50)
	assert.Len(t, got, 1)
}

func TestSummarize(t *testing.T) {
	risks := []model.RiskItem{
		{Priority: model.PriorityCritical, Affected: model.AffectedEntities{Suppliers: []string{"S1"}}},
		{Priority: model.PriorityCritical, Affected: model.AffectedEntities{Suppliers: []string{"S1"}, Regions: []string{"EU"}}},
		{Priority: model.PriorityHigh, Affected: model.AffectedEntities{Warehouses: []string{"W1"}}},
		{Priority: model.PriorityMedium},
		{Priority: model.PriorityLow},
	}

	got := Summarize(risks)
	assert.Equal(t, 5, got.TotalRisks)
	assert.Equal(t, 2, got.CriticalRisks)
	assert.Equal(t, 1, got.HighRisks)
	assert.Equal(t, 1, got.MediumRisks)
	assert.Equal(t, 1, got.LowRisks)
	assert.Equal(t, 3, got.TotalEntitiesAffected) // S1, EU, W1
}

func TestSummarize_NamespacedEntityUnion(t *testing.T) {
	// A supplier and a plant sharing the identifier string stay distinct.
	risks := []model.RiskItem{
		{Priority: model.PriorityHigh, Affected: model.AffectedEntities{Suppliers: []string{"X1"}}},
		{Priority: model.PriorityHigh, Affected: model.AffectedEntities{Plants: []string{"X1"}}},
	}
	assert.Equal(t, 2, Summarize(risks).TotalEntitiesAffected)
}

func TestRecommend_Buckets(t *testing.T) {
	risks := []model.RiskItem{
		riskWith("R-1", 95, model.PriorityCritical, 30), // priority gate wins over timeline
		riskWith("R-2", 40, model.PriorityLow, 5),       // timeline gate fires independently
		riskWith("R-3", 75, model.PriorityHigh, 45),
		riskWith("R-4", 55, model.PriorityMedium, 20),
		riskWith("R-5", 52, model.PriorityMedium, 45),
	}

	rec := Recommend(risks)

	require.Len(t, rec.ImmediateActions, 2)
	assert.Equal(t, "R-1", rec.ImmediateActions[0].RiskID)
	assert.Equal(t, "R-2", rec.ImmediateActions[1].RiskID)
	assert.Equal(t, "Address Supplier Delays: Production Delays", rec.ImmediateActions[0].Action)

	require.Len(t, rec.ShortTermActions, 2)
	assert.Equal(t, "Monitor and plan for Supplier Delays", rec.ShortTermActions[0].Action)

	require.Len(t, rec.LongTermActions, 1)
	assert.Equal(t, "Prepare contingency for Supplier Delays", rec.LongTermActions[0].Action)
}

func TestRecommend_BucketCap(t *testing.T) {
	var risks []model.RiskItem
	for i := 0; i < 8; i++ {
		risks = append(risks, riskWith(fmt.Sprintf("RC-%d", i), 95, model.PriorityCritical, 45))
		risks = append(risks, riskWith(fmt.Sprintf("RH-%d", i), 75, model.PriorityHigh, 45))
		risks = append(risks, riskWith(fmt.Sprintf("RL-%d", i), 40, model.PriorityLow, 60))
	}

	rec := Recommend(risks)
	assert.Len(t, rec.ImmediateActions, 5)
	assert.Len(t, rec.ShortTermActions, 5)
	assert.Len(t, rec.LongTermActions, 5)
	// Ranked order survives truncation.
	assert.Equal(t, "RC-0", rec.ImmediateActions[0].RiskID)
	assert.Equal(t, "RC-4", rec.ImmediateActions[4].RiskID)
}
