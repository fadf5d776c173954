package model

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRiskID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^R-[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRiskID()
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "duplicate risk id %s", id)
		seen[id] = true
	}
}

func TestNewAnalysisID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^A-[0-9A-F]{12}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, pattern, NewAnalysisID())
	}
}

func TestApplyDefaults_Empty(t *testing.T) {
	var req AnalysisRequest
	req.ApplyDefaults(50, true)

	assert.Equal(t, AllModules(), req.Modules)
	require.NotNil(t, req.RiskThreshold)
	assert.Equal(t, 50.0, *req.RiskThreshold)
	require.NotNil(t, req.IncludeMitigations)
	assert.True(t, *req.IncludeMitigations)
}

func TestApplyDefaults_CanonicalOrderAndDedup(t *testing.T) {
	req := AnalysisRequest{
		Modules: []Module{ModuleExternal, ModuleSuppliers, ModuleExternal, ModuleInventory},
	}
	req.ApplyDefaults(50, true)

	assert.Equal(t, []Module{ModuleSuppliers, ModuleInventory, ModuleExternal}, req.Modules)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	threshold := 75.0
	include := false
	req := AnalysisRequest{RiskThreshold: &threshold, IncludeMitigations: &include}
	req.ApplyDefaults(50, true)

	assert.Equal(t, 75.0, *req.RiskThreshold)
	assert.False(t, *req.IncludeMitigations)
}

func TestModuleValid(t *testing.T) {
	for _, m := range AllModules() {
		assert.True(t, m.Valid(), "module %s", m)
	}
	assert.False(t, Module("warehouse").Valid())
	assert.False(t, Module("").Valid())
}

func TestNamespacedIDs(t *testing.T) {
	a := AffectedEntities{
		Suppliers:  []string{"S001"},
		Warehouses: []string{"WH-EAST", ""},
		SKUs:       []string{"SKU-1", "SKU-2"},
	}
	assert.Equal(t, []string{
		"sku:SKU-1",
		"sku:SKU-2",
		"supplier:S001",
		"warehouse:WH-EAST",
	}, a.NamespacedIDs())
}

func TestNamespacedIDs_DisambiguatesAcrossTypes(t *testing.T) {
	// Same raw identifier in two slots must count as two entities.
	a := AffectedEntities{Suppliers: []string{"X1"}, Plants: []string{"X1"}}
	assert.Len(t, a.NamespacedIDs(), 2)
}

func TestValidateMitigationStrategy(t *testing.T) {
	valid := MitigationStrategy{
		StrategyName:  "Qualify backup supplier",
		ActionSteps:   []string{"Identify candidates", "Run trial orders"},
		TimelineDays:  30,
		EstimatedCost: 50000,
		RiskReduction: 40,
	}
	require.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*MitigationStrategy)
	}{
		{"empty name", func(s *MitigationStrategy) { s.StrategyName = "" }},
		{"zero timeline", func(s *MitigationStrategy) { s.TimelineDays = 0 }},
		{"negative cost", func(s *MitigationStrategy) { s.EstimatedCost = -1 }},
		{"reduction above 100", func(s *MitigationStrategy) { s.RiskReduction = 101 }},
		{"too many steps", func(s *MitigationStrategy) {
			s.ActionSteps = make([]string, 11)
			for i := range s.ActionSteps {
				s.ActionSteps[i] = "step"
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.Error(t, Validate(s))
		})
	}
}

func TestForecastResultHelpers(t *testing.T) {
	f := ForecastResult{Points: []ForecastPoint{
		{Yhat: 10, Lower: 8, Upper: 12},
		{Yhat: 20, Lower: 14, Upper: 26},
	}}

	assert.InDelta(t, 8.0, f.AvgIntervalWidth(), 1e-9)
	assert.InDelta(t, 8.0, f.MinLower(), 1e-9)
	assert.InDelta(t, 26.0, f.MaxUpper(), 1e-9)

	yhat, lower, upper := f.Means()
	assert.InDelta(t, 15.0, yhat, 1e-9)
	assert.InDelta(t, 11.0, lower, 1e-9)
	assert.InDelta(t, 19.0, upper, 1e-9)

	var empty ForecastResult
	assert.Zero(t, empty.AvgIntervalWidth())
	assert.False(t, empty.Failed())
	assert.True(t, ForecastResult{Err: "insufficient data"}.Failed())
}
