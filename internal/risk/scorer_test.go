package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yosoku-ai/yosoku/internal/config"
	"github.com/yosoku-ai/yosoku/internal/model"
)

func testScorer() *Scorer {
	return NewScorer(config.Thresholds{
		SupplierLeadTimeMultiplier: 1.2,
		CapacityUtilization:        0.95,
		DowntimeIncrease:           0.2,
		DemandVolatility:           0.3,
		TransitTimeMultiplier:      1.3,
		WeatherSeverity:            7,
		TariffIncrease:             0.1,
		PortCongestion:             30,
		FuelPriceIncrease:          0.15,
		GeopoliticalRisk:           7,
	}, config.PriorityBoundaries{Critical: 90, High: 70, Medium: 50})
}

func TestComposite(t *testing.T) {
	s := testScorer()

	tests := []struct {
		name                                  string
		impact, probability, urgency, readiness float64
		want                                  float64
	}{
		{"all maxed", 100, 1, 100, 1, 100},
		{"midpoint", 50, 0.5, 50, 1, 50},
		{"readiness halves divide up", 50, 0.5, 50, 0.5, 100},
		{"readiness floor at 0.1", 5, 0.05, 5, 0.01, 50},
		{"zero everything", 0, 0, 0, 1, 0},
		{"inputs clamped", 200, 2, 200, 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Composite(tt.impact, tt.probability, tt.urgency, tt.readiness)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestComposite_AlwaysInRange(t *testing.T) {
	s := testScorer()
	for _, impact := range []float64{-10, 0, 33, 100, 500} {
		for _, prob := range []float64{-1, 0, 0.4, 1, 3} {
			for _, urgency := range []float64{-5, 0, 55, 100, 200} {
				for _, readiness := range []float64{-1, 0, 0.1, 0.5, 1, 2} {
					got := s.Composite(impact, prob, urgency, readiness)
					assert.GreaterOrEqual(t, got, 0.0)
					assert.LessOrEqual(t, got, 100.0)
				}
			}
		}
	}
}

func TestClassifyPriority(t *testing.T) {
	s := testScorer()

	tests := []struct {
		score float64
		want  model.Priority
	}{
		{100, model.PriorityCritical},
		{90, model.PriorityCritical}, // boundary is inclusive
		{89.99, model.PriorityHigh},
		{70, model.PriorityHigh},
		{69.99, model.PriorityMedium},
		{50, model.PriorityMedium},
		{49.99, model.PriorityLow},
		{0, model.PriorityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.ClassifyPriority(tt.score), "score %v", tt.score)
	}
}

func TestSupplierRisk_DetectionGate(t *testing.T) {
	s := testScorer()

	// 13/10 = 1.3 is above the 1.2 multiplier.
	detected := s.SupplierRisk(13, 10, 1, 30, 0.9)
	require.True(t, detected.Detected)
	assert.Greater(t, detected.Score, 0.0)
	assert.Equal(t, 1.3, detected.IncreaseRatio)
	require.Len(t, detected.Metrics, 1)
	assert.Equal(t, "lead_time_days", detected.Metrics[0].MetricName)
	assert.InDelta(t, 30.0, detected.Metrics[0].ChangePct, 0.01)

	// 11/10 = 1.1 is below the multiplier: a hard gate, not a low score.
	clear := s.SupplierRisk(11, 10, 1, 30, 0.9)
	assert.False(t, clear.Detected)
	assert.Zero(t, clear.Score)
	assert.Equal(t, model.PriorityLow, clear.Priority)
	assert.Zero(t, clear.Probability)
	assert.Zero(t, clear.Impact)
}

func TestSupplierRisk_ZeroHistoricalAvg(t *testing.T) {
	s := testScorer()
	// Ratio falls back to 1.0, which never crosses the gate.
	got := s.SupplierRisk(13, 0, 1, 30, 0.9)
	assert.False(t, got.Detected)
}

func TestSupplierRisk_LowOnTimeRateRaisesScore(t *testing.T) {
	s := testScorer()
	reliable := s.SupplierRisk(13, 10, 1, 30, 0.95)
	flaky := s.SupplierRisk(13, 10, 1, 30, 0.5)
	assert.Greater(t, flaky.Score, reliable.Score)
}

func TestProductionRisk(t *testing.T) {
	s := testScorer()

	t.Run("bottleneck only", func(t *testing.T) {
		got := s.ProductionRisk(0.98, 5, 5, 45)
		require.True(t, got.Detected)
		assert.True(t, got.BottleneckRisk)
		assert.False(t, got.DowntimeRisk)
	})

	t.Run("downtime only", func(t *testing.T) {
		got := s.ProductionRisk(0.80, 8, 5, 45)
		require.True(t, got.Detected)
		assert.False(t, got.BottleneckRisk)
		assert.True(t, got.DowntimeRisk)
		assert.InDelta(t, 60.0, got.DowntimeIncreasePct, 0.01)
	})

	t.Run("both compound", func(t *testing.T) {
		single := s.ProductionRisk(0.98, 5, 5, 45)
		both := s.ProductionRisk(0.98, 8, 5, 45)
		assert.Greater(t, both.Score, single.Score)
	})

	t.Run("neither", func(t *testing.T) {
		got := s.ProductionRisk(0.80, 5, 5, 45)
		assert.False(t, got.Detected)
	})

	t.Run("zero historical downtime", func(t *testing.T) {
		// Increase ratio falls back to 0: only utilization can trigger.
		got := s.ProductionRisk(0.80, 8, 0, 45)
		assert.False(t, got.Detected)
	})
}

func TestInventoryRisk(t *testing.T) {
	s := testScorer()

	t.Run("below safety stock detects regardless of demand", func(t *testing.T) {
		got := s.InventoryRisk(50, 100, 0, 40, 45)
		require.True(t, got.Detected)
		assert.True(t, got.ShortageRisk)
	})

	t.Run("healthy inventory with covered demand is clear", func(t *testing.T) {
		got := s.InventoryRisk(150, 100, 80, 120, 45)
		assert.False(t, got.Detected)
	})

	t.Run("demand above inventory lower bound detects", func(t *testing.T) {
		got := s.InventoryRisk(150, 100, 130, 120, 45)
		require.True(t, got.Detected)
		assert.False(t, got.ShortageRisk)
		assert.True(t, got.DemandExceedsSupply)
	})
}

func TestDemandVolatilityRisk(t *testing.T) {
	s := testScorer()

	// Width 40 against yhat 100 is 40% volatility, above the 30% gate.
	got := s.DemandVolatilityRisk(100, 120, 80, 60)
	require.True(t, got.Detected)
	assert.InDelta(t, 40.0, got.VolatilityPct, 0.01)

	// Width 20 is 20%: clear.
	clear := s.DemandVolatilityRisk(100, 110, 90, 60)
	assert.False(t, clear.Detected)

	// Zero yhat means volatility cannot be computed: clear.
	zero := s.DemandVolatilityRisk(0, 10, -10, 60)
	assert.False(t, zero.Detected)
}

func TestTransportationRisk(t *testing.T) {
	s := testScorer()

	got := s.TransportationRisk(7, 5, 45, 0.85) // ratio 1.4 > 1.3
	require.True(t, got.Detected)
	require.Len(t, got.Metrics, 1)
	assert.InDelta(t, 40.0, got.Metrics[0].ChangePct, 0.01)

	clear := s.TransportationRisk(6, 5, 45, 0.85) // ratio 1.2
	assert.False(t, clear.Detected)
}

func TestExternalFactorRisk(t *testing.T) {
	s := testScorer()

	tests := []struct {
		name        string
		factorType  string
		forecasted  float64
		historical  float64
		detected    bool
		subCategory string
	}{
		{"severe weather", "weather_severity_index", 8.5, 5, true, "Weather"},
		{"mild weather", "weather_severity_index", 6, 5, false, ""},
		{"tariff jump", "tariff_rate", 0.24, 0.2, true, "Trade/Tariffs"},
		{"tariff stable", "tariff_rate", 0.21, 0.2, false, ""},
		{"congested port", "port_congestion_index", 45, 20, true, "Port Congestion"},
		{"open port", "port_congestion_index", 25, 20, false, ""},
		{"fuel spike", "fuel_price_usd", 4.0, 3.0, true, "Fuel Costs"},
		{"fuel stable", "fuel_price_usd", 3.2, 3.0, false, ""},
		{"geopolitical tension", "geopolitical_risk_index", 8, 5, true, "Geopolitical"},
		{"geopolitical calm", "geopolitical_risk_index", 5, 5, false, ""},
		{"unknown factor", "lunar_phase", 99, 1, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.ExternalFactorRisk(tt.factorType, tt.forecasted, tt.historical, 45)
			assert.Equal(t, tt.detected, got.Detected)
			if tt.detected {
				assert.Equal(t, tt.subCategory, got.SubCategory)
				assert.Greater(t, got.Score, 0.0)
			}
		})
	}
}
