package server_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yosoku-ai/yosoku/internal/cache"
	"github.com/yosoku-ai/yosoku/internal/config"
	"github.com/yosoku-ai/yosoku/internal/dataset"
	"github.com/yosoku-ai/yosoku/internal/forecast"
	"github.com/yosoku-ai/yosoku/internal/mitigation"
	"github.com/yosoku-ai/yosoku/internal/model"
	"github.com/yosoku-ai/yosoku/internal/risk"
	"github.com/yosoku-ai/yosoku/internal/server"
	"github.com/yosoku-ai/yosoku/internal/service/analysis"
)

func day(i int) string {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("2006-01-02")
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var b strings.Builder
	b.WriteString("date,supplier_id,supplier_name,component_id,lead_time_days,order_quantity,on_time_delivery,supplier_region\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%s,S001,Acme Parts,C100,%d,100,0.9,APAC\n", day(i), 10+i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "supplier_lead_time.csv"), []byte(b.String()), 0o644))

	b.Reset()
	b.WriteString("date,plant_id,plant_name,sku,units_produced,production_capacity,capacity_utilization,downtime_hours,plant_region\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%s,PLANT01,Main Plant,SKU-A,900,1000,0.9,4,NA\n", day(i))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manufacturing_production.csv"), []byte(b.String()), 0o644))

	b.Reset()
	b.WriteString("date,warehouse_id,warehouse_name,sku,stock_on_hand,safety_stock,reorder_point,warehouse_region\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%s,WH-EAST,East DC,SKU-A,%d,100,150,EU\n", day(i), 500-40*i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inventory_levels.csv"), []byte(b.String()), 0o644))

	b.Reset()
	b.WriteString("date,region,sku,order_quantity\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%s,EU,SKU-A,%d\n", day(i), 100+i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customer_demand.csv"), []byte(b.String()), 0o644))

	b.Reset()
	b.WriteString("date,route_id,origin,destination,transit_time_days,on_time_delivery,carrier_name\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%s,RT-7,PLANT01,WH-EAST,%d,0.9,FastFreight\n", day(i), 5+i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transportation_data.csv"), []byte(b.String()), 0o644))

	b.Reset()
	b.WriteString("date,region,weather_severity_index\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%s,APAC,5\n", day(i))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "external_factors.csv"), []byte(b.String()), 0o644))

	return dir
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	store, err := dataset.Load(writeFixtures(t), log)
	require.NoError(t, err)

	runner := forecast.NewRunner(store, forecast.NewBaseline(), 5, log)
	scorer := risk.NewScorer(config.Thresholds{
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
	analyzer := risk.NewAnalyzer(scorer, store, log)
	analysisCache := cache.New(16, time.Minute)
	t.Cleanup(analysisCache.Close)

	svc := analysis.New(runner, analyzer, mitigation.NewService(nil, 1, log), analysisCache, nil, analysis.Options{
		DefaultThreshold:   50,
		DefaultHorizonDays: 10,
		MaxMitigatedRisks:  2,
		HorizonFor:         func(string) int { return 10 },
	}, log)

	return server.New(server.ServerConfig{
		AnalysisSvc:         svc,
		Store:               store,
		Logger:              log,
		Port:                0,
		Version:             "test",
		MinDataPoints:       5,
		MaxRequestBodyBytes: 1 << 20,
	})
}

type envelope struct {
	Data json.RawMessage    `json:"data"`
	Meta model.ResponseMeta `json:"meta"`
}

type errEnvelope struct {
	Error model.ErrorDetail  `json:"error"`
	Meta  model.ResponseMeta `json:"meta"`
}

func do(t *testing.T, s *server.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateAnalysis_EmptyBody(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/analyses", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Meta.RequestID)

	var result model.AnalysisResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Regexp(t, `^A-[0-9A-F]{12}$`, result.AnalysisID)
	assert.Len(t, result.ModulesAnalyzed, 6)
	assert.NotEmpty(t, result.Risks)
}

func TestCreateAnalysis_SubsetAndThreshold(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/analyses",
		`{"modules": ["suppliers"], "risk_threshold": 10}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var result model.AnalysisResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, []model.Module{model.ModuleSuppliers}, result.ModulesAnalyzed)
	assert.Equal(t, 10.0, result.RiskThreshold)
}

func TestCreateAnalysis_BadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"modules": [`},
		{"unknown field", `{"horizon": 99}`},
		{"invalid module", `{"modules": ["weather"]}`},
		{"threshold out of range", `{"risk_threshold": 500}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/analyses", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var env errEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)
		})
	}
}

func TestGetAnalysis(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/analyses", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var created model.AnalysisResult
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec = do(t, s, http.MethodGet, "/v1/analyses/"+created.AnalysisID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var fetched model.AnalysisResult
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.Equal(t, created.AnalysisID, fetched.AnalysisID)
}

func TestGetAnalysis_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/analyses/A-DOESNOTEXIST", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, model.ErrCodeNotFound, env.Error.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/entities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var entities model.EntityCatalog
	require.NoError(t, json.Unmarshal(env.Data, &entities))
	assert.Equal(t, []string{"S001"}, entities.Suppliers)
	assert.Equal(t, []string{"WH-EAST"}, entities.Warehouses)

	rec = do(t, s, http.MethodGet, "/v1/modules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var modules []model.ModuleInfo
	require.NoError(t, json.Unmarshal(env.Data, &modules))
	assert.Len(t, modules, 6)

	rec = do(t, s, http.MethodGet, "/v1/risk-categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var categories []model.RiskCategoryInfo
	require.NoError(t, json.Unmarshal(env.Data, &categories))
	assert.Len(t, categories, 6)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var health model.HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Empty(t, health.Postgres)
	require.Len(t, health.Datasets, 6)
	for _, ds := range health.Datasets {
		assert.True(t, ds.Sufficient, string(ds.Module))
	}
}

func TestRequestIDEcho(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-abc-123", rec.Header().Get("X-Request-ID"))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "req-abc-123", env.Meta.RequestID)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodDelete, "/v1/analyses", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
