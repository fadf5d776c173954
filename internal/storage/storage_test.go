package storage_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yosoku-ai/yosoku/internal/model"
	"github.com/yosoku-ai/yosoku/internal/storage"
)

// testDB holds a shared test database connection for all tests in this package.
var testDB *storage.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "yosoku",
			"POSTGRES_PASSWORD": "yosoku",
			"POSTGRES_DB":       "yosoku",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("postgres://yosoku:yosoku@%s:%s/yosoku?sslmode=disable", host, port.Port())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	testDB, err = storage.New(ctx, dsn, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create DB: %v\n", err)
		os.Exit(1)
	}

	if err := testDB.RunMigrations(ctx, os.DirFS("../../migrations")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func sampleAnalysis(id string, generatedAt time.Time, scores ...float64) *model.AnalysisResult {
	result := &model.AnalysisResult{
		AnalysisID:      id,
		GeneratedAt:     generatedAt,
		HorizonDays:     45,
		ModulesAnalyzed: model.AllModules(),
		RiskThreshold:   50,
	}
	for i, score := range scores {
		result.Risks = append(result.Risks, model.RiskItem{
			RiskID:    fmt.Sprintf("R-%08d", i),
			Category:  model.CategorySupplierDelays,
			RiskScore: score,
			Priority:  model.PriorityHigh,
		})
	}
	return result
}

func TestSaveAndGetAnalysis(t *testing.T) {
	ctx := context.Background()

	saved := sampleAnalysis("A-TESTSAVE0001", time.Now().UTC().Truncate(time.Second), 82.5, 61.0)
	require.NoError(t, testDB.SaveAnalysis(ctx, saved))

	got, err := testDB.GetAnalysis(ctx, "A-TESTSAVE0001")
	require.NoError(t, err)
	assert.Equal(t, saved.AnalysisID, got.AnalysisID)
	assert.Equal(t, saved.HorizonDays, got.HorizonDays)
	require.Len(t, got.Risks, 2)
	assert.Equal(t, 82.5, got.Risks[0].RiskScore)
}

func TestGetAnalysis_NotFound(t *testing.T) {
	_, err := testDB.GetAnalysis(context.Background(), "A-MISSING00000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveAnalysis_UpsertReplaces(t *testing.T) {
	ctx := context.Background()

	first := sampleAnalysis("A-TESTUPSERT01", time.Now().UTC(), 40)
	require.NoError(t, testDB.SaveAnalysis(ctx, first))

	second := sampleAnalysis("A-TESTUPSERT01", time.Now().UTC(), 40, 90)
	require.NoError(t, testDB.SaveAnalysis(ctx, second))

	got, err := testDB.GetAnalysis(ctx, "A-TESTUPSERT01")
	require.NoError(t, err)
	assert.Len(t, got.Risks, 2)
}

func TestListAnalyses(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	older := sampleAnalysis("A-TESTLIST0001", now.Add(-2*time.Hour), 30)
	newer := sampleAnalysis("A-TESTLIST0002", now.Add(-1*time.Hour), 75, 20)
	require.NoError(t, testDB.SaveAnalysis(ctx, older))
	require.NoError(t, testDB.SaveAnalysis(ctx, newer))

	records, err := testDB.ListAnalyses(ctx, 100)
	require.NoError(t, err)

	var listed []storage.AnalysisRecord
	for _, rec := range records {
		if rec.AnalysisID == "A-TESTLIST0001" || rec.AnalysisID == "A-TESTLIST0002" {
			listed = append(listed, rec)
		}
	}
	require.Len(t, listed, 2)
	// Newest first.
	assert.Equal(t, "A-TESTLIST0002", listed[0].AnalysisID)
	assert.Equal(t, 2, listed[0].TotalRisks)
	assert.Equal(t, 75.0, listed[0].MaxScore)
}

func TestPruneAnalyses(t *testing.T) {
	ctx := context.Background()

	old := sampleAnalysis("A-TESTPRUNE001", time.Now().UTC().Add(-72*time.Hour), 10)
	fresh := sampleAnalysis("A-TESTPRUNE002", time.Now().UTC(), 10)
	require.NoError(t, testDB.SaveAnalysis(ctx, old))
	require.NoError(t, testDB.SaveAnalysis(ctx, fresh))

	pruned, err := testDB.PruneAnalyses(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pruned, int64(1))

	_, err = testDB.GetAnalysis(ctx, "A-TESTPRUNE001")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = testDB.GetAnalysis(ctx, "A-TESTPRUNE002")
	assert.NoError(t, err)
}
