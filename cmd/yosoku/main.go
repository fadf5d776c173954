package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yosoku-ai/yosoku/internal/cache"
	"github.com/yosoku-ai/yosoku/internal/config"
	"github.com/yosoku-ai/yosoku/internal/dataset"
	"github.com/yosoku-ai/yosoku/internal/forecast"
	"github.com/yosoku-ai/yosoku/internal/mitigation"
	"github.com/yosoku-ai/yosoku/internal/risk"
	"github.com/yosoku-ai/yosoku/internal/server"
	"github.com/yosoku-ai/yosoku/internal/service/analysis"
	"github.com/yosoku-ai/yosoku/internal/storage"
	"github.com/yosoku-ai/yosoku/internal/telemetry"
	"github.com/yosoku-ai/yosoku/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("YOSOKU_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("yosoku starting", "version", version, "port", cfg.Port, "data_dir", cfg.DataDir)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to the analysis archive. Optional: without a DATABASE_URL
	// completed analyses live only in the in-memory cache.
	var db *storage.DB
	if cfg.DatabaseURL != "" {
		db, err = storage.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx, migrations.FS); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	} else {
		logger.Info("archive: disabled (no DATABASE_URL)")
	}

	// Load the datasets. A module whose CSV is missing or malformed is
	// recorded as degraded rather than failing startup.
	store, err := dataset.Load(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	for _, status := range store.Availability(cfg.MinDataPoints) {
		logger.Info("dataset loaded", "module", status.Module, "rows", status.Rows, "sufficient", status.Sufficient)
	}

	runner := forecast.NewRunner(store, forecast.NewBaseline(), cfg.MinDataPoints, logger)
	scorer := risk.NewScorer(cfg.Thresholds, cfg.Priorities)
	analyzer := risk.NewAnalyzer(scorer, store, logger)

	groq := mitigation.NewGroqGenerator(mitigation.GroqOptions{
		APIKey:      cfg.GroqAPIKey,
		BaseURL:     cfg.GroqBaseURL,
		Model:       cfg.GroqModel,
		Temperature: cfg.GroqTemperature,
		MaxTokens:   cfg.GroqMaxTokens,
	})
	var generator mitigation.Generator
	if groq != nil {
		generator = groq
		logger.Info("mitigations: groq LLM enabled", "model", cfg.GroqModel)
	} else {
		logger.Info("mitigations: rule-based fallback only (no GROQ_API_KEY)")
	}
	mitigator := mitigation.NewService(generator, cfg.GroqMaxRetries, logger)

	analysisCache := cache.New(cfg.CacheSize, cfg.CacheTTL)
	defer analysisCache.Close()

	analysisSvc := analysis.New(runner, analyzer, mitigator, analysisCache, db, analysis.Options{
		DefaultThreshold:   cfg.DefaultRiskThreshold,
		DefaultHorizonDays: cfg.DefaultHorizonDays,
		MaxMitigatedRisks:  cfg.MaxMitigatedRisks,
		HorizonFor:         cfg.HorizonFor,
	}, logger)

	srv := server.New(server.ServerConfig{
		AnalysisSvc:         analysisSvc,
		Store:               store,
		DB:                  db,
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MinDataPoints:       cfg.MinDataPoints,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.WriteTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("yosoku stopped")
	return nil
}
