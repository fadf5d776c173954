// Package yosoku is the public API for embedding the Yosoku supply chain
// risk prediction server.
//
// Consumers import this package to construct and run the server without
// forking it:
//
//	app, err := yosoku.New(
//	    yosoku.WithVersion(version),
//	    yosoku.WithLogger(logger),
//	    yosoku.WithDataDir("/srv/yosoku/data"),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: yosoku (root) imports
// internal/*, but internal/* never imports yosoku (root). Extension
// interfaces (StrategyGenerator) use only stdlib types; adapters that
// bridge them to internal implementations live here because this is the
// only file that sees both sides of the boundary.
package yosoku

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

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

// App is the Yosoku server lifecycle. Construct with New(), run with Run().
// App has no public fields — use New() options to configure it.
type App struct {
	cfg           config.Config
	db            *storage.DB // nil when no DATABASE_URL is configured
	store         *dataset.Store
	analysisCache *cache.AnalysisCache
	srv           *server.Server
	otelShutdown  telemetry.Shutdown
	logger        *slog.Logger
	version       string
}

// New initialises the Yosoku server. It loads configuration, connects to
// the optional analysis archive, runs migrations, loads the datasets, and
// wires all subsystems into a ready-to-run App. It does NOT start any
// goroutines or accept HTTP connections — call Run().
func New(opts ...Option) (*App, error) {
	// Apply options.
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("yosoku starting", "version", version, "port", cfg.Port, "data_dir", cfg.DataDir)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Connect to the analysis archive. Optional: without a DATABASE_URL
	// completed analyses live only in the in-memory cache.
	var db *storage.DB
	if cfg.DatabaseURL != "" {
		db, err = storage.New(context.Background(), cfg.DatabaseURL, logger)
		if err != nil {
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("storage: %w", err)
		}
		if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
			db.Close()
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("migrations: %w", err)
		}
	} else {
		logger.Info("archive: disabled (no DATABASE_URL)")
	}

	// Load the datasets. A module whose CSV is missing or malformed is
	// recorded as degraded rather than failing construction.
	store, err := dataset.Load(cfg.DataDir, logger)
	if err != nil {
		if db != nil {
			db.Close()
		}
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("dataset: %w", err)
	}

	runner := forecast.NewRunner(store, forecast.NewBaseline(), cfg.MinDataPoints, logger)
	scorer := risk.NewScorer(cfg.Thresholds, cfg.Priorities)
	analyzer := risk.NewAnalyzer(scorer, store, logger)

	// Strategy generator: external override, else Groq when configured,
	// else the rule-based fallback catalog only.
	var generator mitigation.Generator
	switch {
	case o.generator != nil:
		generator = &generatorAdapter{gen: o.generator}
		logger.Info("mitigations: external generator")
	default:
		if groq := mitigation.NewGroqGenerator(mitigation.GroqOptions{
			APIKey:      cfg.GroqAPIKey,
			BaseURL:     cfg.GroqBaseURL,
			Model:       cfg.GroqModel,
			Temperature: cfg.GroqTemperature,
			MaxTokens:   cfg.GroqMaxTokens,
		}); groq != nil {
			generator = groq
			logger.Info("mitigations: groq LLM enabled", "model", cfg.GroqModel)
		} else {
			logger.Info("mitigations: rule-based fallback only (no GROQ_API_KEY)")
		}
	}
	mitigator := mitigation.NewService(generator, cfg.GroqMaxRetries, logger)

	analysisCache := cache.New(cfg.CacheSize, cfg.CacheTTL)

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

	return &App{
		cfg:           cfg,
		db:            db,
		store:         store,
		analysisCache: analysisCache,
		srv:           srv,
		otelShutdown:  otelShutdown,
		logger:        logger,
		version:       version,
	}, nil
}

// Handler returns the fully wired HTTP handler, including middleware.
// Useful for embedding the API under an existing mux or for testing
// without binding a port.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run starts the HTTP server and blocks until ctx is cancelled or a fatal
// server error occurs. On return, Shutdown is called automatically —
// callers should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	return a.Shutdown(context.Background())
}

// Shutdown drains in-flight HTTP requests, then stops the cache eviction
// loop and closes the archive pool and OTEL provider.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("yosoku shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, a.cfg.WriteTimeout)
	defer cancel()
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}

	a.analysisCache.Close()
	if a.db != nil {
		a.db.Close()
	}
	_ = a.otelShutdown(context.Background())

	a.logger.Info("yosoku stopped")
	return nil
}
