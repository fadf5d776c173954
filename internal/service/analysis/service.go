// Package analysis orchestrates a full risk analysis run.
//
// A run forecasts every requested module, turns the forecasts into scored
// risks, attaches mitigation strategies to the highest-scoring risks, and
// assembles the summary and recommendations. Completed analyses go to the
// in-memory cache and, when Postgres is configured, the archive.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/yosoku-ai/yosoku/internal/cache"
	"github.com/yosoku-ai/yosoku/internal/forecast"
	"github.com/yosoku-ai/yosoku/internal/mitigation"
	"github.com/yosoku-ai/yosoku/internal/model"
	"github.com/yosoku-ai/yosoku/internal/risk"
	"github.com/yosoku-ai/yosoku/internal/storage"
	"github.com/yosoku-ai/yosoku/internal/telemetry"
)

// ErrNotFound is returned when a requested analysis is neither cached nor
// archived.
var ErrNotFound = errors.New("analysis: not found")

// ErrInvalidModule is returned when a request names an unknown module.
var ErrInvalidModule = errors.New("analysis: invalid module")

// Options carries the analysis policy knobs resolved from configuration.
type Options struct {
	DefaultThreshold   float64
	DefaultHorizonDays int
	MaxMitigatedRisks  int
	HorizonFor         func(module string) int
}

// Service runs analyses and serves previously completed ones.
type Service struct {
	runner    *forecast.Runner
	analyzer  *risk.Analyzer
	mitigator *mitigation.Service
	cache     *cache.AnalysisCache
	db        *storage.DB
	opts      Options
	logger    *slog.Logger

	analysisDuration metric.Float64Histogram
	moduleDuration   metric.Float64Histogram
}

// New creates an analysis service. db may be nil when no archive is
// configured; completed analyses then live only in the cache.
func New(
	runner *forecast.Runner,
	analyzer *risk.Analyzer,
	mitigator *mitigation.Service,
	analysisCache *cache.AnalysisCache,
	db *storage.DB,
	opts Options,
	logger *slog.Logger,
) *Service {
	meter := telemetry.Meter("yosoku/analysis")
	analysisDur, _ := meter.Float64Histogram("yosoku.analysis.duration",
		metric.WithDescription("Time to run a full analysis (ms)"),
		metric.WithUnit("ms"),
	)
	moduleDur, _ := meter.Float64Histogram("yosoku.module.duration",
		metric.WithDescription("Time to forecast a single module (ms)"),
		metric.WithUnit("ms"),
	)
	return &Service{
		runner:           runner,
		analyzer:         analyzer,
		mitigator:        mitigator,
		cache:            analysisCache,
		db:               db,
		opts:             opts,
		logger:           logger,
		analysisDuration: analysisDur,
		moduleDuration:   moduleDur,
	}
}

// Run executes an analysis for the requested modules and returns the
// completed result. A module whose dataset failed to load degrades to a
// recorded failure instead of aborting the run.
func (s *Service) Run(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	for _, m := range req.Modules {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidModule, m)
		}
	}
	req.ApplyDefaults(s.opts.DefaultThreshold, true)
	modules := req.Modules
	threshold := *req.RiskThreshold

	start := time.Now()
	s.logger.Info("starting analysis", "modules", len(modules), "risk_threshold", threshold)

	forecasts := make([][]model.ForecastResult, len(modules))
	failures := make([]*model.ModuleFailure, len(modules))

	g, gctx := errgroup.WithContext(ctx)
	for i, mod := range modules {
		g.Go(func() error {
			moduleStart := time.Now()
			results, err := s.runner.Run(gctx, mod, s.opts.HorizonFor(string(mod)))
			s.moduleDuration.Record(gctx, float64(time.Since(moduleStart).Milliseconds()),
				metric.WithAttributes(attribute.String("module", string(mod))))
			if err != nil {
				var modErr *forecast.ModuleError
				if errors.As(err, &modErr) {
					s.logger.Warn("module degraded", "module", mod, "reason", modErr.Reason)
					failures[i] = &model.ModuleFailure{Module: mod, Reason: modErr.Reason}
					return nil
				}
				return err
			}
			forecasts[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byModule := make(map[model.Module][]model.ForecastResult, len(modules))
	var moduleFailures []model.ModuleFailure
	for i, mod := range modules {
		if failures[i] != nil {
			moduleFailures = append(moduleFailures, *failures[i])
			continue
		}
		byModule[mod] = forecasts[i]
	}

	risks := risk.Aggregate(s.analyzeAll(modules, byModule), threshold)
	if *req.IncludeMitigations {
		s.mitigator.MitigateTop(ctx, risks, s.opts.MaxMitigatedRisks)
	}

	result := &model.AnalysisResult{
		AnalysisID:      model.NewAnalysisID(),
		GeneratedAt:     time.Now().UTC(),
		HorizonDays:     s.opts.DefaultHorizonDays,
		ModulesAnalyzed: modules,
		RiskThreshold:   threshold,
		Forecasts:       byModule,
		Risks:           risks,
		Summary:         risk.Summarize(risks),
		Recommendations: risk.Recommend(risks),
		ModuleFailures:  moduleFailures,
	}

	s.cache.Set(result.AnalysisID, result)
	if s.db != nil {
		if err := s.db.SaveAnalysis(ctx, result); err != nil {
			s.logger.Warn("failed to archive analysis", "analysis_id", result.AnalysisID, "error", err)
		}
	}

	elapsed := time.Since(start)
	s.analysisDuration.Record(ctx, float64(elapsed.Milliseconds()))
	s.logger.Info("analysis complete",
		"analysis_id", result.AnalysisID,
		"risks", len(risks),
		"module_failures", len(moduleFailures),
		"duration_ms", elapsed.Milliseconds(),
	)
	return result, nil
}

// analyzeAll turns forecasts into risks, walking modules in canonical
// order so equal-score risks later sort deterministically.
func (s *Service) analyzeAll(modules []model.Module, byModule map[model.Module][]model.ForecastResult) []model.RiskItem {
	var all []model.RiskItem
	for _, mod := range modules {
		fcs, ok := byModule[mod]
		if !ok {
			continue
		}
		horizon := s.opts.HorizonFor(string(mod))
		switch mod {
		case model.ModuleSuppliers:
			all = append(all, s.analyzer.SupplierRisks(fcs, horizon)...)
		case model.ModuleManufacturing:
			all = append(all, s.analyzer.ProductionRisks(fcs, horizon)...)
		case model.ModuleInventory:
			all = append(all, s.analyzer.InventoryRisks(fcs, byModule[model.ModuleDemand], horizon)...)
		case model.ModuleDemand:
			all = append(all, s.analyzer.DemandRisks(fcs, horizon)...)
		case model.ModuleTransportation:
			all = append(all, s.analyzer.TransportationRisks(fcs, horizon)...)
		case model.ModuleExternal:
			all = append(all, s.analyzer.ExternalRisks(fcs, horizon)...)
		}
	}
	return all
}

// Get returns a completed analysis by ID, consulting the cache before the
// archive. Returns ErrNotFound when the analysis does not exist anywhere.
func (s *Service) Get(ctx context.Context, analysisID string) (*model.AnalysisResult, error) {
	if result, ok := s.cache.Get(analysisID); ok {
		return result, nil
	}
	if s.db == nil {
		return nil, ErrNotFound
	}
	result, err := s.db.GetAnalysis(ctx, analysisID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.cache.Set(analysisID, result)
	return result, nil
}
