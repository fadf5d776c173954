package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yosoku-ai/yosoku/internal/dataset"
	"github.com/yosoku-ai/yosoku/internal/model"
	"github.com/yosoku-ai/yosoku/internal/service/analysis"
	"github.com/yosoku-ai/yosoku/internal/storage"
)

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	analysisSvc *analysis.Service
	store       *dataset.Store
	db          *storage.DB
	logger      *slog.Logger
	version     string
	minPoints   int
	maxBody     int64
	started     time.Time
}

// HandlersDeps holds everything needed to construct Handlers.
// DB may be nil when no archive is configured.
type HandlersDeps struct {
	AnalysisSvc *analysis.Service
	Store       *dataset.Store
	DB          *storage.DB
	Logger      *slog.Logger
	Version     string
	MinPoints   int
	MaxBody     int64
}

// NewHandlers creates the handler set.
func NewHandlers(deps HandlersDeps) *Handlers {
	return &Handlers{
		analysisSvc: deps.AnalysisSvc,
		store:       deps.Store,
		db:          deps.DB,
		logger:      deps.Logger,
		version:     deps.Version,
		minPoints:   deps.MinPoints,
		maxBody:     deps.MaxBody,
		started:     time.Now(),
	}
}

// HandleCreateAnalysis runs a risk analysis.
// An empty body runs all modules with the configured defaults.
func (h *Handlers) HandleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var req model.AnalysisRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if err := model.Validate(req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	result, err := h.analysisSvc.Run(r.Context(), req)
	if errors.Is(err, analysis.ErrInvalidModule) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("analysis failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "analysis failed")
		return
	}

	writeJSON(w, r, http.StatusCreated, result)
}

// HandleGetAnalysis returns a previously completed analysis.
func (h *Handlers) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysisID := r.PathValue("analysis_id")

	result, err := h.analysisSvc.Get(r.Context(), analysisID)
	if errors.Is(err, analysis.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "analysis not found: "+analysisID)
		return
	}
	if err != nil {
		h.logger.Error("get analysis failed", "analysis_id", analysisID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to load analysis")
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// HandleEntities returns the identifiers known to each loaded dataset.
func (h *Handlers) HandleEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.store.Entities())
}

// HandleModules returns the forecast module catalog.
func (h *Handlers) HandleModules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, model.ModuleCatalog())
}

// HandleRiskCategories returns the risk category catalog.
func (h *Handlers) HandleRiskCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, model.RiskCategories())
}

// HandleHealth reports service health, dataset sufficiency, and archive
// connectivity.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Datasets: h.store.Availability(h.minPoints),
		Uptime:   int64(time.Since(h.started).Seconds()),
	}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Postgres = "down"
		} else {
			resp.Postgres = "up"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, resp)
}
