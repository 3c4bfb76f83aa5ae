package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/perfa/internal/report"
	"github.com/wonny/perfa/pkg/logger"
	"github.com/wonny/perfa/pkg/redis"
)

// ReportSource serves the latest assembled report. Satisfied by the
// report repository in production and by fakes in tests.
type ReportSource interface {
	GetLatestReport(ctx context.Context) (*report.Report, error)
}

// ReportHandler handles analytics API endpoints
// ⭐ SSOT: report API handlers live in this struct only
type ReportHandler struct {
	source ReportSource
	cache  *redis.Cache
	logger *logger.Logger
}

// NewReportHandler creates a new report handler. cache may be nil.
func NewReportHandler(source ReportSource, cache *redis.Cache, log *logger.Logger) *ReportHandler {
	return &ReportHandler{source: source, cache: cache, logger: log}
}

// GetHorizon returns one horizon's metric and attribution row
// GET /api/v1/reports/{horizon}
func (h *ReportHandler) GetHorizon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["horizon"]

	if _, err := report.ParseHorizon(name); err != nil {
		respondError(w, http.StatusNotFound, "Unknown horizon: "+name)
		return
	}

	if h.cache != nil {
		var cached report.HorizonResult
		hit, err := h.cache.Get(ctx, redis.ReportKey(name), &cached)
		if err != nil {
			h.logger.WithError(err).Warn("Report cache read failed")
		} else if hit {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	rpt, err := h.latest(ctx, w)
	if rpt == nil || err != nil {
		return
	}

	result, ok := rpt.ByHorizon(name)
	if !ok {
		respondError(w, http.StatusNotFound, "Horizon not in report: "+name)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, redis.ReportKey(name), result, redis.TTLMedium); err != nil {
			h.logger.WithError(err).Warn("Report cache write failed")
		}
	}
	respondJSON(w, http.StatusOK, result)
}

// GetNAV returns the NAV time series of the latest report
// GET /api/v1/nav
func (h *ReportHandler) GetNAV(w http.ResponseWriter, r *http.Request) {
	rpt, err := h.latest(r.Context(), w)
	if rpt == nil || err != nil {
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"start_date":           rpt.StartDate,
		"end_date":             rpt.EndDate,
		"truncated":            rpt.Truncated,
		"nav":                  rpt.NAV,
		"cumulative":           rpt.Cumulative,
		"drawdowns":            rpt.Drawdowns,
		"monthly":              rpt.Monthly,
		"benchmark_cumulative": rpt.BenchmarkCumulative,
		"benchmark_drawdowns":  rpt.BenchmarkDrawdowns,
		"excess_cumulative":    rpt.ExcessCumulative,
	})
}

// GetAttribution returns attribution tables for one horizon
// GET /api/v1/attribution?horizon=inception
func (h *ReportHandler) GetAttribution(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("horizon")
	if name == "" {
		name = "inception"
	}
	if _, err := report.ParseHorizon(name); err != nil {
		respondError(w, http.StatusNotFound, "Unknown horizon: "+name)
		return
	}

	rpt, err := h.latest(r.Context(), w)
	if rpt == nil || err != nil {
		return
	}

	result, ok := rpt.ByHorizon(name)
	if !ok {
		respondError(w, http.StatusNotFound, "Horizon not in report: "+name)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"horizon":           result.Horizon,
		"brinson":           result.Brinson,
		"industries":        result.Industries,
		"top_securities":    result.TopSecurities,
		"bottom_securities": result.BottomSecurities,
		"concentration":     rpt.Concentration,
	})
}

// latest fetches the newest report, writing the error response itself
// when there is nothing to serve.
func (h *ReportHandler) latest(ctx context.Context, w http.ResponseWriter) (*report.Report, error) {
	rpt, err := h.source.GetLatestReport(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest report")
		respondError(w, http.StatusInternalServerError, "Failed to load report")
		return nil, err
	}
	if rpt == nil {
		respondError(w, http.StatusNotFound, "No report generated yet")
		return nil, nil
	}
	return rpt, nil
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
