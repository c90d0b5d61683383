package http

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/service-desk-analytics/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-analytics/internal/adapters/secondary/report"
	"github.com/lorrc/service-desk-analytics/internal/clock"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// AnalyticsHandler serves the authoritative KPI computation.
type AnalyticsHandler struct {
	service      ports.PerformanceService
	clock        clock.Clock
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(
	service ports.PerformanceService,
	clk clock.Clock,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		clock:        clk,
		errorHandler: errorHandler,
		logger:       logger.With("component", "analytics_handler"),
	}
}

// RegisterRoutes mounts the analytics routes
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/performance", h.HandleGetPerformance)
	r.Get("/performance/export", h.HandleExport)
}

// HandleGetPerformance returns the KPI payload for the query filter.
func (h *AnalyticsHandler) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	metrics, _, ok := h.compute(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, metrics)
}

// HandleExport returns the KPI payload as an XLSX workbook.
func (h *AnalyticsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	metrics, filter, ok := h.compute(w, r)
	if !ok {
		return
	}

	now := h.clock.Now()
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, metrics, filter, now); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewInternalError(err))
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName(now)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export", "error", err)
	}
}

func (h *AnalyticsHandler) compute(w http.ResponseWriter, r *http.Request) (*domain.PerformanceMetrics, domain.MetricsFilter, bool) {
	filter, err := validation.ParseMetricsFilter(r)
	if HandleError(w, r, err, h.errorHandler) {
		return nil, filter, false
	}

	metrics, err := h.service.GetPerformance(r.Context(), filter)
	if HandleError(w, r, err, h.errorHandler) {
		return nil, filter, false
	}
	return metrics, filter, true
}
