package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/service-desk-analytics/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// DashboardHandler serves one-shot arbitrated metrics to the dashboard.
type DashboardHandler struct {
	arbitrator   ports.MetricsArbitrator
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(arbitrator ports.MetricsArbitrator, errorHandler *ErrorHandler, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		arbitrator:   arbitrator,
		errorHandler: errorHandler,
		logger:       logger.With("component", "dashboard_handler"),
	}
}

// RegisterRoutes mounts the dashboard routes
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/performance", h.HandleGetPerformance)
}

// HandleGetPerformance resolves the metrics for the query filter and
// reports where they were computed.
func (h *DashboardHandler) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	filter, err := validation.ParseMetricsFilter(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	result, err := h.arbitrator.Resolve(r.Context(), filter)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSONWithHeaders(w, http.StatusOK, result, map[string]string{
		HeaderMetricsSource:   string(result.Source),
		HeaderMetricsDegraded: strconv.FormatBool(result.Degraded),
	})
}
