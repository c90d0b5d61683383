package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/mocks"
)

func newDashboardRouter(arb *mocks.MockMetricsArbitrator) stdhttp.Handler {
	logger := quietLogger()
	h := NewDashboardHandler(arb, NewErrorHandler(logger), logger)
	r := chi.NewRouter()
	r.Route("/api/v1/dashboard", h.RegisterRoutes)
	return r
}

func TestDashboardHandler_GetPerformance(t *testing.T) {
	t.Run("Local fallback is flagged in header and body", func(t *testing.T) {
		arb := mocks.NewMockMetricsArbitrator()
		filter := domain.MetricsFilter{Scope: domain.ScopeAll, Assignee: "alice"}
		arb.On("Resolve", mock.Anything, filter).Return(&domain.MetricsResult{
			Metrics:        &domain.PerformanceMetrics{TotalTickets: 1},
			Source:         domain.SourceLocal,
			Degraded:       true,
			FallbackReason: "remote analytics returned a non-success status: 502",
			ComputedAt:     handlerNow,
			Filter:         filter,
		}, nil).Once()

		rec := httptest.NewRecorder()
		newDashboardRouter(arb).ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/api/v1/dashboard/performance?assignee=alice", nil))

		require.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.Equal(t, "local", rec.Header().Get(HeaderMetricsSource))
		assert.Equal(t, "true", rec.Header().Get(HeaderMetricsDegraded))

		var body domain.MetricsResult
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, domain.SourceLocal, body.Source)
		assert.Contains(t, body.FallbackReason, "502")
		assert.Equal(t, 1, body.Metrics.TotalTickets)
	})

	t.Run("Remote result", func(t *testing.T) {
		arb := mocks.NewMockMetricsArbitrator()
		arb.On("Resolve", mock.Anything, mock.Anything).Return(&domain.MetricsResult{
			Metrics: &domain.PerformanceMetrics{},
			Source:  domain.SourceRemote,
		}, nil).Once()

		rec := httptest.NewRecorder()
		newDashboardRouter(arb).ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/api/v1/dashboard/performance", nil))

		assert.Equal(t, "remote", rec.Header().Get(HeaderMetricsSource))
		assert.Equal(t, "false", rec.Header().Get(HeaderMetricsDegraded))
	})

	t.Run("Validation error from the arbitrator", func(t *testing.T) {
		arb := mocks.NewMockMetricsArbitrator()
		arb.On("Resolve", mock.Anything, mock.Anything).Return(nil, apperrors.NewDateRangeError("b", "a")).Once()

		rec := httptest.NewRecorder()
		newDashboardRouter(arb).ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/api/v1/dashboard/performance", nil))

		assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	})
}

func TestErrorHandler_MapsDomainErrors(t *testing.T) {
	h := NewErrorHandler(quietLogger())

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.ErrSnapshotNotLoaded, stdhttp.StatusServiceUnavailable, "SNAPSHOT_NOT_LOADED"},
		{apperrors.ErrInvalidDateRange, stdhttp.StatusUnprocessableEntity, "INVALID_DATE_RANGE"},
		{context.DeadlineExceeded, stdhttp.StatusGatewayTimeout, "TIMEOUT"},
		{apperrors.NewRateLimitError(), stdhttp.StatusTooManyRequests, "RATE_LIMITED"},
		{errors.New("boom"), stdhttp.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Handle(rec, httptest.NewRequest(stdhttp.MethodGet, "/", nil), tc.err)

			assert.Equal(t, tc.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.code, body.Code)
		})
	}
}
