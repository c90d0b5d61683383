package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/clock"
	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/mocks"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
	"github.com/lorrc/service-desk-analytics/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func snapshotTickets() mocks.StaticSnapshot {
	return mocks.StaticSnapshot{
		{ID: "1", Status: domain.StatusResolved, CreatedAt: "2025-03-18T10:00:00Z", ResolvedAt: "2025-03-18T14:00:00Z", UpdatedAt: "2025-03-18T14:00:00Z", AutoAssignmentApplied: true},
		{ID: "2", Status: domain.StatusOpen, CreatedAt: "2025-03-19T10:00:00Z", UpdatedAt: "2025-03-19T11:00:00Z"},
	}
}

func TestArbitrator_Resolve(t *testing.T) {
	ctx := context.Background()
	filter := domain.MetricsFilter{Scope: domain.ScopeAll, DateFrom: "2025-03-01", DateTo: "2025-03-31"}
	engine := analytics.NewEngine(time.UTC, 7)

	t.Run("remote success is tagged remote", func(t *testing.T) {
		remote := mocks.NewMockRemoteMetricsSource()
		recorder := &mocks.RecordingRecorder{}
		arb := services.NewArbitrator(remote, snapshotTickets(), engine, clock.Fake(fixedNow), recorder, testLogger())

		payload := &domain.PerformanceMetrics{TotalTickets: 42}
		remote.On("FetchPerformance", ctx, filter).Return(payload, nil).Once()

		result, err := arb.Resolve(ctx, filter)

		require.NoError(t, err)
		assert.Equal(t, domain.SourceRemote, result.Source)
		assert.False(t, result.Degraded)
		assert.Same(t, payload, result.Metrics)
		assert.Equal(t, fixedNow, result.ComputedAt)
		assert.Equal(t, []string{ports.RemoteOutcomeSuccess}, recorder.RemoteOutcomes)
		remote.AssertExpectations(t)
	})

	failures := []struct {
		name    string
		err     error
		outcome string
	}{
		{"transport error", errors.New("dial tcp: connection refused"), ports.RemoteOutcomeUnavailable},
		{"timeout", fmt.Errorf("%w: %w", apperrors.ErrRemoteUnavailable, context.DeadlineExceeded), ports.RemoteOutcomeTimeout},
		{"non-success status", fmt.Errorf("%w: 503", apperrors.ErrRemoteStatus), ports.RemoteOutcomeStatus},
		{"undecodable body", fmt.Errorf("%w: unexpected EOF", apperrors.ErrRemoteDecode), ports.RemoteOutcomeDecode},
	}

	for _, tc := range failures {
		t.Run("falls back once on "+tc.name, func(t *testing.T) {
			remote := mocks.NewMockRemoteMetricsSource()
			recorder := &mocks.RecordingRecorder{}
			arb := services.NewArbitrator(remote, snapshotTickets(), engine, clock.Fake(fixedNow), recorder, testLogger())

			remote.On("FetchPerformance", ctx, filter).Return(nil, tc.err).Once()

			result, err := arb.Resolve(ctx, filter)

			require.NoError(t, err)
			assert.Equal(t, domain.SourceLocal, result.Source)
			assert.True(t, result.Degraded)
			assert.Equal(t, tc.err.Error(), result.FallbackReason)
			assert.Equal(t, 2, result.Metrics.TotalTickets)
			assert.Equal(t, 1, result.Metrics.ResolvedTickets)
			assert.Equal(t, []string{tc.outcome}, recorder.RemoteOutcomes)
			assert.Equal(t, []domain.Source{domain.SourceLocal}, recorder.Sources)
			remote.AssertNumberOfCalls(t, "FetchPerformance", 1)
		})
	}

	t.Run("nil payload counts as a decode failure", func(t *testing.T) {
		remote := mocks.NewMockRemoteMetricsSource()
		arb := services.NewArbitrator(remote, snapshotTickets(), engine, clock.Fake(fixedNow), nil, testLogger())
		remote.On("FetchPerformance", ctx, filter).Return(nil, nil).Once()

		result, err := arb.Resolve(ctx, filter)

		require.NoError(t, err)
		assert.Equal(t, domain.SourceLocal, result.Source)
		assert.Contains(t, result.FallbackReason, "empty payload")
	})

	t.Run("invalid range computes nothing", func(t *testing.T) {
		remote := mocks.NewMockRemoteMetricsSource()
		arb := services.NewArbitrator(remote, snapshotTickets(), engine, clock.Fake(fixedNow), nil, testLogger())

		result, err := arb.Resolve(ctx, domain.MetricsFilter{Scope: domain.ScopeAll, DateFrom: "2025-03-31", DateTo: "2025-03-01"})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)
		assert.Nil(t, result)
		remote.AssertNotCalled(t, "FetchPerformance", mock.Anything, mock.Anything)
	})

	t.Run("no remote configured computes locally", func(t *testing.T) {
		arb := services.NewArbitrator(nil, snapshotTickets(), engine, clock.Fake(fixedNow), nil, testLogger())

		result, err := arb.Resolve(ctx, domain.MetricsFilter{Scope: domain.ScopeBefore})

		require.NoError(t, err)
		assert.Equal(t, domain.SourceLocal, result.Source)
		assert.Equal(t, 1, result.Metrics.TotalTickets)
	})

	t.Run("empty snapshot still yields a full payload", func(t *testing.T) {
		remote := mocks.NewMockRemoteMetricsSource()
		arb := services.NewArbitrator(remote, mocks.StaticSnapshot(nil), engine, clock.Fake(fixedNow), nil, testLogger())
		remote.On("FetchPerformance", ctx, mock.Anything).Return(nil, apperrors.ErrRemoteUnavailable)

		result, err := arb.Resolve(ctx, filter)

		require.NoError(t, err)
		require.NotNil(t, result.Metrics)
		assert.Equal(t, 0, result.Metrics.TotalTickets)
		assert.Nil(t, result.Metrics.MTTRGlobalHours)
	})
}
