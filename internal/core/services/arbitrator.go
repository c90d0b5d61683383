package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lorrc/service-desk-analytics/internal/clock"
	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// Arbitrator asks the remote analytics computation first and falls back
// to one local recomputation over the ticket snapshot when it fails.
type Arbitrator struct {
	remote   ports.RemoteMetricsSource
	snapshot ports.TicketSnapshot
	engine   *analytics.Engine
	clock    clock.Clock
	recorder ports.MetricsRecorder
	logger   *slog.Logger
}

var _ ports.MetricsArbitrator = (*Arbitrator)(nil)

// NewArbitrator creates a new arbitrator. remote may be nil, in which
// case every result is computed locally and marked degraded.
func NewArbitrator(
	remote ports.RemoteMetricsSource,
	snapshot ports.TicketSnapshot,
	engine *analytics.Engine,
	clk clock.Clock,
	recorder ports.MetricsRecorder,
	logger *slog.Logger,
) *Arbitrator {
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	return &Arbitrator{
		remote:   remote,
		snapshot: snapshot,
		engine:   engine,
		clock:    clk,
		recorder: recorder,
		logger:   logger.With("component", "metrics_arbitrator"),
	}
}

// Resolve returns the metrics for filter tagged with their source. The
// only error it returns is a validation error for filter; remote
// failures produce a local, degraded result instead.
func (a *Arbitrator) Resolve(ctx context.Context, filter domain.MetricsFilter) (*domain.MetricsResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter = filter.Normalized()

	reason := "remote analytics not configured"
	if a.remote != nil {
		start := a.clock.Now()
		metrics, err := a.remote.FetchPerformance(ctx, filter)
		if err == nil && metrics == nil {
			err = fmt.Errorf("%w: empty payload", apperrors.ErrRemoteDecode)
		}
		elapsed := a.clock.Now().Sub(start)

		if err == nil {
			a.recorder.RemoteCall(ports.RemoteOutcomeSuccess, elapsed)
			a.recorder.Computed(domain.SourceRemote, elapsed)
			return &domain.MetricsResult{
				Metrics:    metrics,
				Source:     domain.SourceRemote,
				ComputedAt: a.clock.Now(),
				Filter:     filter,
			}, nil
		}

		a.recorder.RemoteCall(remoteOutcome(err), elapsed)
		reason = err.Error()
		a.logger.WarnContext(ctx, "remote analytics failed, recomputing locally",
			"reason", reason,
			"scope", filter.Scope,
			"date_from", filter.DateFrom,
			"date_to", filter.DateTo,
		)
	}

	return a.computeLocal(filter, reason), nil
}

func (a *Arbitrator) computeLocal(filter domain.MetricsFilter, reason string) *domain.MetricsResult {
	var tickets []domain.Ticket
	if a.snapshot != nil {
		tickets = a.snapshot.Tickets()
	}

	start := a.clock.Now()
	metrics := a.engine.Compute(tickets, filter, start)
	a.recorder.Computed(domain.SourceLocal, a.clock.Now().Sub(start))

	return &domain.MetricsResult{
		Metrics:        metrics,
		Source:         domain.SourceLocal,
		Degraded:       true,
		FallbackReason: reason,
		ComputedAt:     a.clock.Now(),
		Filter:         filter,
	}
}

func remoteOutcome(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ports.RemoteOutcomeTimeout
	case errors.Is(err, apperrors.ErrRemoteStatus):
		return ports.RemoteOutcomeStatus
	case errors.Is(err, apperrors.ErrRemoteDecode):
		return ports.RemoteOutcomeDecode
	default:
		return ports.RemoteOutcomeUnavailable
	}
}
