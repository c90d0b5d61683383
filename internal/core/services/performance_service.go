package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lorrc/service-desk-analytics/internal/clock"
	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// PerformanceService computes KPI payloads from the ticket store. It is
// the authoritative computation that dashboards call remotely.
type PerformanceService struct {
	ticketRepo ports.TicketRepository
	cache      ports.MetricsCache
	engine     *analytics.Engine
	clock      clock.Clock
	recorder   ports.MetricsRecorder
	logger     *slog.Logger
}

var _ ports.PerformanceService = (*PerformanceService)(nil)

// NewPerformanceService creates a new performance service. cache may be
// nil to disable result caching.
func NewPerformanceService(
	ticketRepo ports.TicketRepository,
	cache ports.MetricsCache,
	engine *analytics.Engine,
	clk clock.Clock,
	recorder ports.MetricsRecorder,
	logger *slog.Logger,
) ports.PerformanceService {
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	return &PerformanceService{
		ticketRepo: ticketRepo,
		cache:      cache,
		engine:     engine,
		clock:      clk,
		recorder:   recorder,
		logger:     logger.With("component", "performance_service"),
	}
}

// GetPerformance validates the filter, then serves the payload from the
// cache or computes it over the tickets the store returns for filter.
func (s *PerformanceService) GetPerformance(ctx context.Context, filter domain.MetricsFilter) (*domain.PerformanceMetrics, error) {
	// 1. Validate before touching any collaborator
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter = filter.Normalized()

	// 2. Cache lookup
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, filter)
		if err != nil {
			s.logger.WarnContext(ctx, "metrics cache lookup failed", "error", err)
		}
		s.recorder.CacheLookup(ok)
		if ok {
			return cached, nil
		}
	}

	// 3. Load the filtered tickets and compose
	start := s.clock.Now()
	tickets, err := s.ticketRepo.ListFiltered(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("loading tickets: %w", err)
	}
	metrics := s.engine.Compose(tickets, start)
	s.recorder.Computed(domain.SourceRemote, s.clock.Now().Sub(start))

	// 4. Store for later identical requests
	if s.cache != nil {
		if err := s.cache.Set(ctx, filter, metrics); err != nil {
			s.logger.WarnContext(ctx, "metrics cache store failed", "error", err)
		}
	}

	return metrics, nil
}
