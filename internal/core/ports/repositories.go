package ports

import (
	"context"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// TicketRepository defines the read-only port to the ticket store.
type TicketRepository interface {
	// ListAll returns every ticket in the store.
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	// ListFiltered returns the tickets matching filter. The filter must be
	// validated; the result equals applying the in-memory filter evaluator
	// to ListAll.
	ListFiltered(ctx context.Context, filter domain.MetricsFilter) ([]domain.Ticket, error)
	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
}

// MetricsCache stores computed payloads keyed by filter.
type MetricsCache interface {
	Get(ctx context.Context, filter domain.MetricsFilter) (*domain.PerformanceMetrics, bool, error)
	Set(ctx context.Context, filter domain.MetricsFilter, metrics *domain.PerformanceMetrics) error
}

// RemoteMetricsSource is the authoritative remote computation.
type RemoteMetricsSource interface {
	FetchPerformance(ctx context.Context, filter domain.MetricsFilter) (*domain.PerformanceMetrics, error)
}

// TicketSnapshot exposes the in-memory ticket collection used for local
// recomputation. Tickets must return a slice the caller will not see
// mutated.
type TicketSnapshot interface {
	Tickets() []domain.Ticket
}
