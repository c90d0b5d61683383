package ports

import (
	"context"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// PerformanceService defines the port for the authoritative KPI
// computation served by the analytics API.
type PerformanceService interface {
	GetPerformance(ctx context.Context, filter domain.MetricsFilter) (*domain.PerformanceMetrics, error)
}

// MetricsArbitrator defines the port for choosing between the remote
// computation and the local fallback. It returns an error only when the
// filter is invalid.
type MetricsArbitrator interface {
	Resolve(ctx context.Context, filter domain.MetricsFilter) (*domain.MetricsResult, error)
}

// SnapshotService keeps the in-memory ticket collection current.
type SnapshotService interface {
	TicketSnapshot
	Refresh(ctx context.Context) error
	LoadedAt() time.Time
}

// MetricsRecorder receives operational counters from the core services.
type MetricsRecorder interface {
	RemoteCall(outcome string, elapsed time.Duration)
	Computed(source domain.Source, elapsed time.Duration)
	CacheLookup(hit bool)
	StaleResultDropped()
	SnapshotRefreshed(tickets int, err error)
}

// Remote call outcomes reported to MetricsRecorder.
const (
	RemoteOutcomeSuccess     = "success"
	RemoteOutcomeUnavailable = "unavailable"
	RemoteOutcomeStatus      = "bad_status"
	RemoteOutcomeDecode      = "decode_error"
	RemoteOutcomeTimeout     = "timeout"
)

// NopRecorder discards every observation.
type NopRecorder struct{}

func (NopRecorder) RemoteCall(string, time.Duration) {}
func (NopRecorder) Computed(domain.Source, time.Duration) {}
func (NopRecorder) CacheLookup(bool) {}
func (NopRecorder) StaleResultDropped() {}
func (NopRecorder) SnapshotRefreshed(int, error) {}
