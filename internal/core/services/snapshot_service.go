package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/clock"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
)

// TicketSnapshotService holds the in-memory ticket collection used for
// local recomputation. Each refresh swaps in a new slice; slices handed
// out by Tickets are never modified.
type TicketSnapshotService struct {
	ticketRepo ports.TicketRepository
	clock      clock.Clock
	recorder   ports.MetricsRecorder
	logger     *slog.Logger

	mu       sync.RWMutex
	tickets  []domain.Ticket
	loadedAt time.Time

	hooksMu sync.Mutex
	hooks   []func()
}

var _ ports.SnapshotService = (*TicketSnapshotService)(nil)

// NewTicketSnapshotService creates an empty snapshot. Call Refresh to
// load it.
func NewTicketSnapshotService(
	ticketRepo ports.TicketRepository,
	clk clock.Clock,
	recorder ports.MetricsRecorder,
	logger *slog.Logger,
) *TicketSnapshotService {
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	return &TicketSnapshotService{
		ticketRepo: ticketRepo,
		clock:      clk,
		recorder:   recorder,
		logger:     logger.With("component", "ticket_snapshot"),
	}
}

// Tickets returns the current collection.
func (s *TicketSnapshotService) Tickets() []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tickets
}

// LoadedAt returns when the collection was last replaced, or the zero
// time if it never was.
func (s *TicketSnapshotService) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Ping reports ErrSnapshotNotLoaded until the first successful refresh.
func (s *TicketSnapshotService) Ping(context.Context) error {
	if s.LoadedAt().IsZero() {
		return apperrors.ErrSnapshotNotLoaded
	}
	return nil
}

// OnRefresh registers fn to run after every successful refresh.
func (s *TicketSnapshotService) OnRefresh(fn func()) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Refresh reloads every ticket from the store. On error the previous
// collection stays in place.
func (s *TicketSnapshotService) Refresh(ctx context.Context) error {
	tickets, err := s.ticketRepo.ListAll(ctx)
	if err != nil {
		s.recorder.SnapshotRefreshed(0, err)
		return fmt.Errorf("refreshing ticket snapshot: %w", err)
	}

	s.mu.Lock()
	s.tickets = tickets
	s.loadedAt = s.clock.Now()
	s.mu.Unlock()

	s.recorder.SnapshotRefreshed(len(tickets), nil)
	s.logger.DebugContext(ctx, "ticket snapshot refreshed", "tickets", len(tickets))

	s.hooksMu.Lock()
	hooks := append([]func(){}, s.hooks...)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Run refreshes the snapshot every interval until ctx is done. Failed
// refreshes are logged and retried on the next tick.
func (s *TicketSnapshotService) Run(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.WarnContext(ctx, "ticket snapshot refresh failed", "error", err)
			}
		}
	}
}
