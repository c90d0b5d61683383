package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListFiltered(ctx context.Context, filter domain.MetricsFilter) ([]domain.Ticket, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockMetricsCache is a mock implementation of ports.MetricsCache
type MockMetricsCache struct {
	mock.Mock
}

func NewMockMetricsCache() *MockMetricsCache {
	return &MockMetricsCache{}
}

func (m *MockMetricsCache) Get(ctx context.Context, filter domain.MetricsFilter) (*domain.PerformanceMetrics, bool, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.PerformanceMetrics), args.Bool(1), args.Error(2)
}

func (m *MockMetricsCache) Set(ctx context.Context, filter domain.MetricsFilter, metrics *domain.PerformanceMetrics) error {
	args := m.Called(ctx, filter, metrics)
	return args.Error(0)
}

// MockRemoteMetricsSource is a mock implementation of ports.RemoteMetricsSource
type MockRemoteMetricsSource struct {
	mock.Mock
}

func NewMockRemoteMetricsSource() *MockRemoteMetricsSource {
	return &MockRemoteMetricsSource{}
}

func (m *MockRemoteMetricsSource) FetchPerformance(ctx context.Context, filter domain.MetricsFilter) (*domain.PerformanceMetrics, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PerformanceMetrics), args.Error(1)
}

// MockMetricsArbitrator is a mock implementation of ports.MetricsArbitrator
type MockMetricsArbitrator struct {
	mock.Mock
}

func NewMockMetricsArbitrator() *MockMetricsArbitrator {
	return &MockMetricsArbitrator{}
}

func (m *MockMetricsArbitrator) Resolve(ctx context.Context, filter domain.MetricsFilter) (*domain.MetricsResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MetricsResult), args.Error(1)
}

// MockPerformanceService is a mock implementation of ports.PerformanceService
type MockPerformanceService struct {
	mock.Mock
}

func NewMockPerformanceService() *MockPerformanceService {
	return &MockPerformanceService{}
}

func (m *MockPerformanceService) GetPerformance(ctx context.Context, filter domain.MetricsFilter) (*domain.PerformanceMetrics, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PerformanceMetrics), args.Error(1)
}

// StaticSnapshot is a fixed ports.TicketSnapshot.
type StaticSnapshot []domain.Ticket

func (s StaticSnapshot) Tickets() []domain.Ticket { return s }

// RecordingRecorder is a ports.MetricsRecorder that keeps what it saw.
type RecordingRecorder struct {
	mu             sync.Mutex
	RemoteOutcomes []string
	Sources        []domain.Source
	CacheHits      int
	CacheMisses    int
	StaleDrops     int
	Refreshes      int
}

func (r *RecordingRecorder) RemoteCall(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RemoteOutcomes = append(r.RemoteOutcomes, outcome)
}

func (r *RecordingRecorder) Computed(source domain.Source, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sources = append(r.Sources, source)
}

func (r *RecordingRecorder) CacheLookup(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.CacheHits++
	} else {
		r.CacheMisses++
	}
}

func (r *RecordingRecorder) StaleResultDropped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StaleDrops++
}

func (r *RecordingRecorder) SnapshotRefreshed(int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Refreshes++
}

// Stale returns the stale drop count.
func (r *RecordingRecorder) Stale() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.StaleDrops
}
