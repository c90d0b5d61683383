package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status domain.TicketStatus
		want   bool
	}{
		{"open is valid", domain.StatusOpen, true},
		{"waiting_vendor is valid", domain.StatusWaitingVendor, true},
		{"closed is valid", domain.StatusClosed, true},
		{"empty is invalid", domain.TicketStatus(""), false},
		{"uppercase is invalid", domain.TicketStatus("OPEN"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsValid())
		})
	}
}

func TestTicketStatus_IsTerminal(t *testing.T) {
	assert.True(t, domain.StatusResolved.IsTerminal())
	assert.True(t, domain.StatusClosed.IsTerminal())
	assert.False(t, domain.StatusPending.IsTerminal())
	assert.False(t, domain.StatusWaitingCustomer.IsTerminal())
}

func TestTicketPriorityAndCategory_IsValid(t *testing.T) {
	assert.True(t, domain.PriorityCritical.IsValid())
	assert.False(t, domain.TicketPriority("urgent").IsValid())
	assert.True(t, domain.CategorySecurity.IsValid())
	assert.False(t, domain.TicketCategory("printing").IsValid())
}

func TestTimestamp_Time(t *testing.T) {
	tests := []struct {
		name   string
		raw    domain.Timestamp
		want   time.Time
		wantOK bool
	}{
		{"rfc3339", "2025-03-10T09:30:00Z", time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), true},
		{"offset", "2025-03-10T11:30:00+02:00", time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), true},
		{"fractional", "2025-03-10T09:30:00.250Z", time.Date(2025, 3, 10, 9, 30, 0, 250_000_000, time.UTC), true},
		{"no zone", "2025-03-10T09:30:00", time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), true},
		{"space separated", "2025-03-10 09:30:00", time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), true},
		{"date only", "2025-03-10", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "not-a-date", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.raw.Time()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestTicket_ResolutionTimestamp(t *testing.T) {
	t.Run("prefers resolved_at", func(t *testing.T) {
		tk := domain.Ticket{ResolvedAt: "2025-03-10T10:00:00Z", UpdatedAt: "2025-03-11T10:00:00Z"}
		assert.Equal(t, domain.Timestamp("2025-03-10T10:00:00Z"), tk.ResolutionTimestamp())
	})

	t.Run("falls back to updated_at when resolved_at is malformed", func(t *testing.T) {
		tk := domain.Ticket{ResolvedAt: "yesterday", UpdatedAt: "2025-03-11T10:00:00Z"}
		assert.Equal(t, domain.Timestamp("2025-03-11T10:00:00Z"), tk.ResolutionTimestamp())
	})
}

func TestTicket_IsAutomationTouched(t *testing.T) {
	assert.False(t, (&domain.Ticket{}).IsAutomationTouched())
	assert.True(t, (&domain.Ticket{AutoAssignmentApplied: true}).IsAutomationTouched())
	assert.True(t, (&domain.Ticket{AutoPriorityApplied: true}).IsAutomationTouched())
}

func TestMetricsFilter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filter  domain.MetricsFilter
		wantErr error
	}{
		{"empty filter", domain.MetricsFilter{}, nil},
		{"same day", domain.MetricsFilter{Scope: domain.ScopeAll, DateFrom: "2025-03-01", DateTo: "2025-03-01"}, nil},
		{"only lower bound", domain.MetricsFilter{Scope: domain.ScopeAfter, DateFrom: "2025-03-01"}, nil},
		{"reversed range", domain.MetricsFilter{Scope: domain.ScopeAll, DateFrom: "2025-03-02", DateTo: "2025-03-01"}, apperrors.ErrInvalidDateRange},
		{"bad date", domain.MetricsFilter{Scope: domain.ScopeAll, DateTo: "03/01/2025"}, apperrors.ErrInvalidDate},
		{"bad scope", domain.MetricsFilter{Scope: "during"}, apperrors.ErrInvalidScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestMetricsFilter_DateRangeErrorIsUnprocessable(t *testing.T) {
	err := domain.MetricsFilter{DateFrom: "2025-04-01", DateTo: "2025-03-01"}.Validate()

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INVALID_DATE_RANGE", appErr.Code)
	assert.Equal(t, 422, appErr.StatusCode)
}

func TestMetricsFilter_Criteria(t *testing.T) {
	f := domain.MetricsFilter{Category: "all", Assignee: "  ALL "}
	_, ok := f.CategoryCriterion()
	assert.False(t, ok)
	_, ok = f.AssigneeCriterion()
	assert.False(t, ok)

	f = domain.MetricsFilter{Category: "network", Assignee: "  Alice "}
	c, ok := f.CategoryCriterion()
	assert.True(t, ok)
	assert.Equal(t, "network", c)
	a, ok := f.AssigneeCriterion()
	assert.True(t, ok)
	assert.Equal(t, "Alice", a)
}

func TestCanonicalAssignee(t *testing.T) {
	assert.Equal(t, "alice", domain.CanonicalAssignee("alice\t"))
	assert.Equal(t, "bob", domain.CanonicalAssignee("\r\n Bob \v\f"))
	assert.Equal(t, "a b", domain.CanonicalAssignee(" A B "))

	a, ok := domain.MetricsFilter{Assignee: "\tAlice\n"}.AssigneeCriterion()
	assert.True(t, ok)
	assert.Equal(t, "Alice", a)
}

func TestMetricsFilter_Normalized(t *testing.T) {
	n := domain.MetricsFilter{Scope: " After ", DateFrom: " 2025-03-01 "}.Normalized()
	assert.Equal(t, domain.ScopeAfter, n.Scope)
	assert.Equal(t, "2025-03-01", n.DateFrom)

	assert.Equal(t, domain.ScopeAll, domain.MetricsFilter{}.Normalized().Scope)
}
