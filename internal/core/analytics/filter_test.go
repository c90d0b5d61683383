package analytics_test

import (
	"testing"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterFixture() []domain.Ticket {
	return []domain.Ticket{
		{ID: "t1", CreatedAt: "2025-03-01T00:00:00Z", Category: domain.CategoryNetwork, Assignee: "alice"},
		{ID: "t2", CreatedAt: "2025-03-01T23:59:59.999Z", Category: domain.CategoryNetwork, Assignee: " Alice ", AutoAssignmentApplied: true},
		{ID: "t3", CreatedAt: "2025-03-02T00:00:00Z", Category: domain.CategoryEmail, Assignee: "bob", AutoPriorityApplied: true},
		{ID: "t4", CreatedAt: "2025-02-28T23:59:59.999Z", Category: domain.CategoryNetwork, Assignee: "alice"},
		{ID: "t5", CreatedAt: "garbage", Category: domain.CategoryNetwork, Assignee: "alice"},
		{ID: "t6", CreatedAt: "2025-03-05T12:00:00Z", Category: domain.CategoryHardware, Assignee: "carol", AutoAssignmentApplied: true, AutoPriorityApplied: true},
	}
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}

func TestFilterTickets(t *testing.T) {
	tests := []struct {
		name   string
		filter domain.MetricsFilter
		want   []string
	}{
		{
			name:   "no criteria drops only unparsable created_at",
			filter: domain.MetricsFilter{Scope: domain.ScopeAll},
			want:   []string{"t1", "t2", "t3", "t4", "t6"},
		},
		{
			name:   "date bounds are inclusive calendar days",
			filter: domain.MetricsFilter{Scope: domain.ScopeAll, DateFrom: "2025-03-01", DateTo: "2025-03-01"},
			want:   []string{"t1", "t2"},
		},
		{
			name:   "category wildcard",
			filter: domain.MetricsFilter{Scope: domain.ScopeAll, Category: "all"},
			want:   []string{"t1", "t2", "t3", "t4", "t6"},
		},
		{
			name:   "category exact",
			filter: domain.MetricsFilter{Scope: domain.ScopeAll, Category: "email"},
			want:   []string{"t3"},
		},
		{
			name:   "assignee is trimmed and case-insensitive",
			filter: domain.MetricsFilter{Scope: domain.ScopeAll, Assignee: " ALICE", DateFrom: "2025-03-01"},
			want:   []string{"t1", "t2"},
		},
		{
			name:   "assignee trims tabs and newlines",
			filter: domain.MetricsFilter{Scope: domain.ScopeAll, Assignee: "\tBob\n"},
			want:   []string{"t3"},
		},
		{
			name:   "scope before drops automation-touched",
			filter: domain.MetricsFilter{Scope: domain.ScopeBefore},
			want:   []string{"t1", "t4"},
		},
		{
			name:   "scope after keeps only automation-touched",
			filter: domain.MetricsFilter{Scope: domain.ScopeAfter},
			want:   []string{"t2", "t3", "t6"},
		},
		{
			name:   "unparsable bound is ignored",
			filter: domain.MetricsFilter{Scope: domain.ScopeAll, DateFrom: "March"},
			want:   []string{"t1", "t2", "t3", "t4", "t6"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analytics.FilterTickets(filterFixture(), tt.filter, time.UTC)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilterTickets_ScopePartition(t *testing.T) {
	tickets := filterFixture()
	base := domain.MetricsFilter{DateFrom: "2025-03-01", DateTo: "2025-03-31", Category: "network"}

	withScope := func(s domain.Scope) []string {
		f := base
		f.Scope = s
		return ids(analytics.FilterTickets(tickets, f, time.UTC))
	}

	before := withScope(domain.ScopeBefore)
	after := withScope(domain.ScopeAfter)
	all := withScope(domain.ScopeAll)

	for _, id := range before {
		assert.NotContains(t, after, id, "before and after must be disjoint")
	}
	assert.ElementsMatch(t, all, append(append([]string{}, before...), after...))
	assert.ElementsMatch(t, []string{"t1", "t2"}, all)
}

func TestFilterTickets_Location(t *testing.T) {
	cet := time.FixedZone("CET", 60*60)

	// 23:30 UTC on Feb 28 is already March 1 at UTC+1.
	tickets := []domain.Ticket{{ID: "late", CreatedAt: "2025-02-28T23:30:00Z"}}
	f := domain.MetricsFilter{Scope: domain.ScopeAll, DateFrom: "2025-03-01"}

	assert.Empty(t, analytics.FilterTickets(tickets, f, time.UTC))
	assert.Len(t, analytics.FilterTickets(tickets, f, cet), 1)
}

func TestDayBounds(t *testing.T) {
	from, to := analytics.DayBounds(domain.MetricsFilter{DateFrom: "2025-03-01", DateTo: "2025-03-02"}, nil)
	require.NotNil(t, from)
	require.NotNil(t, to)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2025, 3, 2, 23, 59, 59, 999_000_000, time.UTC), *to)

	from, to = analytics.DayBounds(domain.MetricsFilter{}, time.UTC)
	assert.Nil(t, from)
	assert.Nil(t, to)
}
