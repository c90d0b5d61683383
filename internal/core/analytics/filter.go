package analytics

import (
	"strings"
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// DayBounds converts the filter's calendar dates into instants in loc:
// the start of date_from and the last millisecond of date_to. A bound
// that is absent or unparsable is returned as nil.
func DayBounds(filter domain.MetricsFilter, loc *time.Location) (from, to *time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	if filter.DateFrom != "" {
		if d, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(filter.DateFrom), loc); err == nil {
			from = &d
		}
	}
	if filter.DateTo != "" {
		if d, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(filter.DateTo), loc); err == nil {
			end := d.AddDate(0, 0, 1).Add(-time.Millisecond)
			to = &end
		}
	}
	return from, to
}

// FilterTickets returns the tickets that satisfy every supplied
// criterion of filter. It does not check that date_from <= date_to;
// callers validate the filter first.
func FilterTickets(tickets []domain.Ticket, filter domain.MetricsFilter, loc *time.Location) []domain.Ticket {
	from, to := DayBounds(filter, loc)
	category, byCategory := filter.CategoryCriterion()
	assignee, byAssignee := filter.AssigneeCriterion()
	assignee = domain.CanonicalAssignee(assignee)
	scope := filter.Normalized().Scope

	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]

		created, ok := t.CreatedAt.Time()
		if !ok {
			continue
		}
		if from != nil && created.Before(*from) {
			continue
		}
		if to != nil && created.After(*to) {
			continue
		}
		if byCategory && string(t.Category) != category {
			continue
		}
		if byAssignee && domain.CanonicalAssignee(t.Assignee) != assignee {
			continue
		}
		switch scope {
		case domain.ScopeBefore:
			if t.IsAutomationTouched() {
				continue
			}
		case domain.ScopeAfter:
			if !t.IsAutomationTouched() {
				continue
			}
		}
		out = append(out, *t)
	}
	return out
}
