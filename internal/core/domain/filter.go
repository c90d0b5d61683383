package domain

import (
	"strings"
	"time"

	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
)

// DateLayout is the calendar date format used by filter bounds.
const DateLayout = "2006-01-02"

// WildcardAll disables the category or assignee criterion.
const WildcardAll = "all"

// AssigneeCutset is the whitespace stripped from both ends of an
// assignee before matching. The ticket store trims the same set.
const AssigneeCutset = " \t\n\r\v\f"

// CanonicalAssignee is the form assignees are compared in: trimmed of
// AssigneeCutset and lower-cased.
func CanonicalAssignee(s string) string {
	return strings.ToLower(strings.Trim(s, AssigneeCutset))
}

// Scope partitions tickets by whether automation touched them.
type Scope string

const (
	ScopeAll    Scope = "all"
	ScopeBefore Scope = "before"
	ScopeAfter  Scope = "after"
)

// IsValid checks if the scope is one of all, before or after.
func (s Scope) IsValid() bool {
	return s == ScopeAll || s == ScopeBefore || s == ScopeAfter
}

// MetricsFilter holds the parameters of one metrics computation.
// Empty string fields mean "not supplied".
type MetricsFilter struct {
	Scope    Scope  `json:"scope"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
	Category string `json:"category,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

// Normalized returns a copy with whitespace trimmed and an empty scope
// replaced by ScopeAll.
func (f MetricsFilter) Normalized() MetricsFilter {
	out := MetricsFilter{
		Scope:    Scope(strings.ToLower(strings.TrimSpace(string(f.Scope)))),
		DateFrom: strings.TrimSpace(f.DateFrom),
		DateTo:   strings.TrimSpace(f.DateTo),
		Category: strings.TrimSpace(f.Category),
		Assignee: strings.TrimSpace(f.Assignee),
	}
	if out.Scope == "" {
		out.Scope = ScopeAll
	}
	return out
}

// CategoryCriterion returns the category to match and whether the
// criterion is active.
func (f MetricsFilter) CategoryCriterion() (string, bool) {
	c := strings.TrimSpace(f.Category)
	if c == "" || c == WildcardAll {
		return "", false
	}
	return c, true
}

// AssigneeCriterion returns the assignee to match and whether the
// criterion is active.
func (f MetricsFilter) AssigneeCriterion() (string, bool) {
	a := strings.Trim(f.Assignee, AssigneeCutset)
	if a == "" || strings.EqualFold(a, WildcardAll) {
		return "", false
	}
	return a, true
}

// Validate checks the scope, the date formats and the ordering of the
// date bounds. It is the only validation run before a computation.
func (f MetricsFilter) Validate() error {
	n := f.Normalized()

	if !n.Scope.IsValid() {
		return apperrors.NewValidationError(apperrors.ErrInvalidScope,
			"scope must be one of: all, before, after",
			map[string]interface{}{"scope": string(f.Scope)})
	}

	from, fromOK, err := parseDate("date_from", n.DateFrom)
	if err != nil {
		return err
	}
	to, toOK, err := parseDate("date_to", n.DateTo)
	if err != nil {
		return err
	}

	if fromOK && toOK && from.After(to) {
		return apperrors.NewDateRangeError(n.DateFrom, n.DateTo)
	}
	return nil
}

func parseDate(field, value string) (time.Time, bool, error) {
	if value == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false, apperrors.NewValidationError(apperrors.ErrInvalidDate,
			field+" must be a calendar date (YYYY-MM-DD)",
			map[string]interface{}{field: value})
	}
	return t, true, nil
}
