package analytics

import (
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// Engine applies the filter evaluator and the metric composer with a
// fixed calendar location and backlog threshold.
type Engine struct {
	Location             *time.Location
	BacklogThresholdDays int
}

// NewEngine returns an Engine. A nil location means UTC.
func NewEngine(loc *time.Location, backlogThresholdDays int) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{Location: loc, BacklogThresholdDays: backlogThresholdDays}
}

// Compute filters tickets and composes the payload. The filter must
// already be validated.
func (e *Engine) Compute(tickets []domain.Ticket, filter domain.MetricsFilter, now time.Time) *domain.PerformanceMetrics {
	filtered := FilterTickets(tickets, filter, e.Location)
	return e.Compose(filtered, now)
}

// Compose runs the composer over tickets that were filtered elsewhere,
// for example by a database query.
func (e *Engine) Compose(filtered []domain.Ticket, now time.Time) *domain.PerformanceMetrics {
	return Compose(filtered, Options{Now: now, BacklogThresholdDays: e.BacklogThresholdDays})
}
