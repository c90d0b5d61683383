package analytics

import (
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// ThroughputWindow is the trailing window for resolved-ticket throughput.
const ThroughputWindow = 7 * 24 * time.Hour

// Options carries the inputs to Compose that do not come from the
// tickets themselves.
type Options struct {
	// Now anchors throughput, backlog aging and open SLA clocks.
	Now time.Time
	// BacklogThresholdDays defaults to domain.DefaultBacklogThresholdDays
	// when <= 0.
	BacklogThresholdDays int
}

// Compose computes the full KPI payload over an already filtered ticket
// collection. Each KPI selects its own eligible sample; a ticket whose
// timestamps a KPI needs are malformed is left out of that KPI only.
func Compose(tickets []domain.Ticket, opts Options) *domain.PerformanceMetrics {
	threshold := opts.BacklogThresholdDays
	if threshold <= 0 {
		threshold = domain.DefaultBacklogThresholdDays
	}

	m := &domain.PerformanceMetrics{
		TotalTickets:         len(tickets),
		BacklogThresholdDays: threshold,
	}

	var (
		before, after, all []float64
		firstAction        []float64
		csat               []float64

		classified, classifiedCorrect int
		reopenReported, reopened      int
	)

	throughputStart := opts.Now.Add(-ThroughputWindow)
	backlogCutoff := opts.Now.AddDate(0, 0, -threshold)

	for i := range tickets {
		t := &tickets[i]

		if t.IsResolved() {
			m.ResolvedTickets++
			if hours, ok := elapsed(t.CreatedAt, t.ResolutionTimestamp()); ok {
				all = append(all, hours)
				if t.IsAutomationTouched() {
					after = append(after, hours)
				} else {
					before = append(before, hours)
				}
			}
			if resolvedAt, ok := t.ResolutionTimestamp().Time(); ok &&
				!resolvedAt.Before(throughputStart) && !resolvedAt.After(opts.Now) {
				m.ThroughputResolvedPerWeek++
			}
		} else if created, ok := t.CreatedAt.Time(); ok && created.Before(backlogCutoff) {
			m.BacklogOpenOverDays++
		}

		if t.AssignmentChangeCount > 0 {
			m.ReassignedTickets++
		}

		if t.FirstActionAt.IsSet() {
			if hours, ok := elapsed(t.CreatedAt, t.FirstActionAt); ok {
				firstAction = append(firstAction, hours)
			}
		}

		if t.HasPrediction() {
			classified++
			if predictionMatches(t) {
				classifiedCorrect++
			}
		}

		if t.IsAutomationTouched() {
			m.AutoAssignmentSamples++
		}

		applySLA(m, t, opts.Now)

		if t.ReopenCount != nil {
			reopenReported++
			if *t.ReopenCount > 0 {
				reopened++
			}
		}
		if t.CSATScore != nil {
			csat = append(csat, *t.CSATScore)
		}
	}

	m.MTTRHours = domain.MTTRSplit{Before: Mean(before), After: Mean(after)}
	m.MTTRGlobalHours = Mean(all)
	m.MTTRP90Hours = Percentile(all, 0.9)

	if r := rate(m.ReassignedTickets, m.TotalTickets); r != nil {
		m.ReassignmentRate = *r
	}

	m.AvgTimeToFirstActionHours = Mean(firstAction)
	m.MedianTimeToFirstActionHours = Median(firstAction)

	m.ClassificationSamples = classified
	m.ClassificationAccuracyRate = rate(classifiedCorrect, classified)
	m.AutoAssignmentAccuracyRate = rate(autoAssignmentCorrect(tickets), m.AutoAssignmentSamples)

	m.SLAFirstResponseBreachRate = rate(m.SLAFirstResponseBreachedTickets, m.SLAFirstResponseTicketsWithDue)
	m.SLAResolutionBreachRate = rate(m.SLAResolutionBreachedTickets, m.SLAResolutionTicketsWithDue)
	m.SLABreachRate = rate(m.SLABreachedTickets, m.SLATicketsWithDue)

	m.ReopenRate = rate(reopened, reopenReported)
	m.CSATScore = Mean(csat)
	// Tickets carry no contact history, so first contact resolution has no
	// eligible sample.
	m.FirstContactResolutionRate = nil

	return m
}

// predictionMatches reports whether every predicted field present on t
// equals its final value.
func predictionMatches(t *domain.Ticket) bool {
	if t.PredictedPriority != nil && *t.PredictedPriority != t.Priority {
		return false
	}
	if t.PredictedCategory != nil && *t.PredictedCategory != t.Category {
		return false
	}
	return true
}

// autoAssignmentCorrect counts automation-touched tickets whose
// assignment was never overridden.
func autoAssignmentCorrect(tickets []domain.Ticket) int {
	n := 0
	for i := range tickets {
		if tickets[i].IsAutomationTouched() && tickets[i].AssignmentChangeCount == 0 {
			n++
		}
	}
	return n
}

// applySLA adds t to the SLA counters. A target is breached when the
// event happened after its due time, or has not happened and now is past
// it. Tickets with no parsable due time are not counted.
func applySLA(m *domain.PerformanceMetrics, t *domain.Ticket, now time.Time) {
	frDue, hasFR := t.SLAFirstResponseDueAt.Time()
	resDue, hasRes := t.SLAResolutionDueAt.Time()
	if !hasFR && !hasRes {
		return
	}

	breached := false
	if hasFR {
		m.SLAFirstResponseTicketsWithDue++
		if missed(t.FirstActionAt, frDue, now) {
			m.SLAFirstResponseBreachedTickets++
			breached = true
		}
	}
	if hasRes {
		m.SLAResolutionTicketsWithDue++
		var resolved domain.Timestamp
		if t.IsResolved() {
			resolved = t.ResolutionTimestamp()
		}
		if missed(resolved, resDue, now) {
			m.SLAResolutionBreachedTickets++
			breached = true
		}
	}

	m.SLATicketsWithDue++
	if breached {
		m.SLABreachedTickets++
	}
}

func missed(happened domain.Timestamp, due, now time.Time) bool {
	if at, ok := happened.Time(); ok {
		return at.After(due)
	}
	return now.After(due)
}
