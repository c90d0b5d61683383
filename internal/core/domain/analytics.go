package domain

import "time"

// DefaultBacklogThresholdDays is the age after which an active ticket
// counts towards backlog aging.
const DefaultBacklogThresholdDays = 7

// MTTRSplit holds mean time to resolution for tickets untouched by
// automation (Before) and touched by it (After).
type MTTRSplit struct {
	Before *float64 `json:"before"`
	After  *float64 `json:"after"`
}

// PerformanceMetrics is the KPI payload shared by the analytics API and
// the dashboard's local recomputation. Nil pointers serialize as null
// and mean "no eligible sample", which is distinct from 0.
type PerformanceMetrics struct {
	TotalTickets    int `json:"total_tickets"`
	ResolvedTickets int `json:"resolved_tickets"`

	MTTRHours       MTTRSplit `json:"mttr_hours"`
	MTTRGlobalHours *float64  `json:"mttr_global_hours"`
	MTTRP90Hours    *float64  `json:"mttr_p90_hours"`

	ReassignmentRate  float64 `json:"reassignment_rate"`
	ReassignedTickets int     `json:"reassigned_tickets"`

	AvgTimeToFirstActionHours    *float64 `json:"avg_time_to_first_action_hours"`
	MedianTimeToFirstActionHours *float64 `json:"median_time_to_first_action_hours"`

	ClassificationAccuracyRate *float64 `json:"classification_accuracy_rate"`
	ClassificationSamples      int      `json:"classification_samples"`
	AutoAssignmentAccuracyRate *float64 `json:"auto_assignment_accuracy_rate"`
	AutoAssignmentSamples      int      `json:"auto_assignment_samples"`

	ThroughputResolvedPerWeek int `json:"throughput_resolved_per_week"`
	BacklogOpenOverDays       int `json:"backlog_open_over_days"`
	BacklogThresholdDays      int `json:"backlog_threshold_days"`

	SLABreachRate      *float64 `json:"sla_breach_rate"`
	SLABreachedTickets int      `json:"sla_breached_tickets"`
	SLATicketsWithDue  int      `json:"sla_tickets_with_due"`

	SLAFirstResponseBreachRate      *float64 `json:"sla_first_response_breach_rate"`
	SLAFirstResponseBreachedTickets int      `json:"sla_first_response_breached_tickets"`
	SLAFirstResponseTicketsWithDue  int      `json:"sla_first_response_tickets_with_due"`

	SLAResolutionBreachRate      *float64 `json:"sla_resolution_breach_rate"`
	SLAResolutionBreachedTickets int      `json:"sla_resolution_breached_tickets"`
	SLAResolutionTicketsWithDue  int      `json:"sla_resolution_tickets_with_due"`

	ReopenRate                 *float64 `json:"reopen_rate"`
	FirstContactResolutionRate *float64 `json:"first_contact_resolution_rate"`
	CSATScore                  *float64 `json:"csat_score"`
}

// Source tags where a metrics payload was computed.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// MetricsResult is a payload together with its provenance.
type MetricsResult struct {
	Metrics        *PerformanceMetrics `json:"metrics"`
	Source         Source              `json:"source"`
	Degraded       bool                `json:"degraded"`
	FallbackReason string              `json:"fallback_reason,omitempty"`
	ComputedAt     time.Time           `json:"computed_at"`
	Filter         MetricsFilter       `json:"filter"`
}
