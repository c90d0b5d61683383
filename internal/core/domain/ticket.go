package domain

import (
	"strings"
	"time"
)

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusOpen            TicketStatus = "open"
	StatusInProgress      TicketStatus = "in_progress"
	StatusPending         TicketStatus = "pending"
	StatusWaitingCustomer TicketStatus = "waiting_customer"
	StatusWaitingVendor   TicketStatus = "waiting_vendor"
	StatusResolved        TicketStatus = "resolved"
	StatusClosed          TicketStatus = "closed"
)

// IsValid checks if the status is a known ticket status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusPending, StatusWaitingCustomer,
		StatusWaitingVendor, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether the ticket left the working queue.
func (s TicketStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityCritical TicketPriority = "critical"
	PriorityHigh     TicketPriority = "high"
	PriorityMedium   TicketPriority = "medium"
	PriorityLow      TicketPriority = "low"
)

// IsValid checks if the priority is a known ticket priority.
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TicketCategory is the IT domain a ticket belongs to.
type TicketCategory string

const (
	CategoryHardware TicketCategory = "hardware"
	CategorySoftware TicketCategory = "software"
	CategoryNetwork  TicketCategory = "network"
	CategoryAccess   TicketCategory = "access"
	CategoryEmail    TicketCategory = "email"
	CategorySecurity TicketCategory = "security"
	CategoryOther    TicketCategory = "other"
)

// IsValid checks if the category is a known ticket category.
func (c TicketCategory) IsValid() bool {
	switch c {
	case CategoryHardware, CategorySoftware, CategoryNetwork, CategoryAccess,
		CategoryEmail, CategorySecurity, CategoryOther:
		return true
	}
	return false
}

// Timestamp is a raw timestamp as delivered by the ticket store. It is
// kept unparsed so that a malformed value can be treated as absent by
// each consumer instead of failing the whole record.
type Timestamp string

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// NewTimestamp formats t as a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format(time.RFC3339Nano))
}

// Time parses the timestamp. ok is false when the value is empty or
// cannot be parsed. Values without a zone are read as UTC.
func (ts Timestamp) Time() (time.Time, bool) {
	raw := strings.TrimSpace(string(ts))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsSet reports whether the timestamp parses.
func (ts Timestamp) IsSet() bool {
	_, ok := ts.Time()
	return ok
}

// Ticket is the read-only ticket record the analytics engine consumes.
// The ticket store owns it; nothing in this module mutates one.
type Ticket struct {
	ID                    string         `json:"id"`
	Status                TicketStatus   `json:"status"`
	Priority              TicketPriority `json:"priority"`
	Category              TicketCategory `json:"category"`
	Assignee              string         `json:"assignee"`
	AssignmentChangeCount int            `json:"assignment_change_count"`

	CreatedAt     Timestamp `json:"created_at"`
	UpdatedAt     Timestamp `json:"updated_at"`
	ResolvedAt    Timestamp `json:"resolved_at,omitempty"`
	FirstActionAt Timestamp `json:"first_action_at,omitempty"`

	AutoAssignmentApplied bool            `json:"auto_assignment_applied"`
	AutoPriorityApplied   bool            `json:"auto_priority_applied"`
	PredictedPriority     *TicketPriority `json:"predicted_priority,omitempty"`
	PredictedCategory     *TicketCategory `json:"predicted_category,omitempty"`

	SLAFirstResponseDueAt Timestamp `json:"sla_first_response_due_at,omitempty"`
	SLAResolutionDueAt    Timestamp `json:"sla_resolution_due_at,omitempty"`
	ReopenCount           *int      `json:"reopen_count,omitempty"`
	CSATScore             *float64  `json:"csat_score,omitempty"`
}

// IsAutomationTouched reports whether an automated step set the
// ticket's assignee or priority.
func (t *Ticket) IsAutomationTouched() bool {
	return t.AutoAssignmentApplied || t.AutoPriorityApplied
}

// IsResolved reports whether the ticket counts as resolved for
// analytics (resolved or closed).
func (t *Ticket) IsResolved() bool {
	return t.Status.IsTerminal()
}

// ResolutionTimestamp returns the moment the ticket was resolved,
// falling back to the last update when resolved_at is absent or
// malformed.
func (t *Ticket) ResolutionTimestamp() Timestamp {
	if t.ResolvedAt.IsSet() {
		return t.ResolvedAt
	}
	return t.UpdatedAt
}

// HasPrediction reports whether the classification model suggested at
// least one field for this ticket.
func (t *Ticket) HasPrediction() bool {
	return t.PredictedPriority != nil || t.PredictedCategory != nil
}
