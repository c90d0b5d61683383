// Package report renders performance metrics as spreadsheet exports.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// ContentType is the MIME type of the workbook written by WriteXLSX.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	kpiSheet     = "KPIs"
	filterSheet  = "Filter"
	notAvailable = "n/a"
)

var kpiHeaders = []interface{}{"KPI", "Value"}

// FileName returns the attachment name for an export generated at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("performance_%s.xlsx", t.UTC().Format("2006-01-02"))
}

// WriteXLSX writes a workbook with one KPI per row followed by a sheet
// describing the filter the metrics were computed for.
func WriteXLSX(w io.Writer, metrics *domain.PerformanceMetrics, filter domain.MetricsFilter, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", kpiSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(kpiSheet, "A1", &kpiHeaders); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(kpiSheet, "A1", "B1", bold); err != nil {
		return err
	}

	for i, row := range Rows(metrics) {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{row.Name, row.Value}
		if err := f.SetSheetRow(kpiSheet, cell, &values); err != nil {
			return err
		}
	}
	f.SetColWidth(kpiSheet, "A", "A", 40)
	f.SetColWidth(kpiSheet, "B", "B", 16)

	if _, err := f.NewSheet(filterSheet); err != nil {
		return err
	}
	n := filter.Normalized()
	filterRows := [][]interface{}{
		{"scope", string(n.Scope)},
		{"date_from", orAll(n.DateFrom)},
		{"date_to", orAll(n.DateTo)},
		{"category", orAll(n.Category)},
		{"assignee", orAll(n.Assignee)},
		{"generated_at", generatedAt.UTC().Format(time.RFC3339)},
	}
	for i, row := range filterRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(filterSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// Row is one KPI line of the export.
type Row struct {
	Name  string
	Value interface{}
}

// Rows flattens metrics in payload field order. Null rates are written
// as "n/a".
func Rows(m *domain.PerformanceMetrics) []Row {
	if m == nil {
		m = &domain.PerformanceMetrics{}
	}
	return []Row{
		{"total_tickets", m.TotalTickets},
		{"resolved_tickets", m.ResolvedTickets},
		{"mttr_hours.before", opt(m.MTTRHours.Before)},
		{"mttr_hours.after", opt(m.MTTRHours.After)},
		{"mttr_global_hours", opt(m.MTTRGlobalHours)},
		{"mttr_p90_hours", opt(m.MTTRP90Hours)},
		{"reassignment_rate", m.ReassignmentRate},
		{"reassigned_tickets", m.ReassignedTickets},
		{"avg_time_to_first_action_hours", opt(m.AvgTimeToFirstActionHours)},
		{"median_time_to_first_action_hours", opt(m.MedianTimeToFirstActionHours)},
		{"classification_accuracy_rate", opt(m.ClassificationAccuracyRate)},
		{"classification_samples", m.ClassificationSamples},
		{"auto_assignment_accuracy_rate", opt(m.AutoAssignmentAccuracyRate)},
		{"auto_assignment_samples", m.AutoAssignmentSamples},
		{"throughput_resolved_per_week", m.ThroughputResolvedPerWeek},
		{"backlog_open_over_days", m.BacklogOpenOverDays},
		{"backlog_threshold_days", m.BacklogThresholdDays},
		{"sla_breach_rate", opt(m.SLABreachRate)},
		{"sla_breached_tickets", m.SLABreachedTickets},
		{"sla_tickets_with_due", m.SLATicketsWithDue},
		{"sla_first_response_breach_rate", opt(m.SLAFirstResponseBreachRate)},
		{"sla_first_response_breached_tickets", m.SLAFirstResponseBreachedTickets},
		{"sla_first_response_tickets_with_due", m.SLAFirstResponseTicketsWithDue},
		{"sla_resolution_breach_rate", opt(m.SLAResolutionBreachRate)},
		{"sla_resolution_breached_tickets", m.SLAResolutionBreachedTickets},
		{"sla_resolution_tickets_with_due", m.SLAResolutionTicketsWithDue},
		{"reopen_rate", opt(m.ReopenRate)},
		{"first_contact_resolution_rate", opt(m.FirstContactResolutionRate)},
		{"csat_score", opt(m.CSATScore)},
	}
}

func opt(v *float64) interface{} {
	if v == nil {
		return notAvailable
	}
	return *v
}

func orAll(v string) string {
	if v == "" {
		return domain.WildcardAll
	}
	return v
}
