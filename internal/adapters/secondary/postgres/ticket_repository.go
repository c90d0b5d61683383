package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
	"github.com/lorrc/service-desk-analytics/internal/core/utils"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var ticketColumns = []string{
	"id",
	"status",
	"priority",
	"category",
	"assignee",
	"assignment_change_count",
	"created_at",
	"updated_at",
	"resolved_at",
	"first_action_at",
	"auto_assignment_applied",
	"auto_priority_applied",
	"predicted_priority",
	"predicted_category",
	"sla_first_response_due_at",
	"sla_resolution_due_at",
	"reopen_count",
	"csat_score",
}

const automationTouched = "(auto_assignment_applied OR auto_priority_applied)"

// TicketRepository reads tickets for analytics. It never writes.
type TicketRepository struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
	loc  *time.Location
}

var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a repository whose calendar-day filters are
// evaluated in loc.
func NewTicketRepository(pool *pgxpool.Pool, tm *TransactionManager, loc *time.Location) *TicketRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &TicketRepository{pool: pool, tm: tm, loc: loc}
}

// ListAll returns every ticket ordered by creation time.
func (r *TicketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	return r.list(ctx, r.baseQuery())
}

// ListFiltered pushes the filter down into SQL. The predicates mirror
// analytics.FilterTickets, including the calendar-day bounds.
func (r *TicketRepository) ListFiltered(ctx context.Context, filter domain.MetricsFilter) ([]domain.Ticket, error) {
	return r.list(ctx, r.filteredQuery(filter))
}

// Ping checks the database connection.
func (r *TicketRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *TicketRepository) baseQuery() sq.SelectBuilder {
	return psql.Select(ticketColumns...).From("tickets").OrderBy("created_at ASC", "id ASC")
}

func (r *TicketRepository) filteredQuery(filter domain.MetricsFilter) sq.SelectBuilder {
	q := r.baseQuery()

	from, to := analytics.DayBounds(filter, r.loc)
	if from != nil {
		q = q.Where(sq.GtOrEq{"created_at": *from})
	}
	if to != nil {
		q = q.Where(sq.LtOrEq{"created_at": *to})
	}
	if category, ok := filter.CategoryCriterion(); ok {
		q = q.Where(sq.Eq{"category": category})
	}
	if assignee, ok := filter.AssigneeCriterion(); ok {
		q = q.Where("LOWER(BTRIM(assignee, ?)) = LOWER(?)", domain.AssigneeCutset, assignee)
	}

	switch filter.Normalized().Scope {
	case domain.ScopeBefore:
		q = q.Where("NOT " + automationTouched)
	case domain.ScopeAfter:
		q = q.Where(automationTouched)
	}
	return q
}

func (r *TicketRepository) list(ctx context.Context, q sq.SelectBuilder) ([]domain.Ticket, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building ticket query: %w", err)
	}

	var tickets []domain.Ticket
	err = r.tm.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		tickets, err = scanTickets(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	return tickets, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		var (
			t                       domain.Ticket
			status, prio, cat       string
			created, updated        pgtype.Timestamptz
			resolved, firstAction   pgtype.Timestamptz
			slaFirstResp, slaResolv pgtype.Timestamptz
			predPrio, predCat       pgtype.Text
			reopen                  pgtype.Int4
			csat                    pgtype.Float8
		)

		if err := rows.Scan(
			&t.ID,
			&status,
			&prio,
			&cat,
			&t.Assignee,
			&t.AssignmentChangeCount,
			&created,
			&updated,
			&resolved,
			&firstAction,
			&t.AutoAssignmentApplied,
			&t.AutoPriorityApplied,
			&predPrio,
			&predCat,
			&slaFirstResp,
			&slaResolv,
			&reopen,
			&csat,
		); err != nil {
			return nil, err
		}

		t.Status = domain.TicketStatus(status)
		t.Priority = domain.TicketPriority(prio)
		t.Category = domain.TicketCategory(cat)
		t.CreatedAt = timestampOrEmpty(created)
		t.UpdatedAt = timestampOrEmpty(updated)
		t.ResolvedAt = timestampOrEmpty(resolved)
		t.FirstActionAt = timestampOrEmpty(firstAction)
		t.SLAFirstResponseDueAt = timestampOrEmpty(slaFirstResp)
		t.SLAResolutionDueAt = timestampOrEmpty(slaResolv)

		t.PredictedPriority = utils.TextPtr[domain.TicketPriority](predPrio)
		t.PredictedCategory = utils.TextPtr[domain.TicketCategory](predCat)
		t.ReopenCount = utils.Int4Ptr(reopen)
		t.CSATScore = utils.Float8Ptr(csat)

		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func timestampOrEmpty(ts pgtype.Timestamptz) domain.Timestamp {
	if !ts.Valid {
		return ""
	}
	return domain.NewTimestamp(ts.Time)
}
