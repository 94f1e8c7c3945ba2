package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketColumns = `id, code, client_id, title, description, opened_at, status, priority,
               team_tag, analyst_id, analyst_engaged, completed_at`

const priorityRankSQL = `CASE priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END`

func (r *queries) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (code, client_id, title, description, opened_at, status, priority,
                             team_tag, analyst_id, analyst_engaged, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id`
	return r.q.QueryRow(ctx, query,
		ticket.Code,
		ticket.ClientID,
		ticket.Title,
		ticket.Description,
		ticket.OpenedAt,
		ticket.Status,
		ticket.Priority,
		ticket.TeamTag,
		ticket.AnalystID,
		ticket.AnalystEngaged,
		ticket.CompletedAt,
	).Scan(&ticket.ID)
}

func (r *queries) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, team_tag=$3, analyst_id=$4,
            analyst_engaged=$5, completed_at=$6
        WHERE id=$7`
	cmd, err := r.q.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.TeamTag,
		ticket.AnalystID,
		ticket.AnalystEngaged,
		ticket.CompletedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *queries) DeleteTicket(ctx context.Context, id int64) error {
	// messages and attachments go with the ticket through ON DELETE CASCADE
	cmd, err := r.q.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *queries) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchTicket(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *queries) LockTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchTicket(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id)
}

func (r *queries) GetTicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	return r.fetchTicket(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code=$1`, code)
}

func (r *queries) MostRecentTicketAssignedTo(ctx context.Context, analystIDs []int64) (*domain.Ticket, error) {
	if len(analystIDs) == 0 {
		return nil, pgx.ErrNoRows
	}
	const query = `SELECT ` + ticketColumns + ` FROM tickets
        WHERE analyst_id = ANY($1)
        ORDER BY opened_at DESC, id DESC
        LIMIT 1`
	return r.fetchTicket(ctx, query, analystIDs)
}

func (r *queries) fetchTicket(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *queries) ListTickets(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id=$%d", len(args)))
	}
	if filter.AnalystID != nil {
		args = append(args, *filter.AnalystID)
		clauses = append(clauses, fmt.Sprintf("analyst_id=$%d", len(args)))
	}
	if len(filter.ExcludeStatuses) > 0 {
		placeholders := make([]string, len(filter.ExcludeStatuses))
		for i, status := range filter.ExcludeStatuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.OpenedSince != nil {
		args = append(args, *filter.OpenedSince)
		clauses = append(clauses, fmt.Sprintf("opened_at >= $%d", len(args)))
	}

	query := fmt.Sprintf("%s WHERE %s", base, strings.Join(clauses, " AND "))
	switch filter.Order {
	case OrderPriorityThenOpened:
		query += " ORDER BY " + priorityRankSQL + " DESC, opened_at ASC, id ASC"
	default:
		query += " ORDER BY opened_at DESC, id DESC"
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *queries) CountTicketsByStatus(ctx context.Context) ([]StatusCount, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status ORDER BY COUNT(*) DESC, status ASC`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (r *queries) CountTicketsByPriority(ctx context.Context, excludeStatuses []domain.TicketStatus) ([]PriorityCount, error) {
	excluded := make([]string, len(excludeStatuses))
	for i, status := range excludeStatuses {
		excluded[i] = string(status)
	}
	query := `SELECT priority, COUNT(*) FROM tickets
        WHERE status <> ALL($1)
        GROUP BY priority
        ORDER BY ` + priorityRankSQL + ` DESC`
	rows, err := r.q.Query(ctx, query, excluded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PriorityCount
	for rows.Next() {
		var pc PriorityCount
		if err := rows.Scan(&pc.Priority, &pc.Count); err != nil {
			return nil, err
		}
		result = append(result, pc)
	}
	return result, rows.Err()
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.ClientID,
		&ticket.Title,
		&ticket.Description,
		&ticket.OpenedAt,
		&ticket.Status,
		&ticket.Priority,
		&ticket.TeamTag,
		&ticket.AnalystID,
		&ticket.AnalystEngaged,
		&ticket.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
