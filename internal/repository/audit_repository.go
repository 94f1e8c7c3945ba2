package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func (r *queries) CreateAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_entries (actor_id, action, entity, primary_key, occurred_at, old_values, new_values)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.q.QueryRow(ctx, query,
		entry.ActorID,
		entry.Action,
		entry.Entity,
		entry.PrimaryKey,
		entry.OccurredAt,
		entry.OldValues,
		entry.NewValues,
	).Scan(&entry.ID)
}

func (r *queries) ListAuditEntries(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Entity != "" {
		args = append(args, filter.Entity)
		clauses = append(clauses, fmt.Sprintf("entity=$%d", len(args)))
	}
	if filter.PrimaryKey != "" {
		args = append(args, filter.PrimaryKey)
		clauses = append(clauses, fmt.Sprintf("primary_key=$%d", len(args)))
	}
	query := `SELECT id, actor_id, action, entity, primary_key, occurred_at, old_values, new_values
        FROM audit_entries WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.Entity,
			&entry.PrimaryKey,
			&entry.OccurredAt,
			&entry.OldValues,
			&entry.NewValues,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
