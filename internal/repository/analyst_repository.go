package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const analystColumns = `id, name, email, password_hash, specialty, is_admin, created_at`

func (r *queries) CreateAnalyst(ctx context.Context, analyst *domain.Analyst) error {
	const query = `
        INSERT INTO analysts (name, email, password_hash, specialty, is_admin, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.q.QueryRow(ctx, query,
		analyst.Name,
		analyst.Email,
		analyst.PasswordHash,
		analyst.Specialty,
		analyst.IsAdmin,
		analyst.CreatedAt,
	).Scan(&analyst.ID)
}

func (r *queries) GetAnalyst(ctx context.Context, id int64) (*domain.Analyst, error) {
	return scanAnalyst(r.q.QueryRow(ctx, `SELECT `+analystColumns+` FROM analysts WHERE id=$1`, id))
}

func (r *queries) GetAnalystByEmail(ctx context.Context, email string) (*domain.Analyst, error) {
	return scanAnalyst(r.q.QueryRow(ctx, `SELECT `+analystColumns+` FROM analysts WHERE LOWER(email)=LOWER($1)`, email))
}

func (r *queries) ListAnalystsBySpecialty(ctx context.Context, specialty string) ([]domain.Analyst, error) {
	// strpos keeps % and _ in the requested specialty literal
	const query = `SELECT ` + analystColumns + ` FROM analysts
        WHERE strpos(LOWER(specialty), LOWER($1)) > 0
        ORDER BY name ASC, id ASC`
	rows, err := r.q.Query(ctx, query, specialty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Analyst
	for rows.Next() {
		analyst, err := scanAnalyst(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *analyst)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalyst(row rowScanner) (*domain.Analyst, error) {
	var analyst domain.Analyst
	if err := row.Scan(
		&analyst.ID,
		&analyst.Name,
		&analyst.Email,
		&analyst.PasswordHash,
		&analyst.Specialty,
		&analyst.IsAdmin,
		&analyst.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &analyst, nil
}
