package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func (r *queries) CreateClient(ctx context.Context, client *domain.Client) error {
	const query = `
        INSERT INTO clients (name, email, password_hash, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.q.QueryRow(ctx, query,
		client.Name,
		client.Email,
		client.PasswordHash,
		client.CreatedAt,
	).Scan(&client.ID)
}

func (r *queries) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	const query = `SELECT id, name, email, password_hash, created_at FROM clients WHERE id=$1`
	return r.fetchClient(ctx, query, id)
}

func (r *queries) GetClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	const query = `SELECT id, name, email, password_hash, created_at FROM clients WHERE LOWER(email)=LOWER($1)`
	return r.fetchClient(ctx, query, email)
}

func (r *queries) fetchClient(ctx context.Context, query string, arg any) (*domain.Client, error) {
	var client domain.Client
	if err := r.q.QueryRow(ctx, query, arg).Scan(
		&client.ID,
		&client.Name,
		&client.Email,
		&client.PasswordHash,
		&client.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &client, nil
}
