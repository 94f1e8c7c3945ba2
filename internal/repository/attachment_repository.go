package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func (r *queries) CreateAttachment(ctx context.Context, att *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (ticket_id, file_name, locator, content_type, uploaded_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.q.QueryRow(ctx, query,
		att.TicketID,
		att.FileName,
		att.Locator,
		att.ContentType,
		att.UploadedAt,
	).Scan(&att.ID)
}

func (r *queries) ListAttachments(ctx context.Context, ticketID int64) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, file_name, locator, content_type, uploaded_at
        FROM attachments WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.TicketID,
			&att.FileName,
			&att.Locator,
			&att.ContentType,
			&att.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}
