package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func (r *queries) CreateMessage(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (ticket_id, content, sent_at, sender_name, sender_kind, sender_client_id, sender_employee_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.q.QueryRow(ctx, query,
		msg.TicketID,
		msg.Content,
		msg.SentAt,
		msg.SenderName,
		msg.Sender.Kind,
		msg.Sender.ClientID(),
		msg.Sender.EmployeeID(),
	).Scan(&msg.ID)
}

func (r *queries) ListMessages(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, content, sent_at, sender_name, sender_kind, sender_client_id, sender_employee_id
        FROM messages WHERE ticket_id=$1 ORDER BY sent_at ASC, id ASC`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var (
			msg        domain.Message
			clientID   *int64
			employeeID *int64
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.Content,
			&msg.SentAt,
			&msg.SenderName,
			&msg.Sender.Kind,
			&clientID,
			&employeeID,
		); err != nil {
			return nil, err
		}
		switch msg.Sender.Kind {
		case domain.SenderClient:
			msg.Sender.ID = clientID
		case domain.SenderEmployee:
			msg.Sender.ID = employeeID
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
