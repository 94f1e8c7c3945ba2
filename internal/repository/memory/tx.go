package memory

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Tx applies writes directly and keeps an undo log for Rollback.
type Tx struct {
	store *Store
	st    *state
	undo  []func()
	done  bool
}

var _ repository.Tx = (*Tx)(nil)

func (tx *Tx) Commit(_ context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	tx.finish()
	return nil
}

func (tx *Tx) Rollback(_ context.Context) error {
	if tx.done {
		return nil
	}
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.finish()
	return nil
}

func (tx *Tx) finish() {
	tx.done = true
	tx.undo = nil
	tx.store.mu.Unlock()
}

func (tx *Tx) check() error {
	if tx.done {
		return ErrTxDone
	}
	return nil
}

func (tx *Tx) GetTicket(_ context.Context, id int64) (*domain.Ticket, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.getTicket(id)
}

func (tx *Tx) LockTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	// the transaction already holds the store lock
	return tx.GetTicket(ctx, id)
}

func (tx *Tx) GetTicketByCode(_ context.Context, code string) (*domain.Ticket, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.getTicketByCode(code)
}

func (tx *Tx) ListTickets(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.listTickets(filter), nil
}

func (tx *Tx) CountTicketsByStatus(_ context.Context) ([]repository.StatusCount, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.countByStatus(), nil
}

func (tx *Tx) CountTicketsByPriority(_ context.Context, excludeStatuses []domain.TicketStatus) ([]repository.PriorityCount, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.countByPriority(excludeStatuses), nil
}

func (tx *Tx) MostRecentTicketAssignedTo(_ context.Context, analystIDs []int64) (*domain.Ticket, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.mostRecentAssignedTo(analystIDs)
}

func (tx *Tx) ListMessages(_ context.Context, ticketID int64) ([]domain.Message, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.listMessages(ticketID), nil
}

func (tx *Tx) ListAttachments(_ context.Context, ticketID int64) ([]domain.Attachment, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.listAttachments(ticketID), nil
}

func (tx *Tx) GetClient(_ context.Context, id int64) (*domain.Client, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.getClient(id)
}

func (tx *Tx) GetClientByEmail(_ context.Context, email string) (*domain.Client, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.getClientByEmail(email)
}

func (tx *Tx) GetAnalyst(_ context.Context, id int64) (*domain.Analyst, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.getAnalyst(id)
}

func (tx *Tx) GetAnalystByEmail(_ context.Context, email string) (*domain.Analyst, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.getAnalystByEmail(email)
}

func (tx *Tx) ListAnalystsBySpecialty(_ context.Context, specialty string) ([]domain.Analyst, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.analystsBySpecialty(specialty), nil
}

func (tx *Tx) ListAuditEntries(_ context.Context, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.st.listAudit(filter), nil
}

func (tx *Tx) CreateTicket(_ context.Context, ticket *domain.Ticket) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, err := tx.st.getTicketByCode(ticket.Code); err == nil {
		return duplicate("ticket code", ticket.Code)
	}
	if _, ok := tx.st.clients[ticket.ClientID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.ID = tx.st.nextID("tickets")
	tx.st.tickets[ticket.ID] = ticket.Clone()
	id := ticket.ID
	tx.undo = append(tx.undo, func() { delete(tx.st.tickets, id) })
	return nil
}

func (tx *Tx) UpdateTicket(_ context.Context, ticket *domain.Ticket) error {
	if err := tx.check(); err != nil {
		return err
	}
	prev, ok := tx.st.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	in := ticket.Clone()
	next := prev.Clone()
	next.Status = in.Status
	next.Priority = in.Priority
	next.TeamTag = in.TeamTag
	next.AnalystID = in.AnalystID
	next.AnalystEngaged = in.AnalystEngaged
	next.CompletedAt = in.CompletedAt
	tx.st.tickets[ticket.ID] = next
	tx.undo = append(tx.undo, func() { tx.st.tickets[prev.ID] = prev })
	return nil
}

func (tx *Tx) DeleteTicket(_ context.Context, id int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	prev, ok := tx.st.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(tx.st.tickets, id)
	tx.undo = append(tx.undo, func() { tx.st.tickets[id] = prev })
	for mid, m := range tx.st.messages {
		if m.TicketID == id {
			delete(tx.st.messages, mid)
			tx.undo = append(tx.undo, func() { tx.st.messages[m.ID] = m })
		}
	}
	for aid, a := range tx.st.attachments {
		if a.TicketID == id {
			delete(tx.st.attachments, aid)
			tx.undo = append(tx.undo, func() { tx.st.attachments[a.ID] = a })
		}
	}
	return nil
}

func (tx *Tx) CreateMessage(_ context.Context, msg *domain.Message) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, ok := tx.st.tickets[msg.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	msg.ID = tx.st.nextID("messages")
	cp := *msg
	tx.st.messages[msg.ID] = &cp
	tx.undo = append(tx.undo, func() { delete(tx.st.messages, cp.ID) })
	return nil
}

func (tx *Tx) CreateAttachment(_ context.Context, att *domain.Attachment) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, ok := tx.st.tickets[att.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	att.ID = tx.st.nextID("attachments")
	cp := *att
	tx.st.attachments[att.ID] = &cp
	tx.undo = append(tx.undo, func() { delete(tx.st.attachments, cp.ID) })
	return nil
}

func (tx *Tx) CreateClient(_ context.Context, client *domain.Client) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, err := tx.st.getClientByEmail(client.Email); err == nil {
		return duplicate("client email", strings.ToLower(client.Email))
	}
	client.ID = tx.st.nextID("clients")
	cp := *client
	tx.st.clients[client.ID] = &cp
	tx.undo = append(tx.undo, func() { delete(tx.st.clients, cp.ID) })
	return nil
}

func (tx *Tx) CreateAnalyst(_ context.Context, analyst *domain.Analyst) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, err := tx.st.getAnalystByEmail(analyst.Email); err == nil {
		return duplicate("analyst email", strings.ToLower(analyst.Email))
	}
	analyst.ID = tx.st.nextID("analysts")
	cp := *analyst
	tx.st.analysts[analyst.ID] = &cp
	tx.undo = append(tx.undo, func() { delete(tx.st.analysts, cp.ID) })
	return nil
}

func (tx *Tx) CreateAuditEntry(_ context.Context, entry *domain.AuditEntry) error {
	if err := tx.check(); err != nil {
		return err
	}
	entry.ID = tx.st.nextID("audit_entries")
	tx.st.audit = append(tx.st.audit, *entry)
	n := len(tx.st.audit) - 1
	tx.undo = append(tx.undo, func() { tx.st.audit = tx.st.audit[:n] })
	return nil
}
