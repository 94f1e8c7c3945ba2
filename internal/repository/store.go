package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketOrder selects how ListTickets sorts its result.
type TicketOrder int

const (
	// OrderOpenedDesc lists newest tickets first.
	OrderOpenedDesc TicketOrder = iota
	// OrderPriorityThenOpened lists by priority rank (highest first), then oldest first.
	OrderPriorityThenOpened
)

// TicketFilter captures listing parameters. OpenedSince keeps tickets opened
// at or after the given instant.
type TicketFilter struct {
	ClientID        *int64
	AnalystID       *int64
	ExcludeStatuses []domain.TicketStatus
	OpenedSince     *time.Time
	Order           TicketOrder
	Limit           int
	Offset          int
}

// StatusCount is one bucket of the status report.
type StatusCount struct {
	Status domain.TicketStatus
	Count  int
}

// PriorityCount is one bucket of the open-by-priority report.
type PriorityCount struct {
	Priority domain.TicketPriority
	Count    int
}

// AuditFilter narrows audit trail reads. Empty fields match everything.
type AuditFilter struct {
	Entity     string
	PrimaryKey string
	Limit      int
}

// Reader is the read surface of the ticket store. Missing rows are reported
// as pgx.ErrNoRows by every implementation.
type Reader interface {
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (*domain.Ticket, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountTicketsByStatus(ctx context.Context) ([]StatusCount, error)
	// CountTicketsByPriority counts tickets outside excludeStatuses, most
	// urgent priority first.
	CountTicketsByPriority(ctx context.Context, excludeStatuses []domain.TicketStatus) ([]PriorityCount, error)
	// MostRecentTicketAssignedTo returns the most recently opened ticket whose
	// analyst is one of analystIDs.
	MostRecentTicketAssignedTo(ctx context.Context, analystIDs []int64) (*domain.Ticket, error)

	ListMessages(ctx context.Context, ticketID int64) ([]domain.Message, error)
	ListAttachments(ctx context.Context, ticketID int64) ([]domain.Attachment, error)

	GetClient(ctx context.Context, id int64) (*domain.Client, error)
	GetClientByEmail(ctx context.Context, email string) (*domain.Client, error)
	GetAnalyst(ctx context.Context, id int64) (*domain.Analyst, error)
	GetAnalystByEmail(ctx context.Context, email string) (*domain.Analyst, error)
	// ListAnalystsBySpecialty matches specialty as a case-insensitive substring
	// and orders by name.
	ListAnalystsBySpecialty(ctx context.Context, specialty string) ([]domain.Analyst, error)

	ListAuditEntries(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
}

// Writer is the mutation surface, only reachable inside a transaction.
type Writer interface {
	// LockTicket reads the ticket and holds a row lock until the transaction ends.
	LockTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	UpdateTicket(ctx context.Context, ticket *domain.Ticket) error
	// DeleteTicket removes the ticket with its messages and attachments.
	DeleteTicket(ctx context.Context, id int64) error
	CreateMessage(ctx context.Context, msg *domain.Message) error
	CreateAttachment(ctx context.Context, att *domain.Attachment) error
	CreateClient(ctx context.Context, client *domain.Client) error
	CreateAnalyst(ctx context.Context, analyst *domain.Analyst) error
	CreateAuditEntry(ctx context.Context, entry *domain.AuditEntry) error
}

// Tx is one unit of work. Rollback after Commit is a no-op.
type Tx interface {
	Reader
	Writer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the system of record.
type Store interface {
	Reader
	Begin(ctx context.Context) (Tx, error)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	q querier
}

type pgStore struct {
	queries
	pool *pgxpool.Pool
}

// NewPostgresStore builds a Store on top of a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{queries: queries{q: pool}, pool: pool}
}

func (s *pgStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{queries: queries{q: tx}, tx: tx}, nil
}

type pgTx struct {
	queries
	tx pgx.Tx
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
