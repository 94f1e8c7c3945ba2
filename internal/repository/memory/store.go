// Package memory is an in-process repository.Store used by tests and by the
// service when no POSTGRES_DSN is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("memory: transaction already finished")

type state struct {
	tickets     map[int64]*domain.Ticket
	messages    map[int64]*domain.Message
	attachments map[int64]*domain.Attachment
	clients     map[int64]*domain.Client
	analysts    map[int64]*domain.Analyst
	audit       []domain.AuditEntry
	seq         map[string]int64
}

// Store keeps every table in maps. A transaction holds the write lock from
// Begin until Commit or Rollback, so transactions are fully serialized and
// readers never observe uncommitted rows.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: &state{
		tickets:     map[int64]*domain.Ticket{},
		messages:    map[int64]*domain.Message{},
		attachments: map[int64]*domain.Attachment{},
		clients:     map[int64]*domain.Client{},
		analysts:    map[int64]*domain.Analyst{},
		seq:         map[string]int64{},
	}}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &Tx{store: s, st: s.st}, nil
}

func (s *Store) GetTicket(_ context.Context, id int64) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getTicket(id)
}

func (s *Store) GetTicketByCode(_ context.Context, code string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getTicketByCode(code)
}

func (s *Store) ListTickets(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listTickets(filter), nil
}

func (s *Store) CountTicketsByStatus(_ context.Context) ([]repository.StatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.countByStatus(), nil
}

func (s *Store) CountTicketsByPriority(_ context.Context, excludeStatuses []domain.TicketStatus) ([]repository.PriorityCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.countByPriority(excludeStatuses), nil
}

func (s *Store) MostRecentTicketAssignedTo(_ context.Context, analystIDs []int64) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.mostRecentAssignedTo(analystIDs)
}

func (s *Store) ListMessages(_ context.Context, ticketID int64) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listMessages(ticketID), nil
}

func (s *Store) ListAttachments(_ context.Context, ticketID int64) ([]domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listAttachments(ticketID), nil
}

func (s *Store) GetClient(_ context.Context, id int64) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getClient(id)
}

func (s *Store) GetClientByEmail(_ context.Context, email string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getClientByEmail(email)
}

func (s *Store) GetAnalyst(_ context.Context, id int64) (*domain.Analyst, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getAnalyst(id)
}

func (s *Store) GetAnalystByEmail(_ context.Context, email string) (*domain.Analyst, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getAnalystByEmail(email)
}

func (s *Store) ListAnalystsBySpecialty(_ context.Context, specialty string) ([]domain.Analyst, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.analystsBySpecialty(specialty), nil
}

func (s *Store) ListAuditEntries(_ context.Context, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listAudit(filter), nil
}

func (st *state) nextID(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

func (st *state) getTicket(id int64) (*domain.Ticket, error) {
	t, ok := st.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t.Clone(), nil
}

func (st *state) getTicketByCode(code string) (*domain.Ticket, error) {
	for _, t := range st.tickets {
		if t.Code == code {
			return t.Clone(), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (st *state) listTickets(filter repository.TicketFilter) []domain.Ticket {
	excluded := make(map[domain.TicketStatus]bool, len(filter.ExcludeStatuses))
	for _, s := range filter.ExcludeStatuses {
		excluded[s] = true
	}
	var out []domain.Ticket
	for _, t := range st.tickets {
		if filter.ClientID != nil && t.ClientID != *filter.ClientID {
			continue
		}
		if filter.AnalystID != nil && !t.AssignedTo(*filter.AnalystID) {
			continue
		}
		if excluded[t.Status] {
			continue
		}
		if filter.OpenedSince != nil && t.OpenedAt.Before(*filter.OpenedSince) {
			continue
		}
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if filter.Order == repository.OrderPriorityThenOpened {
			if a.Priority.Rank() != b.Priority.Rank() {
				return a.Priority.Rank() > b.Priority.Rank()
			}
			if !a.OpenedAt.Equal(b.OpenedAt) {
				return a.OpenedAt.Before(b.OpenedAt)
			}
			return a.ID < b.ID
		}
		if !a.OpenedAt.Equal(b.OpenedAt) {
			return a.OpenedAt.After(b.OpenedAt)
		}
		return a.ID > b.ID
	})
	return paginate(out, filter.Limit, filter.Offset)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (st *state) countByStatus() []repository.StatusCount {
	counts := map[domain.TicketStatus]int{}
	for _, t := range st.tickets {
		counts[t.Status]++
	}
	out := make([]repository.StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, repository.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status < out[j].Status
	})
	return out
}

func (st *state) countByPriority(excludeStatuses []domain.TicketStatus) []repository.PriorityCount {
	excluded := make(map[domain.TicketStatus]bool, len(excludeStatuses))
	for _, s := range excludeStatuses {
		excluded[s] = true
	}
	counts := map[domain.TicketPriority]int{}
	for _, t := range st.tickets {
		if !excluded[t.Status] {
			counts[t.Priority]++
		}
	}
	out := make([]repository.PriorityCount, 0, len(counts))
	for priority, n := range counts {
		out = append(out, repository.PriorityCount{Priority: priority, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Priority.Rank() > out[j].Priority.Rank()
	})
	return out
}

func (st *state) mostRecentAssignedTo(analystIDs []int64) (*domain.Ticket, error) {
	wanted := make(map[int64]bool, len(analystIDs))
	for _, id := range analystIDs {
		wanted[id] = true
	}
	var best *domain.Ticket
	for _, t := range st.tickets {
		if t.AnalystID == nil || !wanted[*t.AnalystID] {
			continue
		}
		if best == nil || t.OpenedAt.After(best.OpenedAt) || (t.OpenedAt.Equal(best.OpenedAt) && t.ID > best.ID) {
			best = t
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	return best.Clone(), nil
}

func (st *state) listMessages(ticketID int64) []domain.Message {
	var out []domain.Message
	for _, m := range st.messages {
		if m.TicketID == ticketID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.Before(out[j].SentAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *state) listAttachments(ticketID int64) []domain.Attachment {
	var out []domain.Attachment
	for _, a := range st.attachments {
		if a.TicketID == ticketID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) getClient(id int64) (*domain.Client, error) {
	c, ok := st.clients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (st *state) getClientByEmail(email string) (*domain.Client, error) {
	for _, c := range st.clients {
		if strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (st *state) getAnalyst(id int64) (*domain.Analyst, error) {
	a, ok := st.analysts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (st *state) getAnalystByEmail(email string) (*domain.Analyst, error) {
	for _, a := range st.analysts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (st *state) analystsBySpecialty(specialty string) []domain.Analyst {
	needle := strings.ToLower(specialty)
	var out []domain.Analyst
	for _, a := range st.analysts {
		if strings.Contains(strings.ToLower(a.Specialty), needle) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *state) listAudit(filter repository.AuditFilter) []domain.AuditEntry {
	var out []domain.AuditEntry
	for _, e := range st.audit {
		if filter.Entity != "" && e.Entity != filter.Entity {
			continue
		}
		if filter.PrimaryKey != "" && e.PrimaryKey != filter.PrimaryKey {
			continue
		}
		out = append(out, e)
	}
	return paginate(out, filter.Limit, 0)
}

func duplicate(what, value string) error {
	return fmt.Errorf("memory: duplicate %s %q", what, value)
}
