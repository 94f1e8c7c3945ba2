package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	// TicketStatusOpenAI means the assistant is still handling the ticket.
	TicketStatusOpenAI            TicketStatus = "OPEN_AI"
	TicketStatusAwaitingAnalyst   TicketStatus = "AWAITING_ANALYST"
	TicketStatusInProgressAnalyst TicketStatus = "IN_PROGRESS_ANALYST"
	TicketStatusCompleted         TicketStatus = "COMPLETED"
	TicketStatusClosed            TicketStatus = "CLOSED"
	TicketStatusCancelled         TicketStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpenAI, TicketStatusAwaitingAnalyst, TicketStatusInProgressAnalyst,
		TicketStatusCompleted, TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further work is expected on the ticket.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusCompleted || s == TicketStatusClosed || s == TicketStatusCancelled
}

// AwaitingHuman is true for the states an analyst's first reply moves to IN_PROGRESS_ANALYST.
func (s TicketStatus) AwaitingHuman() bool {
	return s == TicketStatusOpenAI || s == TicketStatusAwaitingAnalyst
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities for the analyst grid, higher first.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityUrgent:
		return 4
	case TicketPriorityHigh:
		return 3
	case TicketPriorityMedium:
		return 2
	case TicketPriorityLow:
		return 1
	}
	return 0
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID             int64
	Code           string
	ClientID       int64
	Title          string
	Description    string
	OpenedAt       time.Time
	Status         TicketStatus
	Priority       TicketPriority
	TeamTag        *string
	AnalystID      *int64
	AnalystEngaged bool
	CompletedAt    *time.Time
}

// BlockedForClient reports whether a client may no longer post on the ticket:
// it is closed, or it was completed more than window ago.
func (t *Ticket) BlockedForClient(now time.Time, window time.Duration) bool {
	if t.Status == TicketStatusClosed {
		return true
	}
	if t.Status == TicketStatusCompleted && t.CompletedAt != nil {
		return now.Sub(*t.CompletedAt) > window
	}
	return false
}

// AssignedTo reports whether analystID is the current assignee.
func (t *Ticket) AssignedTo(analystID int64) bool {
	return t.AnalystID != nil && *t.AnalystID == analystID
}

// Clone returns a deep copy safe to mutate.
func (t *Ticket) Clone() *Ticket {
	cp := *t
	if t.TeamTag != nil {
		tag := *t.TeamTag
		cp.TeamTag = &tag
	}
	if t.AnalystID != nil {
		id := *t.AnalystID
		cp.AnalystID = &id
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

// AuditTable names the table ticket rows are recorded under.
func (t *Ticket) AuditTable() string {
	return "tickets"
}

// AuditKey is the primary key of the row.
func (t *Ticket) AuditKey() []any {
	return []any{t.ID}
}

// AuditValues returns the column values stored in the audit trail.
func (t *Ticket) AuditValues() map[string]any {
	return map[string]any{
		"id":              t.ID,
		"code":            t.Code,
		"client_id":       t.ClientID,
		"title":           t.Title,
		"description":     t.Description,
		"opened_at":       t.OpenedAt,
		"status":          t.Status,
		"priority":        t.Priority,
		"team_tag":        t.TeamTag,
		"analyst_id":      t.AnalystID,
		"analyst_engaged": t.AnalystEngaged,
		"completed_at":    t.CompletedAt,
	}
}

const (
	ticketCodePrefix   = "HD-"
	ticketCodeLength   = 8
	ticketCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewTicketCode returns a human-facing code such as HD-7K2Q9XAB.
func NewTicketCode() string {
	var b strings.Builder
	b.Grow(len(ticketCodePrefix) + ticketCodeLength)
	b.WriteString(ticketCodePrefix)
	max := big.NewInt(int64(len(ticketCodeAlphabet)))
	for i := 0; i < ticketCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		b.WriteByte(ticketCodeAlphabet[n.Int64()])
	}
	return b.String()
}

// ValidTicketCode reports whether code has the HD-XXXXXXXX shape.
func ValidTicketCode(code string) bool {
	if !strings.HasPrefix(code, ticketCodePrefix) || len(code) != len(ticketCodePrefix)+ticketCodeLength {
		return false
	}
	for _, ch := range code[len(ticketCodePrefix):] {
		if !strings.ContainsRune(ticketCodeAlphabet, ch) {
			return false
		}
	}
	return true
}
