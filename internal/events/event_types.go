package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventTicketDeleted       EventType = "ticket_deleted"
)

// ActorSystem marks events raised by the engine itself.
const ActorSystem domain.Role = "SYSTEM"

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.Role `json:"type"`
	ID   *int64      `json:"id,omitempty"`
}

// Event represents a domain event emitted by the lifecycle engine.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TicketID   int64     `json:"ticket_id"`
	TicketCode string    `json:"ticket_code"`
	Actor      Actor     `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ClientID    int64                 `json:"client_id"`
	Title       string                `json:"title"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Attachments int                   `json:"attachments"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAnalystID *int64 `json:"old_analyst_id,omitempty"`
	AnalystID    *int64 `json:"analyst_id,omitempty"`
	Specialty    string `json:"specialty,omitempty"`
}

// EscalationReason says why a ticket left the assistant.
type EscalationReason string

const (
	EscalationRequested     EscalationReason = "assistant_requested"
	EscalationAssistantDown EscalationReason = "assistant_failed"
)

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Reason    EscalationReason `json:"reason"`
	Specialty string           `json:"specialty,omitempty"`
	Assigned  bool             `json:"assigned"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   int64             `json:"message_id"`
	SenderKind  domain.SenderKind `json:"sender_kind"`
	SenderName  string            `json:"sender_name"`
	BodyPreview string            `json:"body_preview"`
}
