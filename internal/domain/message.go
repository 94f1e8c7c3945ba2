package domain

import "time"

// SenderKind indicates who authored a message.
type SenderKind string

const (
	SenderClient    SenderKind = "CLIENT"
	SenderEmployee  SenderKind = "EMPLOYEE"
	SenderAssistant SenderKind = "ASSISTANT"
)

// Valid reports whether k is a known sender kind.
func (k SenderKind) Valid() bool {
	return k == SenderClient || k == SenderEmployee || k == SenderAssistant
}

// Sender is the author of a message. ID is set for clients and employees
// and nil for the assistant.
type Sender struct {
	Kind SenderKind
	ID   *int64
}

// ClientSender attributes a message to a client.
func ClientSender(id int64) Sender {
	return Sender{Kind: SenderClient, ID: &id}
}

// EmployeeSender attributes a message to an analyst.
func EmployeeSender(id int64) Sender {
	return Sender{Kind: SenderEmployee, ID: &id}
}

// AssistantSender attributes a message to the assistant or the system fallback.
func AssistantSender() Sender {
	return Sender{Kind: SenderAssistant}
}

// ClientID returns the client reference, if the sender is a client.
func (s Sender) ClientID() *int64 {
	if s.Kind == SenderClient {
		return s.ID
	}
	return nil
}

// EmployeeID returns the employee reference, if the sender is an employee.
func (s Sender) EmployeeID() *int64 {
	if s.Kind == SenderEmployee {
		return s.ID
	}
	return nil
}

// Message is one chat turn on a ticket. Messages are append-only.
type Message struct {
	ID         int64
	TicketID   int64
	Content    string
	SentAt     time.Time
	SenderName string
	Sender     Sender
}

// AuditTable names the table message rows are recorded under.
func (m *Message) AuditTable() string {
	return "messages"
}

// AuditKey is the primary key of the row.
func (m *Message) AuditKey() []any {
	return []any{m.ID}
}

// AuditValues returns the column values stored in the audit trail.
func (m *Message) AuditValues() map[string]any {
	return map[string]any{
		"id":                 m.ID,
		"ticket_id":          m.TicketID,
		"content":            m.Content,
		"sent_at":            m.SentAt,
		"sender_name":        m.SenderName,
		"sender_kind":        m.Sender.Kind,
		"sender_client_id":   m.Sender.ClientID(),
		"sender_employee_id": m.Sender.EmployeeID(),
	}
}
