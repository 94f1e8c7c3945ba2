package domain

import "time"

// AuditAction captures what happened to a row.
type AuditAction string

const (
	AuditCreated  AuditAction = "CREATED"
	AuditModified AuditAction = "MODIFIED"
	AuditDeleted  AuditAction = "DELETED"
)

// AuditEntry is an immutable record of one row change. OldValues is set for
// MODIFIED and DELETED, NewValues for CREATED and MODIFIED. Both hold JSON.
type AuditEntry struct {
	ID         int64
	ActorID    *string
	Action     AuditAction
	Entity     string
	PrimaryKey string
	OccurredAt time.Time
	OldValues  []byte
	NewValues  []byte
}

// Auditable is implemented by every entity the store persists.
type Auditable interface {
	AuditTable() string
	AuditKey() []any
	AuditValues() map[string]any
}
