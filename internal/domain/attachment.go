package domain

import "time"

// Attachment stores metadata for a file uploaded with a ticket.
type Attachment struct {
	ID          int64
	TicketID    int64
	FileName    string
	Locator     string
	ContentType string
	UploadedAt  time.Time
}

// AuditTable names the table attachment rows are recorded under.
func (a *Attachment) AuditTable() string {
	return "attachments"
}

// AuditKey is the primary key of the row.
func (a *Attachment) AuditKey() []any {
	return []any{a.ID}
}

// AuditValues returns the column values stored in the audit trail.
func (a *Attachment) AuditValues() map[string]any {
	return map[string]any{
		"id":           a.ID,
		"ticket_id":    a.TicketID,
		"file_name":    a.FileName,
		"locator":      a.Locator,
		"content_type": a.ContentType,
		"uploaded_at":  a.UploadedAt,
	}
}
