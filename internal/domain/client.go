package domain

import "time"

// Client is the end-user who opens tickets.
type Client struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AuditTable names the table client rows are recorded under.
func (c *Client) AuditTable() string {
	return "clients"
}

// AuditKey is the primary key of the row.
func (c *Client) AuditKey() []any {
	return []any{c.ID}
}

// AuditValues returns the column values stored in the audit trail.
func (c *Client) AuditValues() map[string]any {
	return map[string]any{
		"id":            c.ID,
		"name":          c.Name,
		"email":         c.Email,
		"password_hash": c.PasswordHash,
		"created_at":    c.CreatedAt,
	}
}
