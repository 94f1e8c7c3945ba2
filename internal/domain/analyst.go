package domain

import "time"

// Analyst models a human support agent (an employee).
type Analyst struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	// Specialty is free text such as "N2 Infrastructure"; routing matches it
	// as a case-insensitive substring.
	Specialty string
	IsAdmin   bool
	CreatedAt time.Time
}

// AuditTable names the table analyst rows are recorded under.
func (a *Analyst) AuditTable() string {
	return "analysts"
}

// AuditKey is the primary key of the row.
func (a *Analyst) AuditKey() []any {
	return []any{a.ID}
}

// AuditValues returns the column values stored in the audit trail.
func (a *Analyst) AuditValues() map[string]any {
	return map[string]any{
		"id":            a.ID,
		"name":          a.Name,
		"email":         a.Email,
		"password_hash": a.PasswordHash,
		"specialty":     a.Specialty,
		"is_admin":      a.IsAdmin,
		"created_at":    a.CreatedAt,
	}
}
