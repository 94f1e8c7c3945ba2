package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Content string `json:"content"`
}

// UpdateTicketRequest is a full overwrite of the editable fields. Omitted
// team_tag and analyst_id clear them.
type UpdateTicketRequest struct {
	Status    domain.TicketStatus   `json:"status"`
	Priority  domain.TicketPriority `json:"priority"`
	TeamTag   *string               `json:"team_tag"`
	AnalystID *int64                `json:"analyst_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             int64                 `json:"id"`
	Code           string                `json:"code"`
	ClientID       int64                 `json:"client_id"`
	Title          string                `json:"title"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	TeamTag        *string               `json:"team_tag"`
	AnalystID      *int64                `json:"analyst_id"`
	AnalystEngaged bool                  `json:"analyst_engaged"`
	OpenedAt       time.Time             `json:"opened_at"`
	CompletedAt    *time.Time            `json:"completed_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string               `json:"description"`
	ClientName  string               `json:"client_name"`
	AnalystName string               `json:"analyst_name,omitempty"`
	Messages    []MessageResponse    `json:"messages"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// MessageResponse represents one conversation entry.
type MessageResponse struct {
	ID         int64             `json:"id"`
	SenderKind domain.SenderKind `json:"sender_kind"`
	SenderID   *int64            `json:"sender_id"`
	SenderName string            `json:"sender_name"`
	Content    string            `json:"content"`
	SentAt     time.Time         `json:"sent_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	URL         string    `json:"url"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// StatusCountResponse is one dashboard bucket.
type StatusCountResponse struct {
	Status domain.TicketStatus `json:"status"`
	Count  int                 `json:"count"`
}

// PriorityCountResponse counts open tickets of one priority.
type PriorityCountResponse struct {
	Priority domain.TicketPriority `json:"priority"`
	Count    int                   `json:"count"`
}

// StatusReportResponse is the staff dashboard.
type StatusReportResponse struct {
	ByStatus       []StatusCountResponse   `json:"by_status"`
	OpenTotal      int                     `json:"open_total"`
	OpenByPriority []PriorityCountResponse `json:"open_by_priority"`
	RecentOpen     []TicketSummary         `json:"recent_open"`
	RecentSince    time.Time               `json:"recent_since"`
}

// AuditEntryResponse renders one trail row. Values are passed through as JSON.
type AuditEntryResponse struct {
	ID         int64              `json:"id"`
	ActorID    *string            `json:"actor_id"`
	Action     domain.AuditAction `json:"action"`
	Entity     string             `json:"entity"`
	PrimaryKey string             `json:"primary_key"`
	OccurredAt time.Time          `json:"occurred_at"`
	OldValues  json.RawMessage    `json:"old_values,omitempty"`
	NewValues  json.RawMessage    `json:"new_values,omitempty"`
}

// CreateTicketRequest carries the text fields of POST /tickets. Files arrive
// as multipart parts named "files".
type CreateTicketRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
}
