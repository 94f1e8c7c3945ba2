package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func ticketIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func listOptions(c *fiber.Ctx) service.TicketListOptions {
	limit := c.QueryInt("limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return service.TicketListOptions{Limit: limit, Offset: offset}
}

func ticketSummary(t *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:             t.ID,
		Code:           t.Code,
		ClientID:       t.ClientID,
		Title:          t.Title,
		Status:         t.Status,
		Priority:       t.Priority,
		TeamTag:        t.TeamTag,
		AnalystID:      t.AnalystID,
		AnalystEngaged: t.AnalystEngaged,
		OpenedAt:       t.OpenedAt,
		CompletedAt:    t.CompletedAt,
	}
}

func ticketSummaries(tickets []domain.Ticket) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return items
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(detail.Attachments))
	for _, a := range detail.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:          a.ID,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			URL:         a.Locator,
			UploadedAt:  a.UploadedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(&detail.Ticket),
		Description:   detail.Ticket.Description,
		ClientName:    detail.ClientName,
		AnalystName:   detail.AnalystName,
		Messages:      messageResponses(detail.Messages),
		Attachments:   attachments,
	}
}

func messageResponses(messages []domain.Message) []dto.MessageResponse {
	items := make([]dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		items = append(items, dto.MessageResponse{
			ID:         m.ID,
			SenderKind: m.Sender.Kind,
			SenderID:   m.Sender.ID,
			SenderName: m.SenderName,
			Content:    m.Content,
			SentAt:     m.SentAt,
		})
	}
	return items
}

func statusReport(report *service.StatusReport) dto.StatusReportResponse {
	byStatus := make([]dto.StatusCountResponse, 0, len(report.ByStatus))
	for _, c := range report.ByStatus {
		byStatus = append(byStatus, dto.StatusCountResponse{Status: c.Status, Count: c.Count})
	}
	byPriority := make([]dto.PriorityCountResponse, 0, len(report.OpenByPriority))
	for _, c := range report.OpenByPriority {
		byPriority = append(byPriority, dto.PriorityCountResponse{Priority: c.Priority, Count: c.Count})
	}
	return dto.StatusReportResponse{
		ByStatus:       byStatus,
		OpenTotal:      report.OpenTotal,
		OpenByPriority: byPriority,
		RecentOpen:     ticketSummaries(report.RecentOpen),
		RecentSince:    report.RecentSince,
	}
}

func auditEntries(entries []domain.AuditEntry) []dto.AuditEntryResponse {
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.AuditEntryResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			Action:     e.Action,
			Entity:     e.Entity,
			PrimaryKey: e.PrimaryKey,
			OccurredAt: e.OccurredAt,
			OldValues:  e.OldValues,
			NewValues:  e.NewValues,
		})
	}
	return items
}
