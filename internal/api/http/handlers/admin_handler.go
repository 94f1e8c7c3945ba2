package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AdminHandler serves destructive and forensic endpoints.
type AdminHandler struct {
	tickets *service.TicketService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(ticketService *service.TicketService) *AdminHandler {
	return &AdminHandler{tickets: ticketService}
}

// DeleteTicket DELETE /admin/tickets/:id.
func (h *AdminHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteTicket(c.UserContext(), principal.Identity, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListAudit GET /admin/audit?entity=tickets&key=12&limit=100.
func (h *AdminHandler) ListAudit(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.ListAuditEntries(c.UserContext(), principal.Identity, repository.AuditFilter{
		Entity:     c.Query("entity"),
		PrimaryKey: c.Query("key"),
		Limit:      c.QueryInt("limit", 100),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditEntries(entries)})
}
