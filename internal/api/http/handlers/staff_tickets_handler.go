package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// StaffTicketsHandler handles analyst grid, queue and edit endpoints.
type StaffTicketsHandler struct {
	tickets *service.TicketService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(ticketService *service.TicketService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: ticketService}
}

// ListOpen GET /staff/tickets.
func (h *StaffTicketsHandler) ListOpen(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListOpenTickets(c.UserContext(), listOptions(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// ListMine GET /staff/tickets/mine.
func (h *StaffTicketsHandler) ListMine(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListAnalystTickets(c.UserContext(), principal.ID, listOptions(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// UpdateTicket PUT /staff/tickets/:id.
func (h *StaffTicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.UpdateTicket(c.UserContext(), principal.Identity, id, service.TicketUpdateInput{
		Status:    req.Status,
		Priority:  req.Priority,
		TeamTag:   req.TeamTag,
		AnalystID: req.AnalystID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// StatusReport GET /staff/reports/status.
func (h *StaffTicketsHandler) StatusReport(c *fiber.Ctx) error {
	report, err := h.tickets.StatusReport(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": statusReport(report)})
}
