package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthHandler exposes login endpoints for clients and analysts.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// ClientLogin handles POST /auth/clients/login.
func (h *AuthHandler) ClientLogin(c *fiber.Ctx) error {
	return h.login(c, domain.RoleClient)
}

// AnalystLogin handles POST /auth/analysts/login.
func (h *AuthHandler) AnalystLogin(c *fiber.Ctx) error {
	return h.login(c, domain.RoleEmployee)
}

func (h *AuthHandler) login(c *fiber.Ctx, role domain.Role) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Login(c.UserContext(), role, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"principal": dto.PrincipalResponse{
				ID:      result.Identity.ID,
				Name:    result.Name,
				Role:    result.Identity.Role,
				IsAdmin: result.Identity.IsAdmin,
			},
			"auth": dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		},
	})
}
