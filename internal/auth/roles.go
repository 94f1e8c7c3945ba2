package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RequireClient ensures a client is authenticated.
func RequireClient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Role != domain.RoleClient {
			return apperrors.NewForbidden("client required")
		}
		return c.Next()
	}
}

// RequireEmployee ensures an analyst is authenticated.
func RequireEmployee() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Role != domain.RoleEmployee {
			return apperrors.NewForbidden("analyst required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the analyst carries the admin flag.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Role != domain.RoleEmployee || !principal.IsAdmin {
			return apperrors.NewForbidden("admin required")
		}
		return c.Next()
	}
}
