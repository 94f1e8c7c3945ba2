package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	domain.Identity
	Name string
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	store  repository.Reader
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, store repository.Reader) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, store: store}
}

// Handle enforces authentication for protected routes. The admin flag is
// re-read from the store so a revoked admin loses access before the token
// expires.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	identity, err := claims.Identity()
	if err != nil {
		return apperrors.NewUnauthorized(err.Error())
	}

	principal := &Principal{Identity: identity}
	ctx := c.UserContext()
	switch identity.Role {
	case domain.RoleClient:
		client, err := m.store.GetClient(ctx, identity.ID)
		if err != nil {
			if apperrors.IsNoRows(err) {
				return apperrors.NewUnauthorized("client not found")
			}
			return apperrors.MapError(err)
		}
		principal.Name = client.Name
	case domain.RoleEmployee:
		analyst, err := m.store.GetAnalyst(ctx, identity.ID)
		if err != nil {
			if apperrors.IsNoRows(err) {
				return apperrors.NewUnauthorized("analyst not found")
			}
			return apperrors.MapError(err)
		}
		principal.Name = analyst.Name
		principal.IsAdmin = analyst.IsAdmin
	}

	c.Locals(principalKey, principal)
	c.SetUserContext(audit.WithActor(ctx, principal.Identity))
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
