package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("s3cret", 10)
	identity := domain.Identity{ID: 7, Role: domain.RoleEmployee, IsAdmin: true}

	token, exp, err := tm.GenerateToken(identity)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	got, err := claims.Identity()
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("s3cret", 10)
	token, _, err := tm.GenerateToken(domain.Identity{ID: 1, Role: domain.RoleClient})
	require.NoError(t, err)

	_, err = NewTokenManager("other", 10).ParseToken(token)
	assert.Error(t, err)

	expired := NewTokenManager("s3cret", 10)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.GenerateToken(domain.Identity{ID: 1, Role: domain.RoleClient})
	require.NoError(t, err)
	_, err = tm.ParseToken(old)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: domain.RoleClient})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ParseToken(unsigned)
	assert.Error(t, err)
}

func TestClientClaimsNeverCarryAdmin(t *testing.T) {
	claims := &Claims{Role: domain.RoleClient, IsAdmin: true, RegisteredClaims: jwt.RegisteredClaims{Subject: "4"}}
	identity, err := claims.Identity()
	require.NoError(t, err)
	assert.False(t, identity.IsAdmin)

	_, err = (&Claims{Role: "ROOT", RegisteredClaims: jwt.RegisteredClaims{Subject: "4"}}).Identity()
	assert.Error(t, err)
}

func TestPasswords(t *testing.T) {
	p := NewPasswords(bcrypt.MinCost)
	hash, err := p.Hash("hunter22")
	require.NoError(t, err)
	assert.NoError(t, p.Verify(hash, "hunter22"))
	assert.ErrorIs(t, p.Verify(hash, "hunter23"), ErrInvalidCredentials)
	_, err = p.Hash("")
	assert.Error(t, err)
	p.Burn("anything")
}

func newAuthApp(t *testing.T) (*fiber.App, *TokenManager, domain.Identity, domain.Identity) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	client := &domain.Client{Name: "Ana", Email: "ana@example.com"}
	analyst := &domain.Analyst{Name: "Eva", Email: "eva@example.com", IsAdmin: true}
	require.NoError(t, tx.CreateClient(ctx, client))
	require.NoError(t, tx.CreateAnalyst(ctx, analyst))
	require.NoError(t, tx.Commit(ctx))

	tm := NewTokenManager("s3cret", 10)
	mw := NewAuthMiddleware(tm, store)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(apperrors.ToDomainError(err).HTTPStatus).SendString(apperrors.ToDomainError(err).Code)
		},
	})
	whoami := func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		actor := audit.ActorFrom(c.UserContext())
		if !ok || actor == nil {
			return apperrors.NewInternalError(nil)
		}
		return c.JSON(fiber.Map{"name": p.Name, "actor": *actor, "admin": p.IsAdmin})
	}
	app.Get("/client", mw.Handle, RequireClient(), whoami)
	app.Get("/staff", mw.Handle, RequireEmployee(), whoami)
	app.Get("/admin", mw.Handle, RequireAdmin(), whoami)

	return app, tm,
		domain.Identity{ID: client.ID, Role: domain.RoleClient},
		domain.Identity{ID: analyst.ID, Role: domain.RoleEmployee}
}

func call(t *testing.T, app *fiber.App, path, header string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAuthMiddleware(t *testing.T) {
	app, tm, client, analyst := newAuthApp(t)
	clientToken, _, err := tm.GenerateToken(client)
	require.NoError(t, err)
	// Issued without the admin flag; the middleware reads it from the store.
	analystToken, _, err := tm.GenerateToken(analyst)
	require.NoError(t, err)
	ghostToken, _, err := tm.GenerateToken(domain.Identity{ID: 99, Role: domain.RoleClient})
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "/client", ""))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "/client", "Basic abc"))
	assert.Equal(t, fiber.StatusUnauthorized, call(t, app, "/client", "Bearer "+ghostToken))
	assert.Equal(t, fiber.StatusOK, call(t, app, "/client", "Bearer "+clientToken))
	assert.Equal(t, fiber.StatusOK, call(t, app, "/client", "bearer "+clientToken))
	assert.Equal(t, fiber.StatusForbidden, call(t, app, "/staff", "Bearer "+clientToken))
	assert.Equal(t, fiber.StatusForbidden, call(t, app, "/client", "Bearer "+analystToken))
	assert.Equal(t, fiber.StatusOK, call(t, app, "/staff", "Bearer "+analystToken))
	assert.Equal(t, fiber.StatusOK, call(t, app, "/admin", "Bearer "+analystToken))
	assert.Equal(t, fiber.StatusForbidden, call(t, app, "/admin", "Bearer "+clientToken))
}
