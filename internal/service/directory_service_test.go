package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type directoryFixture struct {
	store     *memory.Store
	directory *DirectoryService
	auth      *AuthService
	tokens    *auth.TokenManager
}

func newDirectoryFixture() *directoryFixture {
	store := memory.New()
	fake := clock.NewFake(opened)
	passwords := auth.NewPasswords(bcrypt.MinCost)
	tokens := auth.NewTokenManager("test-secret", 30)
	return &directoryFixture{
		store: store,
		directory: NewDirectoryService(DirectoryDependencies{
			Store:     audit.NewRecorder(audit.RecorderDependencies{Store: store, Clock: fake}),
			Passwords: passwords,
			Clock:     fake,
		}),
		auth:   NewAuthService(AuthDependencies{Store: store, Tokens: tokens, Passwords: passwords}),
		tokens: tokens,
	}
}

func TestCreateClientRedactsPasswordInTrail(t *testing.T) {
	f := newDirectoryFixture()
	ctx := context.Background()

	client, err := f.directory.CreateClient(ctx, NewClientInput{Name: " Ana ", Email: "Ana@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", client.Name)
	assert.Equal(t, "ana@example.com", client.Email)
	assert.NotEqual(t, "secret1", client.PasswordHash)

	entries, err := f.store.ListAuditEntries(ctx, repository.AuditFilter{Entity: "clients", PrimaryKey: strconv.FormatInt(client.ID, 10)})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditCreated, entries[0].Action)
	assert.Contains(t, string(entries[0].NewValues), audit.Redacted)
	assert.NotContains(t, string(entries[0].NewValues), client.PasswordHash)
}

func TestCreateAccountRejectsDuplicatesAndBadInput(t *testing.T) {
	f := newDirectoryFixture()
	ctx := context.Background()

	_, err := f.directory.CreateAnalyst(ctx, NewAnalystInput{Name: "Carla", Email: "carla@example.com", Password: "secret1", Specialty: "Infra"})
	require.NoError(t, err)

	_, err = f.directory.CreateAnalyst(ctx, NewAnalystInput{Name: "Other", Email: "CARLA@example.com", Password: "secret1"})
	requireCode(t, err, "CONFLICT")

	_, err = f.directory.CreateClient(ctx, NewClientInput{Name: "", Email: "nope", Password: "1"})
	requireCode(t, err, "VALIDATION_FAILED")
	details := apperrors.ToDomainError(err).Details
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestLogin(t *testing.T) {
	f := newDirectoryFixture()
	ctx := context.Background()

	eva, err := f.directory.CreateAnalyst(ctx, NewAnalystInput{Name: "Eva", Email: "eva@example.com", Password: "secret1", IsAdmin: true})
	require.NoError(t, err)
	_, err = f.directory.CreateClient(ctx, NewClientInput{Name: "Ana", Email: "ana@example.com", Password: "secret2"})
	require.NoError(t, err)

	result, err := f.auth.Login(ctx, domain.RoleEmployee, "eva@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{ID: eva.ID, Role: domain.RoleEmployee, IsAdmin: true}, result.Identity)
	assert.Equal(t, "Eva", result.Name)

	claims, err := f.tokens.ParseToken(result.Token)
	require.NoError(t, err)
	identity, err := claims.Identity()
	require.NoError(t, err)
	assert.Equal(t, result.Identity, identity)

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.auth.Login(ctx, domain.RoleClient, "ana@example.com", "secret1")
		requireCode(t, err, "UNAUTHORIZED")
	})
	t.Run("role mismatch looks like unknown email", func(t *testing.T) {
		_, err := f.auth.Login(ctx, domain.RoleClient, "eva@example.com", "secret1")
		requireCode(t, err, "UNAUTHORIZED")
	})
	t.Run("missing fields", func(t *testing.T) {
		_, err := f.auth.Login(ctx, domain.RoleClient, " ", "x")
		requireCode(t, err, "VALIDATION_FAILED")
	})
}
