package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthService exchanges credentials for bearer tokens.
type AuthService struct {
	store     repository.Reader
	tokenMgr  *auth.TokenManager
	passwords *auth.Passwords
	logger    *zap.Logger
}

// AuthDependencies encapsulates auth service collaborators.
type AuthDependencies struct {
	Store     repository.Reader
	Tokens    *auth.TokenManager
	Passwords *auth.Passwords
	Logger    *zap.Logger
}

// LoginResult is a successful login.
type LoginResult struct {
	Identity  domain.Identity
	Name      string
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AuthService{
		store:     deps.Store,
		tokenMgr:  deps.Tokens,
		passwords: deps.Passwords,
		logger:    deps.Logger,
	}
}

// Login authenticates a client or an analyst by email. Unknown emails and
// wrong passwords produce the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, role domain.Role, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	var (
		identity domain.Identity
		name     string
		hash     string
		err      error
	)
	switch role {
	case domain.RoleClient:
		var client *domain.Client
		client, err = s.store.GetClientByEmail(ctx, email)
		if err == nil {
			identity = domain.Identity{ID: client.ID, Role: domain.RoleClient}
			name, hash = client.Name, client.PasswordHash
		}
	case domain.RoleEmployee:
		var analyst *domain.Analyst
		analyst, err = s.store.GetAnalystByEmail(ctx, email)
		if err == nil {
			identity = domain.Identity{ID: analyst.ID, Role: domain.RoleEmployee, IsAdmin: analyst.IsAdmin}
			name, hash = analyst.Name, analyst.PasswordHash
		}
	default:
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if err != nil {
		if apperrors.IsNoRows(err) {
			s.passwords.Burn(password)
			return nil, apperrors.NewUnauthorized(auth.ErrInvalidCredentials.Error())
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.passwords.Verify(hash, password); err != nil {
		s.logger.Info("login rejected", zap.String("role", string(role)), zap.Int64("subject_id", identity.ID))
		return nil, apperrors.NewUnauthorized(err.Error())
	}

	token, exp, err := s.tokenMgr.GenerateToken(identity)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Identity: identity, Name: name, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
