package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// DirectoryService provisions clients and analysts.
type DirectoryService struct {
	store     repository.Store
	passwords *auth.Passwords
	clock     clock.Clock
	logger    *zap.Logger
}

// DirectoryDependencies wires the directory service. Store should be the
// audited store so account creation lands in the trail.
type DirectoryDependencies struct {
	Store     repository.Store
	Passwords *auth.Passwords
	Clock     clock.Clock
	Logger    *zap.Logger
}

// NewClientInput describes a client account.
type NewClientInput struct {
	Name     string
	Email    string
	Password string
}

// NewAnalystInput describes an analyst account.
type NewAnalystInput struct {
	Name      string
	Email     string
	Password  string
	Specialty string
	IsAdmin   bool
}

// NewDirectoryService constructs the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &DirectoryService{
		store:     deps.Store,
		passwords: deps.Passwords,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
}

// CreateClient registers a client. The email must be unused.
func (s *DirectoryService) CreateClient(ctx context.Context, input NewClientInput) (*domain.Client, error) {
	name, email, err := accountFields(input.Name, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	client := &domain.Client{Name: name, Email: email, PasswordHash: hash, CreatedAt: s.clock.Now()}
	err = s.inTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetClientByEmail(ctx, email); err == nil {
			return apperrors.NewConflict("email already registered", map[string]any{"email": email})
		} else if !apperrors.IsNoRows(err) {
			return err
		}
		return tx.CreateClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("client created", zap.Int64("client_id", client.ID))
	return client, nil
}

// CreateAnalyst registers an analyst. The email must be unused.
func (s *DirectoryService) CreateAnalyst(ctx context.Context, input NewAnalystInput) (*domain.Analyst, error) {
	name, email, err := accountFields(input.Name, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	analyst := &domain.Analyst{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Specialty:    strings.TrimSpace(input.Specialty),
		IsAdmin:      input.IsAdmin,
		CreatedAt:    s.clock.Now(),
	}
	err = s.inTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetAnalystByEmail(ctx, email); err == nil {
			return apperrors.NewConflict("email already registered", map[string]any{"email": email})
		} else if !apperrors.IsNoRows(err) {
			return err
		}
		return tx.CreateAnalyst(ctx, analyst)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("analyst created", zap.Int64("analyst_id", analyst.ID), zap.String("specialty", analyst.Specialty))
	return analyst, nil
}

func (s *DirectoryService) inTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return apperrors.MapError(err)
	}
	return apperrors.MapError(tx.Commit(ctx))
}

func accountFields(name, email, password string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if email == "" || !strings.Contains(email, "@") {
		details["email"] = "invalid"
	}
	if len(password) < 6 {
		details["password"] = "must have at least 6 characters"
	}
	if len(details) > 0 {
		return "", "", apperrors.NewValidationError("invalid account", details)
	}
	return name, email, nil
}
