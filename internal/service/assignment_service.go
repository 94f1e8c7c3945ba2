package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AssignmentStrategy chooses among two or more candidates, already ordered by name.
type AssignmentStrategy interface {
	Name() string
	Pick(ctx context.Context, reader repository.Reader, specialty string, candidates []domain.Analyst) (*domain.Analyst, error)
}

// AssignmentService resolves a specialty queue to a single analyst.
type AssignmentService struct {
	strategy AssignmentStrategy
	logger   *zap.Logger
}

// AssignmentDependencies bundles balancer collaborators.
type AssignmentDependencies struct {
	Strategy AssignmentStrategy
	Logger   *zap.Logger
}

// NewAssignmentService defaults to HistoryRoundRobin.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	if deps.Strategy == nil {
		deps.Strategy = HistoryRoundRobin{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AssignmentService{strategy: deps.Strategy, logger: deps.Logger}
}

// Strategy reports the configured strategy name.
func (s *AssignmentService) Strategy() string {
	return s.strategy.Name()
}

// FindNextAnalyst returns the analyst that should receive the next ticket for
// specialty, or nil when no analyst's specialty contains it. Reads go through
// reader so callers can run the lookup inside their transaction.
func (s *AssignmentService) FindNextAnalyst(ctx context.Context, reader repository.Reader, specialty string) (*domain.Analyst, error) {
	specialty = strings.TrimSpace(specialty)
	if specialty == "" {
		return nil, nil
	}
	candidates, err := reader.ListAnalystsBySpecialty(ctx, specialty)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return &candidates[0], nil
	}
	picked, err := s.strategy.Pick(ctx, reader, specialty, candidates)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("analyst selected",
		zap.String("strategy", s.strategy.Name()),
		zap.String("specialty", specialty),
		zap.Int64("analyst_id", picked.ID),
		zap.Int("candidates", len(candidates)),
	)
	return picked, nil
}

// HistoryRoundRobin infers the last winner from the most recently opened
// ticket assigned to any candidate and returns the candidate after it. It
// keeps no state, so concurrent escalations can pick the same analyst.
type HistoryRoundRobin struct{}

// Name identifies the strategy in logs.
func (HistoryRoundRobin) Name() string { return "history" }

// Pick returns the candidate after the last winner, or the first candidate
// when none of them has a ticket yet.
func (HistoryRoundRobin) Pick(ctx context.Context, reader repository.Reader, _ string, candidates []domain.Analyst) (*domain.Analyst, error) {
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	last, err := reader.MostRecentTicketAssignedTo(ctx, ids)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return &candidates[0], nil
		}
		return nil, apperrors.MapError(err)
	}
	return &candidates[nextAfter(candidates, last.AnalystID)], nil
}

func nextAfter(candidates []domain.Analyst, lastID *int64) int {
	if lastID == nil {
		return 0
	}
	for i, c := range candidates {
		if c.ID == *lastID {
			return (i + 1) % len(candidates)
		}
	}
	return 0
}
