package usecase

import (
	"context"
	"fmt"

	"salon-booking/internal/data/repository"

	"go.uber.org/zap"
)

type SessionService interface {
	// Logout revokes the session behind the token. Idempotent: logging out an
	// already revoked token succeeds.
	Logout(ctx context.Context, token string) error
}

type sessionService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewSessionService(repo *repository.Repository, log *zap.Logger) SessionService {
	return &sessionService{
		repo: repo,
		log:  log.With(zap.String("service", "session")),
	}
}

func (s *sessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrValidation)
	}

	if err := s.repo.Session.Revoke(ctx, token); err != nil {
		s.log.Error("Failed to revoke session", zap.Error(err))
		return fmt.Errorf("revoke session: %w", err)
	}

	s.log.Info("Session revoked")
	return nil
}
