package sender

import (
	"context"
	"errors"
	"strings"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/metrics"
)

type Service interface {
	// StartVerify begins verification of email as the user's sending
	// identity. Re-verifying the currently stored address is always allowed
	// and never consumes the change budget; switching to a new address does.
	StartVerify(ctx context.Context, userID int, email string) (*SenderIdentity, error)

	// CheckStatus asks the provider for the current verification state and
	// writes it back. Provider failure is recorded as the error status.
	CheckStatus(ctx context.Context, userID int) (*SenderIdentity, error)

	// Get returns the stored identity without contacting the provider.
	Get(ctx context.Context, userID int) (*SenderIdentity, error)

	ChangeLimit() int
}

type service struct {
	repo        Repository
	provider    Provider
	changeLimit int
}

func NewService(repo Repository, provider Provider, changeLimit int) Service {
	return &service{
		repo:        repo,
		provider:    provider,
		changeLimit: changeLimit,
	}
}

func (s *service) StartVerify(ctx context.Context, userID int, email string) (*SenderIdentity, error) {
	email = NormalizeEmail(email)

	current, err := s.repo.GetByUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrNoIdentity) {
		return nil, err
	}

	changeCount := 0
	if current != nil {
		changeCount = current.ChangeCount
	}

	sameEmail := current != nil && NormalizeEmail(current.Email) == email
	if !sameEmail {
		if changeCount >= s.changeLimit {
			metrics.SenderVerificationsTotal.WithLabelValues("limit_exceeded").Inc()
			return nil, &ChangeLimitExceededError{Limit: s.changeLimit, Used: changeCount}
		}
		changeCount++
	}

	identityID, err := s.provider.StartVerification(ctx, email)
	if err != nil {
		metrics.SenderVerificationsTotal.WithLabelValues("provider_error").Inc()
		return nil, err
	}

	identity, err := s.repo.Upsert(ctx, userID, email, identityID, StatusPending, changeCount)
	if err != nil {
		return nil, err
	}

	metrics.SenderVerificationsTotal.WithLabelValues("started").Inc()
	logger.Info("Sender verification started",
		"user_id", userID,
		"change_count", identity.ChangeCount,
		"reverify", sameEmail,
	)

	return identity, nil
}

func (s *service) CheckStatus(ctx context.Context, userID int) (*SenderIdentity, error) {
	identity, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	status, err := s.provider.GetStatus(ctx, identity.IdentityID, identity.Email)
	if err != nil {
		logger.Error("Verification provider check failed", "user_id", userID, "error", err)
		status = StatusError
	}

	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		return nil, err
	}

	identity.Status = status
	return identity, nil
}

func (s *service) Get(ctx context.Context, userID int) (*SenderIdentity, error) {
	return s.repo.GetByUser(ctx, userID)
}

func (s *service) ChangeLimit() int {
	return s.changeLimit
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
