package unlock

import (
	"context"
	"errors"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/contact"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/metrics"
)

var (
	ErrResourceNotFound    = errors.New("resource not found")
	ErrInvalidResourceType = errors.New("invalid resource type")
	ErrEmptyBatch          = errors.New("no resource ids given")
)

// Prices configures the per-type unlock cost in credits.
type Prices struct {
	Contact int64
	Company int64
}

func (p Prices) For(resourceType string) int64 {
	if resourceType == TypeCompany {
		return p.Company
	}
	return p.Contact
}

type Service interface {
	Unlock(ctx context.Context, userID int, resourceID int64, resourceType string) (*SingleResult, error)
	UnlockBulk(ctx context.Context, userID int, resourceIDs []int64, resourceType string) (*BulkResult, error)
}

type service struct {
	repo        Repository
	contactRepo contact.Repository
	prices      Prices
}

func NewService(repo Repository, contactRepo contact.Repository, prices Prices) Service {
	return &service{
		repo:        repo,
		contactRepo: contactRepo,
		prices:      prices,
	}
}

func (s *service) Unlock(ctx context.Context, userID int, resourceID int64, resourceType string) (*SingleResult, error) {
	if !ValidResourceType(resourceType) {
		return nil, ErrInvalidResourceType
	}

	exists, err := s.resourceExists(ctx, resourceID, resourceType)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrResourceNotFound
	}

	result, err := s.repo.UnlockSingle(ctx, userID, resourceID, resourceType, s.prices.For(resourceType))
	if err != nil {
		metrics.RecordUnlock(resourceType, "failed")
		return nil, err
	}

	if result.AlreadyUnlocked {
		metrics.RecordUnlock(resourceType, "noop")
	} else {
		metrics.RecordUnlock(resourceType, "charged")
		metrics.RecordCreditsSpent("unlock_"+resourceType, s.prices.For(resourceType))
		logger.Info("Resource unlocked",
			"user_id", userID,
			"resource_id", resourceID,
			"resource_type", resourceType,
			"balance", result.Balance,
		)
	}

	return result, nil
}

func (s *service) UnlockBulk(ctx context.Context, userID int, resourceIDs []int64, resourceType string) (*BulkResult, error) {
	if !ValidResourceType(resourceType) {
		return nil, ErrInvalidResourceType
	}
	if len(resourceIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	existing, err := s.contactRepo.FilterExisting(ctx, resourceType, resourceIDs)
	if err != nil {
		return nil, err
	}
	if len(existing) != countDistinct(resourceIDs) {
		return nil, ErrResourceNotFound
	}

	result, err := s.repo.UnlockBulk(ctx, userID, resourceIDs, resourceType, s.prices.For(resourceType))
	if err != nil {
		metrics.RecordUnlock(resourceType, "failed")
		return nil, err
	}

	if len(result.UnlockedIDs) > 0 {
		metrics.RecordUnlock(resourceType, "charged")
		metrics.RecordCreditsSpent("unlock_"+resourceType, result.TotalCharged)
		logger.Info("Bulk unlock",
			"user_id", userID,
			"resource_type", resourceType,
			"unlocked", len(result.UnlockedIDs),
			"already_unlocked", len(result.AlreadyUnlocked),
			"charged", result.TotalCharged,
			"balance", result.Balance,
		)
	}

	return result, nil
}

func (s *service) resourceExists(ctx context.Context, resourceID int64, resourceType string) (bool, error) {
	if resourceType == TypeCompany {
		return s.contactRepo.CompanyExists(ctx, resourceID)
	}
	return s.contactRepo.ContactExists(ctx, resourceID)
}

func countDistinct(ids []int64) int {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
