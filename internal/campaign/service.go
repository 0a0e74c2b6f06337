package campaign

import (
	"context"
	"errors"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/metrics"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/sender"
)

// Dispatcher hands a charged campaign off for delivery. Implementations are
// expected to be idempotent per campaign: a retried Dispatch for the same
// campaign id must not double-send.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *Campaign, recipients []Recipient) error
}

type Service interface {
	Create(ctx context.Context, ownerID int, req CreateRequest) (*Campaign, error)
	Get(ctx context.Context, ownerID int, id int64) (*Campaign, error)
	List(ctx context.Context, ownerID int, limit, offset int) ([]Campaign, error)

	// Preview resolves the given recipient selection and reports count and
	// cost without charging anything. Advisory only.
	Preview(ctx context.Context, ownerID int, req PreviewRequest) (*PreviewResponse, error)

	// Send resolves the campaign's recipients authoritatively, charges the
	// owner's wallet, and dispatches delivery. Credits are consumed at the
	// moment of the send attempt; a downstream delivery failure marks the
	// campaign failed but does not refund.
	Send(ctx context.Context, ownerID int, id int64) (*SendResponse, error)
}

type service struct {
	repo       Repository
	resolver   *Resolver
	senders    sender.Service
	dispatcher Dispatcher
}

func NewService(repo Repository, resolver *Resolver, senders sender.Service, dispatcher Dispatcher) Service {
	return &service{
		repo:       repo,
		resolver:   resolver,
		senders:    senders,
		dispatcher: dispatcher,
	}
}

func (s *service) Create(ctx context.Context, ownerID int, req CreateRequest) (*Campaign, error) {
	if err := s.checkSender(ctx, ownerID, req.FromEmail); err != nil {
		return nil, err
	}

	c := &Campaign{
		OwnerID:       ownerID,
		Name:          req.Name,
		Subject:       req.Subject,
		Body:          req.Body,
		FromEmail:     sender.NormalizeEmail(req.FromEmail),
		RecipientMode: req.Mode,
		Filter:        req.Filter,
		SelectedIDs:   req.SelectedIDs,
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}

	logger.Info("Campaign created",
		"campaign_id", created.ID,
		"owner_id", ownerID,
		"recipient_mode", created.RecipientMode,
	)
	return created, nil
}

func (s *service) Get(ctx context.Context, ownerID int, id int64) (*Campaign, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

func (s *service) List(ctx context.Context, ownerID int, limit, offset int) ([]Campaign, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}

func (s *service) Preview(ctx context.Context, ownerID int, req PreviewRequest) (*PreviewResponse, error) {
	resolution, err := s.resolver.Resolve(ctx, ownerID, req.Mode, req.Filter, req.SelectedIDs)
	if err != nil {
		return nil, err
	}
	return &PreviewResponse{
		RecipientCount: len(resolution.Recipients),
		Cost:           resolution.Cost,
	}, nil
}

func (s *service) Send(ctx context.Context, ownerID int, id int64) (*SendResponse, error) {
	c, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusDraft {
		return nil, ErrNotDraft
	}

	if err := s.checkSender(ctx, ownerID, c.FromEmail); err != nil {
		return nil, err
	}

	// Resolution at send time is authoritative; whatever a preview showed
	// earlier is irrelevant now.
	resolution, err := s.resolver.Resolve(ctx, ownerID, c.RecipientMode, c.Filter, c.SelectedIDs)
	if err != nil {
		return nil, err
	}
	if len(resolution.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	snapshot := resolution.ContactIDs()
	balance, err := s.repo.ChargeAndMarkSending(ctx, c, snapshot, resolution.Cost)
	if err != nil {
		metrics.RecordCampaignSend("rejected")
		return nil, err
	}

	c.Status = StatusSending
	c.RecipientSnapshot = snapshot
	c.ChargedCredits = resolution.Cost
	metrics.RecordCreditsSpent(FeatureSend, resolution.Cost)

	if err := s.dispatcher.Dispatch(ctx, c, resolution.Recipients); err != nil {
		// Charged on attempt: the debit stands even though delivery never
		// started.
		logger.Error("Campaign dispatch failed",
			"campaign_id", c.ID,
			"owner_id", ownerID,
			"error", err,
		)
		if markErr := s.repo.MarkFailed(ctx, c.ID); markErr != nil {
			logger.Error("Failed to mark campaign failed", "campaign_id", c.ID, "error", markErr)
		}
		c.Status = StatusFailed
		metrics.RecordCampaignSend("failed")
		return nil, err
	}

	if err := s.repo.MarkSent(ctx, c.ID); err != nil {
		logger.Error("Failed to mark campaign sent", "campaign_id", c.ID, "error", err)
	} else {
		c.Status = StatusSent
	}

	metrics.RecordCampaignSend("sent")
	logger.Info("Campaign sent",
		"campaign_id", c.ID,
		"owner_id", ownerID,
		"recipients", len(resolution.Recipients),
		"charged", resolution.Cost,
	)

	return &SendResponse{
		Campaign:       c,
		RecipientCount: len(resolution.Recipients),
		Charged:        resolution.Cost,
		Balance:        balance,
	}, nil
}

// checkSender requires a verified sending identity whose address matches the
// campaign's from address.
func (s *service) checkSender(ctx context.Context, ownerID int, fromEmail string) error {
	identity, err := s.senders.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sender.ErrNoIdentity) {
			return ErrSenderNotReady
		}
		return err
	}
	if identity.Status != sender.StatusVerified {
		return ErrSenderNotReady
	}
	if sender.NormalizeEmail(identity.Email) != sender.NormalizeEmail(fromEmail) {
		return ErrFromMismatch
	}
	return nil
}
