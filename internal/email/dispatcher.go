package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/campaign"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"

	"github.com/redis/go-redis/v9"
)

// dispatchTTL bounds how long a campaign's dispatch marker lives. Within the
// window a retried Dispatch for the same campaign is a no-op.
const dispatchTTL = 24 * time.Hour

// Dispatcher fans a charged campaign out into one queued email per
// recipient. A SETNX marker keyed by campaign id makes Dispatch idempotent,
// so a crash between charge and send cannot double-deliver on retry.
type Dispatcher struct {
	redis *redis.Client
	mail  *Service
}

func NewDispatcher(mail *Service) *Dispatcher {
	return &Dispatcher{redis: mail.Client(), mail: mail}
}

func (d *Dispatcher) Dispatch(ctx context.Context, c *campaign.Campaign, recipients []campaign.Recipient) error {
	key := fmt.Sprintf("campaign:dispatch:%d", c.ID)
	acquired, err := d.redis.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), dispatchTTL).Result()
	if err != nil {
		return fmt.Errorf("dispatch marker for campaign %d: %w", c.ID, err)
	}
	if !acquired {
		logger.Info("Campaign already dispatched, skipping", "campaign_id", c.ID)
		return nil
	}

	for _, r := range recipients {
		err := d.mail.Queue(ctx, EmailJob{
			CampaignID: c.ID,
			To:         r.Email,
			Name:       r.Name,
			FromEmail:  c.FromEmail,
			Subject:    c.Subject,
			Body:       personalize(c.Body, r),
		})
		if err != nil {
			return fmt.Errorf("queue email for campaign %d: %w", c.ID, err)
		}
	}

	logger.Info("Campaign dispatched", "campaign_id", c.ID, "recipients", len(recipients))
	return nil
}

// personalize substitutes the one supported template token.
func personalize(body string, r campaign.Recipient) string {
	if r.Name == "" {
		return body
	}
	return strings.ReplaceAll(body, "{{name}}", r.Name)
}
