package campaign

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/wallet"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// FeatureSend is the ledger feature for campaign debits. A partial unique
// index on (feature, metadata->>'campaign_id') guarantees at most one such
// entry per campaign.
const FeatureSend = "campaign_send"

const uniqueViolation = "23505"

const campaignColumns = `id, owner_id, name, subject, body, from_email, status,
	recipient_mode, recipient_filter, selected_ids, recipient_snapshot,
	charged_credits, created_at, updated_at, sent_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c *Campaign) (*Campaign, error) {
	created := &Campaign{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO campaigns (owner_id, name, subject, body, from_email, status,
		                       recipient_mode, recipient_filter, selected_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+campaignColumns,
		c.OwnerID, c.Name, c.Subject, c.Body, c.FromEmail, StatusDraft,
		c.RecipientMode, c.Filter, c.SelectedIDs,
	).StructScan(created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *repository) GetByID(ctx context.Context, ownerID int, id int64) (*Campaign, error) {
	c := &Campaign{}
	err := r.db.GetContext(ctx, c, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID int, limit, offset int) ([]Campaign, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	campaigns := []Campaign{}
	err := r.db.SelectContext(ctx, &campaigns, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *repository) ChargeAndMarkSending(ctx context.Context, c *Campaign, snapshot []int64, cost int64) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	w, err := wallet.LockForUpdate(ctx, tx, c.OwnerID)
	if err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE campaigns
		SET status = $1, recipient_snapshot = $2, charged_credits = $3, updated_at = NOW()
		WHERE id = $4 AND owner_id = $5 AND status = $6
	`, StatusSending, pq.Array(snapshot), cost, c.ID, c.OwnerID, StatusDraft)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, ErrNotDraft
	}

	balance, err := wallet.ApplyEntryTx(ctx, tx, w, FeatureSend, -cost, wallet.Metadata{
		"campaign_id":     strconv.FormatInt(c.ID, 10),
		"recipient_count": strconv.Itoa(len(snapshot)),
	})
	if err != nil {
		// The ledger index rejects a second campaign_send entry for this
		// campaign. That means a previous attempt already paid; the status
		// guard above normally catches this first, but the index is the
		// authority.
		if isUniqueViolation(err) {
			return 0, ErrAlreadyCharged
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return balance, nil
}

func (r *repository) MarkSent(ctx context.Context, id int64) error {
	return r.transition(ctx, id, StatusSending, StatusSent, true)
}

func (r *repository) MarkFailed(ctx context.Context, id int64) error {
	return r.transition(ctx, id, StatusSending, StatusFailed, false)
}

func (r *repository) transition(ctx context.Context, id int64, from, to Status, stampSent bool) error {
	query := `UPDATE campaigns SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	if stampSent {
		query = `UPDATE campaigns SET status = $1, updated_at = NOW(), sent_at = NOW() WHERE id = $2 AND status = $3`
	}

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
