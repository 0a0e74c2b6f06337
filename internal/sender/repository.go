package sender

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrNoIdentity = errors.New("no sender identity configured")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByUser(ctx context.Context, userID int) (*SenderIdentity, error) {
	identity := &SenderIdentity{}
	err := r.db.GetContext(ctx, identity, `
		SELECT id, user_id, email, identity_id, status, change_count, created_at, updated_at
		FROM sender_identities
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoIdentity
	}
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (r *repository) Upsert(ctx context.Context, userID int, email, identityID string, status Status, changeCount int) (*SenderIdentity, error) {
	identity := &SenderIdentity{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO sender_identities (user_id, email, identity_id, status, change_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET email = EXCLUDED.email,
		    identity_id = EXCLUDED.identity_id,
		    status = EXCLUDED.status,
		    change_count = EXCLUDED.change_count,
		    updated_at = NOW()
		RETURNING id, user_id, email, identity_id, status, change_count, created_at, updated_at
	`, userID, email, identityID, status, changeCount).StructScan(identity)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (r *repository) UpdateStatus(ctx context.Context, userID int, status Status) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sender_identities
		SET status = $1, updated_at = NOW()
		WHERE user_id = $2
	`, status, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNoIdentity
	}
	return nil
}
