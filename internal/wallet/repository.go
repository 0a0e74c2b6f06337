package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w,
		`SELECT id, user_id, balance_credits, created_at, updated_at
		 FROM wallets
		 WHERE user_id = $1`,
		userID,
	)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = wallets.updated_at
		 RETURNING id, user_id, balance_credits, created_at, updated_at`,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// Credit adds credits to a wallet. Only positive amounts; debits belong to
// the unlock and campaign transactions that also write their own records.
func (r *repository) Credit(ctx context.Context, userID int, amount int64, feature string, metadata Metadata) (int64, error) {
	if amount <= 0 {
		return 0, errors.New("credit amount must be positive")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	w, err := LockForUpdate(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	newBalance, err := ApplyEntryTx(ctx, tx, w, feature, amount, metadata)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return newBalance, nil
}

func (r *repository) GetLedgerEntries(ctx context.Context, userID int, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, feature, amount, metadata, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Reconcile checks that the materialized wallet balance equals the sum of
// the user's ledger entries.
func (r *repository) Reconcile(ctx context.Context, userID int) (*Reconciliation, error) {
	w, err := r.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	var sum int64
	err = r.db.GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	return &Reconciliation{
		UserID:     userID,
		Balance:    w.BalanceCredits,
		LedgerSum:  sum,
		Consistent: w.BalanceCredits == sum,
	}, nil
}

func (r *repository) GetUserContact(ctx context.Context, userID int) (string, string, error) {
	var row struct {
		Email string `db:"email"`
		Name  string `db:"name"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT email, name FROM users WHERE id = $1`, userID)
	if err != nil {
		return "", "", err
	}
	return row.Email, row.Name, nil
}
