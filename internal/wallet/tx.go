package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// LockForUpdate loads a user's wallet with a row lock, creating it lazily
// with a zero balance when it does not exist yet. The lock serializes every
// mutating operation for that user for the lifetime of tx; all debits and
// credits must happen under it.
func LockForUpdate(ctx context.Context, tx *sqlx.Tx, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := tx.QueryRowxContext(ctx,
		`SELECT id, user_id, balance_credits, created_at, updated_at
		 FROM wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(w)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 RETURNING id, user_id, balance_credits, created_at, updated_at`,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// ApplyEntryTx appends a ledger entry and moves the wallet balance by the
// same amount inside the caller's transaction. Both writes commit or roll
// back together. A debit that would push the balance below zero fails with
// InsufficientCreditsError and writes nothing.
func ApplyEntryTx(ctx context.Context, tx *sqlx.Tx, w *Wallet, feature string, amount int64, metadata Metadata) (int64, error) {
	newBalance := w.BalanceCredits + amount
	if newBalance < 0 {
		return 0, &InsufficientCreditsError{Needed: -amount, Have: w.BalanceCredits}
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE wallets
		 SET balance_credits = $1, updated_at = NOW()
		 WHERE id = $2`,
		newBalance, w.ID,
	)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (user_id, feature, amount, metadata)
		 VALUES ($1, $2, $3, $4)`,
		w.UserID, feature, amount, metadata,
	)
	if err != nil {
		return 0, err
	}

	w.BalanceCredits = newBalance
	return newBalance, nil
}
