package wallet

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupTx(t *testing.T) (*sqlx.Tx, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	mock.ExpectBegin()
	tx, err := sqlxDB.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	return tx, mock, func() { sqlxDB.Close() }
}

func walletRows(id int64, userID int, balance int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "balance_credits", "created_at", "updated_at"}).
		AddRow(id, userID, balance, now, now)
}

func TestLockForUpdateExisting(t *testing.T) {
	tx, mock, close := setupTx(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(walletRows(7, 1, 25))

	w, err := LockForUpdate(context.Background(), tx, 1)
	require.NoError(t, err)
	require.Equal(t, 7, w.ID)
	require.Equal(t, int64(25), w.BalanceCredits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockForUpdateCreatesLazily(t *testing.T) {
	tx, mock, close := setupTx(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance_credits", "created_at", "updated_at"}))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets")).
		WithArgs(2).
		WillReturnRows(walletRows(8, 2, 0))

	w, err := LockForUpdate(context.Background(), tx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(0), w.BalanceCredits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyEntryTxDebit(t *testing.T) {
	tx, mock, close := setupTx(t)
	defer close()

	w := &Wallet{ID: 7, UserID: 1, BalanceCredits: 10}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(int64(8), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WithArgs(1, "unlock_contact", int64(-2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	balance, err := ApplyEntryTx(context.Background(), tx, w, "unlock_contact", -2, Metadata{"resource_id": "42"})
	require.NoError(t, err)
	require.Equal(t, int64(8), balance)
	require.Equal(t, int64(8), w.BalanceCredits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyEntryTxInsufficient(t *testing.T) {
	tx, mock, close := setupTx(t)
	defer close()

	w := &Wallet{ID: 7, UserID: 1, BalanceCredits: 3}

	_, err := ApplyEntryTx(context.Background(), tx, w, "campaign_send", -5, nil)

	var insufficient *InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, int64(5), insufficient.Needed)
	require.Equal(t, int64(3), insufficient.Have)
	// balance untouched, nothing written
	require.Equal(t, int64(3), w.BalanceCredits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataRoundTrip(t *testing.T) {
	m := Metadata{"campaign_id": "9"}

	v, err := m.Value()
	require.NoError(t, err)

	var got Metadata
	require.NoError(t, got.Scan(v))
	require.Equal(t, m, got)
}
