package unlock

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/wallet"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func walletRows(id int64, userID int, balance int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "balance_credits", "created_at", "updated_at"}).
		AddRow(id, userID, balance, now, now)
}

func existsRows(exists bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(exists)
}

func TestUnlockSingleCharges(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(walletRows(7, 1, 5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(1, int64(42), "contact").
		WillReturnRows(existsRows(false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO unlock_records")).
		WithArgs(1, int64(42), "contact").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(int64(4), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WithArgs(1, "unlock_contact", int64(-1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.UnlockSingle(context.Background(), 1, 42, "contact", 1)
	require.NoError(t, err)
	require.False(t, result.AlreadyUnlocked)
	require.Equal(t, int64(4), result.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockSingleRepeatIsNoop(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(walletRows(7, 1, 5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(1, int64(42), "contact").
		WillReturnRows(existsRows(true))
	mock.ExpectRollback()

	result, err := repo.UnlockSingle(context.Background(), 1, 42, "contact", 1)
	require.NoError(t, err)
	require.True(t, result.AlreadyUnlocked)
	// the balance is reported unchanged
	require.Equal(t, int64(5), result.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockSingleInsufficient(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(walletRows(7, 1, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(1, int64(42), "company").
		WillReturnRows(existsRows(false))
	mock.ExpectRollback()

	_, err := repo.UnlockSingle(context.Background(), 1, 42, "company", 2)

	var insufficient *wallet.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, int64(2), insufficient.Needed)
	require.Equal(t, int64(0), insufficient.Have)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockSingleRaceLosesToConstraint(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(walletRows(7, 1, 5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(1, int64(42), "contact").
		WillReturnRows(existsRows(false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO unlock_records")).
		WithArgs(1, int64(42), "contact").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance_credits")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"balance_credits"}).AddRow(5))
	mock.ExpectRollback()

	result, err := repo.UnlockSingle(context.Background(), 1, 42, "contact", 1)
	require.NoError(t, err)
	require.True(t, result.AlreadyUnlocked)
	require.Equal(t, int64(5), result.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockBulkAllOrNothing(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	ids := []int64{10, 11, 12}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(walletRows(7, 1, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT resource_id FROM unlock_records")).
		WithArgs(1, "contact", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"resource_id"}))
	mock.ExpectRollback()

	// three locked items at 1 credit each against a balance of 2
	_, err := repo.UnlockBulk(context.Background(), 1, ids, "contact", 1)

	var insufficient *wallet.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, int64(3), insufficient.Needed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockBulkChargesOnlyLocked(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	ids := []int64{10, 11, 12}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(walletRows(7, 1, 10))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT resource_id FROM unlock_records")).
		WithArgs(1, "contact", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"resource_id"}).AddRow(11))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO unlock_records")).
		WithArgs(1, int64(10), "contact").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO unlock_records")).
		WithArgs(1, int64(12), "contact").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(int64(8), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WithArgs(1, "unlock_contact_bulk", int64(-2), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.UnlockBulk(context.Background(), 1, ids, "contact", 1)
	require.NoError(t, err)
	require.Equal(t, []int64{10, 12}, result.UnlockedIDs)
	require.Equal(t, []int64{11}, result.AlreadyUnlocked)
	require.Equal(t, int64(2), result.TotalCharged)
	require.Equal(t, int64(8), result.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockBulkAllAlreadyUnlocked(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	ids := []int64{10, 11}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(walletRows(7, 1, 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT resource_id FROM unlock_records")).
		WithArgs(1, "contact", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"resource_id"}).AddRow(10).AddRow(11))
	mock.ExpectRollback()

	result, err := repo.UnlockBulk(context.Background(), 1, ids, "contact", 1)
	require.NoError(t, err)
	require.Empty(t, result.UnlockedIDs)
	require.Equal(t, int64(0), result.TotalCharged)
	require.Equal(t, int64(3), result.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubtractDedupes(t *testing.T) {
	got := subtract([]int64{5, 5, 6, 7, 6}, []int64{6})
	require.Equal(t, []int64{5, 7}, got)
}
