package contact

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func contactRows(unlocked bool, ids ...int64) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "phone", "title", "company", "location", "created_at", "unlocked"})
	for _, id := range ids {
		rows.AddRow(id, "Person", "person@corp.com", "", "CTO", "Corp", "Berlin", now, unlocked)
	}
	return rows
}

func TestGetContactByIDComputesUnlocked(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts c")).
		WithArgs(1, int64(42)).
		WillReturnRows(contactRows(true, 42))

	c, err := repo.GetContactByID(context.Background(), 1, 42)
	require.NoError(t, err)
	require.True(t, c.Unlocked)
	require.Equal(t, int64(42), c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetContactByIDNotFound(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts c")).
		WithArgs(1, int64(999)).
		WillReturnRows(contactRows(false))

	_, err := repo.GetContactByID(context.Background(), 1, 999)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectUnlockedByIDsEmptyInput(t *testing.T) {
	repo, _, close := setupRepo(t)
	defer close()

	contacts, err := repo.SelectUnlockedByIDs(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Empty(t, contacts)
}

func TestSelectUnlockedByIDs(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("JOIN unlock_records u")).
		WithArgs(1, sqlmock.AnyArg()).
		WillReturnRows(contactRows(true, 10, 12))

	contacts, err := repo.SelectUnlockedByIDs(context.Background(), 1, []int64{10, 11, 12})
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterExisting(t *testing.T) {
	repo, mock, close := setupRepo(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM contacts WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	existing, err := repo.FilterExisting(context.Background(), "contact", []int64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, existing)
	require.NoError(t, mock.ExpectationsWereMet())
}
