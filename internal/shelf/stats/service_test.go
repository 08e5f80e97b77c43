package stats

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf-backend/internal/platform/apierr"
)

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewService(conn), mock
}

func TestSummarize_CountsPerOwner(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE user_id = ?")).
		WithArgs("Read", "Lent Out", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "read", "lent"}).AddRow(12, 5, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM wishlist WHERE user_id = ?")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectCommit()

	got, err := svc.Summarize(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalBooks: 12, BooksRead: 5, BooksLent: 2, WishlistItems: 3}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarize_EmptyShelfIsAllZeros(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM books")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "read", "lent"}).AddRow(0, 0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wishlist")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectCommit()

	got, err := svc.Summarize(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, got)
}

func TestSummarize_StoreFault(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM books")).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := svc.Summarize(context.Background(), 1)
	assert.True(t, apierr.Is(err, apierr.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}
