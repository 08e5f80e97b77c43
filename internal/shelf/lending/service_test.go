package lending

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/shelf/books"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

var recordCols = []string{"id", "user_id", "book_id", "borrower_name", "borrow_date", "return_date", "return_status"}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	svc := NewService(conn)
	svc.clock = fixedClock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	return svc, mock
}

func expectLockBook(mock sqlmock.Sqlmock, owner, bookID int64, status string) {
	rows := sqlmock.NewRows([]string{"lending_status"})
	if status != "" {
		rows.AddRow(status)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT lending_status FROM books WHERE id = ? AND user_id = ? FOR UPDATE")).
		WithArgs(bookID, owner).
		WillReturnRows(rows)
}

func lendReq() LendRequest {
	return LendRequest{BookID: 5, BorrowerName: "Alice", BorrowDate: "2026-10-01"}
}

func TestLend_InsertsRecordAndFlipsBook(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	expectLockBook(mock, 1, 5, books.LendingAvailable)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lending")).
		WithArgs(int64(5), int64(1), StatusNotReturned).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lending")).
		WithArgs(int64(1), int64(5), "Alice", "2026-10-01", nil, StatusNotReturned).
		WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET lending_status = ?")).
		WithArgs(books.LendingLentOut, int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Lend(context.Background(), 1, lendReq())
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLend_AlreadyLentOutIsConflict(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	expectLockBook(mock, 1, 5, books.LendingLentOut)
	mock.ExpectRollback()

	_, err := svc.Lend(context.Background(), 1, lendReq())
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLend_OpenRecordWithStaleStatusIsConflict(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	expectLockBook(mock, 1, 5, books.LendingAvailable)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lending")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.Lend(context.Background(), 1, lendReq())
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLend_OtherOwnersBookIsNotFound(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	expectLockBook(mock, 2, 5, "")
	mock.ExpectRollback()

	_, err := svc.Lend(context.Background(), 2, lendReq())
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLend_StatusUpdateFailureRollsBack(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	expectLockBook(mock, 1, 5, books.LendingAvailable)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lending")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lending")).WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET lending_status = ?")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := svc.Lend(context.Background(), 1, lendReq())
	assert.True(t, apierr.Is(err, apierr.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLend_Validation(t *testing.T) {
	svc, mock := newService(t)

	cases := map[string]LendRequest{
		"no book":     {BorrowerName: "Alice", BorrowDate: "2026-10-01"},
		"no borrower": {BookID: 5, BorrowDate: "2026-10-01"},
		"no date":     {BookID: 5, BorrowerName: "Alice"},
		"bad date":    {BookID: 5, BorrowerName: "Alice", BorrowDate: "yesterday"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Lend(context.Background(), 1, in)
			assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReturned_DefaultsToToday(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM lending l WHERE l.id = ? AND l.user_id = ? FOR UPDATE")).
		WithArgs(int64(30), int64(1)).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(30, 1, 5, "Alice", "2026-10-01", nil, StatusNotReturned))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lending SET return_status = ?, return_date = ?")).
		WithArgs(StatusReturned, "2026-10-18", int64(30), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET lending_status = ?")).
		WithArgs(books.LendingAvailable, int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.MarkReturned(context.Background(), 1, 30, ReturnRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Book marked as returned successfully", res.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReturned_BookDeletedStillSucceeds(t *testing.T) {
	svc, mock := newService(t)
	date := "2026-10-10"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(30, 1, 5, "Alice", "2026-10-01", nil, StatusNotReturned))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lending SET")).
		WithArgs(StatusReturned, date, int64(30), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	_, err := svc.MarkReturned(context.Background(), 1, 30, ReturnRequest{ReturnDate: &date})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReturned_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		svc, mock := newService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(sqlmock.NewRows(recordCols))
		mock.ExpectRollback()

		_, err := svc.MarkReturned(context.Background(), 1, 99, ReturnRequest{})
		assert.True(t, apierr.Is(err, apierr.CodeNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already returned", func(t *testing.T) {
		svc, mock := newService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WillReturnRows(sqlmock.NewRows(recordCols).AddRow(30, 1, 5, "Alice", "2026-10-01", "2026-10-05", StatusReturned))
		mock.ExpectRollback()

		_, err := svc.MarkReturned(context.Background(), 1, 30, ReturnRequest{})
		assert.True(t, apierr.Is(err, apierr.CodeConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAll_KeepsRecordsOfDeletedBooks(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN books b ON b.id = l.book_id")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(append(recordCols, "title")).
			AddRow(31, 1, 6, "Bob", "2026-10-02", nil, StatusNotReturned, "Emma").
			AddRow(30, 1, 5, "Alice", "2026-10-01", "2026-10-05", StatusReturned, nil))

	res, err := svc.All(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, "Emma", *res[0].BookTitle)
	assert.True(t, res[0].BookInCatalog)
	assert.Nil(t, res[1].BookTitle)
	assert.False(t, res[1].BookInCatalog)
	assert.Equal(t, "2026-10-05", *res[1].ReturnDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryForBook_NewestFirst(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY l.borrow_date DESC, l.id DESC")).
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow(31, 1, 5, "Bob", "2026-10-02", nil, StatusNotReturned).
			AddRow(30, 1, 5, "Alice", "2026-09-01", "2026-09-05", StatusReturned))

	res, err := svc.HistoryForBook(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Bob", res[0].BorrowerName)
	assert.Nil(t, res[0].ReturnDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
