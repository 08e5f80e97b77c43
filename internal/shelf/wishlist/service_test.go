package wishlist

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf-backend/internal/platform/apierr"
)

var itemCols = []string{"id", "user_id", "ref_no", "title", "author", "category", "series_name", "series_no", "remarks"}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewService(conn), mock
}

func TestCreate_UsesWishlistNumbering(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ref_counters")).
		WithArgs(int64(3), "wishlist").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT last_ref_no FROM ref_counters")).
		WillReturnRows(sqlmock.NewRows([]string{"last_ref_no"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(ref_no), 0) FROM wishlist")).
		WillReturnRows(sqlmock.NewRows([]string{"m"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ref_counters")).
		WithArgs(5, int64(3), "wishlist").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wishlist")).
		WithArgs(int64(3), 5, "Children of Dune", "Herbert", nil, "Dune", int64(3), nil).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectCommit()

	series, no := "Dune", int64(3)
	res, err := svc.Create(context.Background(), 3, CreateItemRequest{
		Title: "Children of Dune", Author: "Herbert", SeriesName: &series, SeriesNo: &no,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.RefNo)
	assert.Equal(t, int64(21), res.ID)
	assert.Equal(t, "Wishlist item added successfully", res.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RequiresTitleAndAuthor(t *testing.T) {
	svc, mock := newService(t)

	_, err := svc.Create(context.Background(), 1, CreateItemRequest{Title: "  ", Author: "x"})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_EmptyRequest(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM wishlist WHERE id = ? AND user_id = ? FOR UPDATE")).
		WithArgs(int64(8), int64(1)).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(8, 1, 2, "Emma", "Austen", nil, nil, nil, nil))
	mock.ExpectCommit()

	res, err := svc.Update(context.Background(), 1, 8, UpdateItemRequest{})
	require.NoError(t, err)
	assert.Equal(t, "No fields to update", res.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_ClearsRemarksAndSeriesNo(t *testing.T) {
	svc, mock := newService(t)
	empty, zero := "", int64(0)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(8, 1, 2, "Emma", "Austen", nil, nil, 4, "gift"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wishlist SET series_no = ?, remarks = ? WHERE id = ? AND user_id = ?")).
		WithArgs(nil, nil, int64(8), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Update(context.Background(), 1, 8, UpdateItemRequest{SeriesNo: &zero, Remarks: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Wishlist item updated successfully", res.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	svc, mock := newService(t)
	title := "x"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(sqlmock.NewRows(itemCols))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 1, 8, UpdateItemRequest{Title: &title})
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_FiltersBySeries(t *testing.T) {
	svc, mock := newService(t)
	series := "Dune"

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? AND series_name = ? ORDER BY series_name, series_no, id")).
		WithArgs(int64(1), "Dune").
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(1, 1, 1, "Dune Messiah", "Herbert", nil, "Dune", 2, nil).
			AddRow(2, 1, 2, "Children of Dune", "Herbert", nil, "Dune", 3, nil))

	res, err := svc.List(context.Background(), 1, &series)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, int64(2), *res[0].SeriesNo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_BlankSeriesMeansAll(t *testing.T) {
	svc, mock := newService(t)
	blank := ""

	mock.ExpectQuery(regexp.QuoteMeta("FROM wishlist WHERE user_id = ? ORDER BY")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(itemCols))

	res, err := svc.List(context.Background(), 1, &blank)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.NotNil(t, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_MatchesSeriesName(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(series_name) LIKE LOWER(?)")).
		WithArgs(int64(1), "%dune%", "%dune%", "%dune%", SearchLimit).
		WillReturnRows(sqlmock.NewRows(itemCols))

	_, err := svc.Search(context.Background(), 1, "dune")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesNames_ExcludesPlaceholders(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(regexp.QuoteMeta("TRIM(series_name) NOT IN ('', '-')")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"series_name"}).AddRow("Dune").AddRow("Foundation"))

	names, err := svc.SeriesNames(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "Foundation"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_OtherOwnerIsNotFound(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM wishlist WHERE id = ? AND user_id = ?")).
		WithArgs(int64(8), int64(2)).
		WillReturnRows(sqlmock.NewRows(itemCols))

	_, err := svc.Get(context.Background(), 2, 8)
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
}
