package books

import (
	"context"
	"database/sql"
	"strings"

	"bookshelf-backend/internal/platform/db"
)

const bookColumns = `id, user_id, ref_no, title, author, category, series_name, series_no,
	DATE_FORMAT(purchase_date, '%Y-%m-%d'), reading_status, personal_notes, book_images, lending_status`

// 全クエリは user_id で絞る。他オーナーの行は存在しないものとして扱う
type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(sc scanner) (*Book, error) {
	var b Book
	var images sql.NullString
	if err := sc.Scan(
		&b.ID, &b.UserID, &b.RefNo, &b.Title, &b.Author, &b.Category, &b.SeriesName, &b.SeriesNo,
		&b.PurchaseDate, &b.ReadingStatus, &b.PersonalNotes, &images, &b.LendingStatus,
	); err != nil {
		return nil, err
	}
	b.Images = SplitImages(images)
	return &b, nil
}

func (s *Store) queryBooks(ctx context.Context, q string, args ...any) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, owner int64) ([]Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE user_id = ? ORDER BY series_name, series_no`
	return s.queryBooks(ctx, q, owner)
}

// ListPaged: q は Service 側で正規化済み（ソート列はホワイトリスト済み）
func (s *Store) ListPaged(ctx context.Context, owner int64, q ListQuery) ([]Book, int64, error) {
	where := "WHERE user_id = ?"
	args := []any{owner}
	if q.Category != nil {
		where += " AND category = ?"
		args = append(args, *q.Category)
	}
	if q.ReadingStatus != nil {
		where += " AND reading_status = ?"
		args = append(args, *q.ReadingStatus)
	}
	if q.SeriesName != nil {
		where += " AND series_name = ?"
		args = append(args, *q.SeriesName)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := strings.ToUpper(q.SortOrder)
	selectSQL := `SELECT ` + bookColumns + ` FROM books ` + where +
		` ORDER BY ` + q.SortBy + ` ` + order + `, id ` + order + ` LIMIT ? OFFSET ?`
	offset := (q.Page - 1) * q.PageSize
	queryArgs := append(append([]any{}, args...), q.PageSize, offset)

	items, err := s.queryBooks(ctx, selectSQL, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) Search(ctx context.Context, owner int64, text string, limit int) ([]Book, error) {
	like := LikePattern(text)
	q := `SELECT ` + bookColumns + ` FROM books
	WHERE user_id = ?
	AND (LOWER(title) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?) OR LOWER(category) LIKE LOWER(?))
	ORDER BY title, id
	LIMIT ?`
	return s.queryBooks(ctx, q, owner, like, like, like, limit)
}

func (s *Store) Get(ctx context.Context, owner, id int64) (*Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE id = ? AND user_id = ?`
	return scanBook(s.db.QueryRowContext(ctx, q, id, owner))
}

func (s *Store) SeriesSiblings(ctx context.Context, owner int64, seriesName string, exclude int64) ([]SeriesBook, error) {
	const q = `
	SELECT id, title, series_no, reading_status, lending_status
	FROM books
	WHERE series_name = ? AND user_id = ? AND id <> ?
	ORDER BY series_no, id`
	rows, err := s.db.QueryContext(ctx, q, seriesName, owner, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SeriesBook{}
	for rows.Next() {
		var sb SeriesBook
		var no sql.NullInt64
		if err := rows.Scan(&sb.ID, &sb.Title, &no, &sb.ReadingStatus, &sb.LendingStatus); err != nil {
			return nil, err
		}
		if no.Valid {
			v := no.Int64
			sb.SeriesNo = &v
		}
		out = append(out, sb)
	}
	return out, rows.Err()
}

// OpenLending: 未返却の最新レコード。なければ nil
func (s *Store) OpenLending(ctx context.Context, owner, bookID int64) (*LendingDetails, error) {
	const q = `
	SELECT borrower_name, DATE_FORMAT(borrow_date, '%Y-%m-%d'), DATE_FORMAT(return_date, '%Y-%m-%d')
	FROM lending
	WHERE book_id = ? AND user_id = ? AND return_status = 'Not Returned'
	ORDER BY borrow_date DESC, id DESC
	LIMIT 1`
	var d LendingDetails
	var ret sql.NullString
	err := s.db.QueryRowContext(ctx, q, bookID, owner).Scan(&d.BorrowerName, &d.BorrowDate, &ret)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ret.Valid {
		v := ret.String
		d.ReturnDate = &v
	}
	return &d, nil
}

func (s *Store) SeriesNames(ctx context.Context, owner int64) ([]string, error) {
	return DistinctSeriesNames(ctx, s.db, "books", owner)
}

// InsertTx は ref_no を含めてそのまま INSERT する（採番は呼び出し側の責務）
func InsertTx(ctx context.Context, tx db.DBTX, b *Book) error {
	const q = `
	INSERT INTO books
	(user_id, ref_no, title, author, category, series_name, series_no,
	 purchase_date, reading_status, personal_notes, book_images, lending_status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if b.LendingStatus == "" {
		b.LendingStatus = LendingAvailable
	}
	res, err := tx.ExecContext(ctx, q,
		b.UserID, b.RefNo, b.Title, b.Author,
		nullOrNil(b.Category), nullOrNil(b.SeriesName), nullIntOrNil(b.SeriesNo),
		nullOrNil(b.PurchaseDate), b.ReadingStatus, nullOrNil(b.PersonalNotes),
		JoinImages(b.Images), b.LendingStatus,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

// lockImages: 更新対象の行をロックして現在の画像リストを返す
func lockImages(ctx context.Context, tx db.DBTX, owner, id int64) ([]string, error) {
	const q = `SELECT book_images FROM books WHERE id = ? AND user_id = ? FOR UPDATE`
	var images sql.NullString
	if err := tx.QueryRowContext(ctx, q, id, owner).Scan(&images); err != nil {
		return nil, err
	}
	return SplitImages(images), nil
}

// updateTx: 指定されたフィールドだけを SET する
func updateTx(ctx context.Context, tx db.DBTX, owner, id int64, in UpdateBookRequest) error {
	sets := []string{}
	args := []any{}
	if in.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *in.Title)
	}
	if in.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *in.Author)
	}
	if in.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, emptyToNil(*in.Category))
	}
	if in.SeriesName != nil {
		sets = append(sets, "series_name = ?")
		args = append(args, emptyToNil(*in.SeriesName))
	}
	if in.SeriesNo != nil {
		sets = append(sets, "series_no = ?")
		if *in.SeriesNo == 0 {
			args = append(args, nil)
		} else {
			args = append(args, *in.SeriesNo)
		}
	}
	if in.PurchaseDate != nil {
		sets = append(sets, "purchase_date = ?")
		args = append(args, emptyToNil(*in.PurchaseDate))
	}
	if in.ReadingStatus != nil {
		sets = append(sets, "reading_status = ?")
		args = append(args, *in.ReadingStatus)
	}
	if in.PersonalNotes != nil {
		sets = append(sets, "personal_notes = ?")
		args = append(args, emptyToNil(*in.PersonalNotes))
	}
	if in.Images != nil {
		sets = append(sets, "book_images = ?")
		args = append(args, JoinImages(*in.Images))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id, owner)
	q := `UPDATE books SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

func (s *Store) Delete(ctx context.Context, owner, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ? AND user_id = ?`, id, owner)
	return err
}

// DistinctSeriesNames: プレースホルダ（"-" など）を除いたシリーズ名の一覧
func DistinctSeriesNames(ctx context.Context, conn db.DBTX, table string, owner int64) ([]string, error) {
	if table != "books" && table != "wishlist" {
		return nil, sql.ErrNoRows
	}
	q := `
	SELECT DISTINCT series_name
	FROM ` + table + `
	WHERE user_id = ?
	AND series_name IS NOT NULL
	AND TRIM(series_name) NOT IN ('', '-')
	ORDER BY series_name ASC`
	rows, err := conn.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// LikePattern は検索語を部分一致用にエスケープする
func LikePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}

// ===== helpers =====

func nullOrNil(ns sql.NullString) any {
	if ns.Valid {
		return ns.String
	}
	return nil
}

func nullIntOrNil(ni sql.NullInt64) any {
	if ni.Valid {
		return ni.Int64
	}
	return nil
}

func emptyToNil(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
