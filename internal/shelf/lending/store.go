package lending

import (
	"context"
	"database/sql"

	"bookshelf-backend/internal/platform/db"
)

const recordColumns = `l.id, l.user_id, l.book_id, l.borrower_name,
	DATE_FORMAT(l.borrow_date, '%Y-%m-%d'), DATE_FORMAT(l.return_date, '%Y-%m-%d'), l.return_status`

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner, extra ...any) (*Record, error) {
	var r Record
	dest := append([]any{
		&r.ID, &r.UserID, &r.BookID, &r.BorrowerName, &r.BorrowDate, &r.ReturnDate, &r.ReturnStatus,
	}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) HistoryForBook(ctx context.Context, owner, bookID int64) ([]Record, error) {
	q := `SELECT ` + recordColumns + ` FROM lending l
	WHERE l.book_id = ? AND l.user_id = ?
	ORDER BY l.borrow_date DESC, l.id DESC`
	rows, err := s.db.QueryContext(ctx, q, bookID, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// All: 本が削除済みでも履歴は返す（LEFT JOIN）
func (s *Store) All(ctx context.Context, owner int64) ([]RecordWithTitle, error) {
	q := `SELECT ` + recordColumns + `, b.title FROM lending l
	LEFT JOIN books b ON b.id = l.book_id AND b.user_id = l.user_id
	WHERE l.user_id = ?
	ORDER BY l.borrow_date DESC, l.id DESC`
	rows, err := s.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RecordWithTitle{}
	for rows.Next() {
		var title sql.NullString
		r, err := scanRecord(rows, &title)
		if err != nil {
			return nil, err
		}
		out = append(out, RecordWithTitle{Record: *r, BookTitle: title})
	}
	return out, rows.Err()
}

// ===== Tx 内で使う操作 =====

// lockBook: 本の行をロックして貸出状態を返す
func lockBook(ctx context.Context, tx db.DBTX, owner, bookID int64) (string, error) {
	const q = `SELECT lending_status FROM books WHERE id = ? AND user_id = ? FOR UPDATE`
	var status string
	err := tx.QueryRowContext(ctx, q, bookID, owner).Scan(&status)
	return status, err
}

func countOpen(ctx context.Context, tx db.DBTX, owner, bookID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM lending WHERE book_id = ? AND user_id = ? AND return_status = ?`
	var n int
	err := tx.QueryRowContext(ctx, q, bookID, owner, StatusNotReturned).Scan(&n)
	return n, err
}

func insertRecord(ctx context.Context, tx db.DBTX, r *Record) error {
	const q = `
	INSERT INTO lending (user_id, book_id, borrower_name, borrow_date, return_date, return_status)
	VALUES (?, ?, ?, ?, ?, ?)`
	var ret any
	if r.ReturnDate.Valid {
		ret = r.ReturnDate.String
	}
	res, err := tx.ExecContext(ctx, q, r.UserID, r.BookID, r.BorrowerName, r.BorrowDate, ret, r.ReturnStatus)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func lockRecord(ctx context.Context, tx db.DBTX, owner, id int64) (*Record, error) {
	q := `SELECT ` + recordColumns + ` FROM lending l WHERE l.id = ? AND l.user_id = ? FOR UPDATE`
	return scanRecord(tx.QueryRowContext(ctx, q, id, owner))
}

func markReturned(ctx context.Context, tx db.DBTX, owner, id int64, returnDate string) error {
	const q = `UPDATE lending SET return_status = ?, return_date = ? WHERE id = ? AND user_id = ?`
	_, err := tx.ExecContext(ctx, q, StatusReturned, returnDate, id, owner)
	return err
}

// setBookStatus は更新件数を返す。本が削除済みなら 0
func setBookStatus(ctx context.Context, tx db.DBTX, owner, bookID int64, status string) (int64, error) {
	const q = `UPDATE books SET lending_status = ? WHERE id = ? AND user_id = ?`
	res, err := tx.ExecContext(ctx, q, status, bookID, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
