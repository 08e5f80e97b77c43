package wishlist

import (
	"context"
	"database/sql"
	"strings"

	"bookshelf-backend/internal/platform/db"
	"bookshelf-backend/internal/shelf/books"
)

const itemColumns = `id, user_id, ref_no, title, author, category, series_name, series_no, remarks`

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (*Item, error) {
	var it Item
	if err := sc.Scan(
		&it.ID, &it.UserID, &it.RefNo, &it.Title, &it.Author,
		&it.Category, &it.SeriesName, &it.SeriesNo, &it.Remarks,
	); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) queryItems(ctx context.Context, q string, args ...any) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// List: seriesName が nil なら全件
func (s *Store) List(ctx context.Context, owner int64, seriesName *string) ([]Item, error) {
	q := `SELECT ` + itemColumns + ` FROM wishlist WHERE user_id = ?`
	args := []any{owner}
	if seriesName != nil {
		q += ` AND series_name = ?`
		args = append(args, *seriesName)
	}
	q += ` ORDER BY series_name, series_no, id`
	return s.queryItems(ctx, q, args...)
}

func (s *Store) Search(ctx context.Context, owner int64, text string, limit int) ([]Item, error) {
	like := books.LikePattern(text)
	q := `SELECT ` + itemColumns + ` FROM wishlist
	WHERE user_id = ?
	AND (LOWER(title) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?) OR LOWER(series_name) LIKE LOWER(?))
	ORDER BY series_name, series_no, id
	LIMIT ?`
	return s.queryItems(ctx, q, owner, like, like, like, limit)
}

func (s *Store) Get(ctx context.Context, owner, id int64) (*Item, error) {
	q := `SELECT ` + itemColumns + ` FROM wishlist WHERE id = ? AND user_id = ?`
	return scanItem(s.db.QueryRowContext(ctx, q, id, owner))
}

func (s *Store) SeriesNames(ctx context.Context, owner int64) ([]string, error) {
	return books.DistinctSeriesNames(ctx, s.db, "wishlist", owner)
}

// LockTx: 行ロック付きで1件取得（変換・更新用）
func LockTx(ctx context.Context, tx db.DBTX, owner, id int64) (*Item, error) {
	q := `SELECT ` + itemColumns + ` FROM wishlist WHERE id = ? AND user_id = ? FOR UPDATE`
	return scanItem(tx.QueryRowContext(ctx, q, id, owner))
}

// InsertTx は ref_no 指定で INSERT する
func InsertTx(ctx context.Context, tx db.DBTX, it *Item) error {
	const q = `
	INSERT INTO wishlist
	(user_id, ref_no, title, author, category, series_name, series_no, remarks)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		it.UserID, it.RefNo, it.Title, it.Author,
		nullOrNil(it.Category), nullOrNil(it.SeriesName), nullIntOrNil(it.SeriesNo), nullOrNil(it.Remarks),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = id
	return nil
}

// DeleteTx は削除件数を返す（変換時の存在確認に使う）
func DeleteTx(ctx context.Context, tx db.DBTX, owner, id int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM wishlist WHERE id = ? AND user_id = ?`, id, owner)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func updateTx(ctx context.Context, tx db.DBTX, owner, id int64, in UpdateItemRequest) error {
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
	if in.Remarks != nil {
		sets = append(sets, "remarks = ?")
		args = append(args, emptyToNil(*in.Remarks))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id, owner)
	q := `UPDATE wishlist SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

func (s *Store) Delete(ctx context.Context, owner, id int64) error {
	_, err := DeleteTx(ctx, s.db, owner, id)
	return err
}

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
