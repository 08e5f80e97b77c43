package stats

import (
	"context"
	"database/sql"

	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/platform/db"
	"bookshelf-backend/internal/shelf/books"
)

type Summary struct {
	TotalBooks    int64 `json:"total_books"`
	BooksRead     int64 `json:"books_read"`
	BooksLent     int64 `json:"books_lent"`
	WishlistItems int64 `json:"wishlist_items"`
}

type Service struct {
	db *sql.DB
}

func NewService(conn *sql.DB) *Service { return &Service{db: conn} }

// Summarize は同一スナップショットで数える（読み取り専用Tx）
func (s *Service) Summarize(ctx context.Context, owner int64) (Summary, error) {
	var out Summary
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		const bookQ = `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN reading_status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN lending_status = ? THEN 1 ELSE 0 END), 0)
		FROM books
		WHERE user_id = ?`
		if err := tx.QueryRowContext(ctx, bookQ, books.ReadingRead, books.LendingLentOut, owner).
			Scan(&out.TotalBooks, &out.BooksRead, &out.BooksLent); err != nil {
			return err
		}

		const wishQ = `SELECT COUNT(*) FROM wishlist WHERE user_id = ?`
		return tx.QueryRowContext(ctx, wishQ, owner).Scan(&out.WishlistItems)
	})
	if err != nil {
		return Summary{}, apierr.FromStore("summarize", err)
	}
	return out, nil
}
