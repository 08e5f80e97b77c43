package bulkimport

import (
	"context"
	"database/sql"

	"bookshelf-backend/internal/platform/db"
	"bookshelf-backend/internal/shelf/books"
	"bookshelf-backend/internal/shelf/wishlist"
)

// SQLSink は取り込み行を1Txで INSERT する。ref_no はレコードの値をそのまま使う
type SQLSink struct {
	db *sql.DB
}

func NewSQLSink(conn *sql.DB) *SQLSink { return &SQLSink{db: conn} }

func (s *SQLSink) InsertAll(ctx context.Context, bs []books.Book, items []wishlist.Item) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		for i := range bs {
			if err := books.InsertTx(ctx, tx, &bs[i]); err != nil {
				return err
			}
		}
		for i := range items {
			if err := wishlist.InsertTx(ctx, tx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
