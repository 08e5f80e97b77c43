// Package conversion turns a wishlist item into an owned book. The wishlist
// row is consumed in the same transaction that inserts the book, so a failure
// at any step leaves both collections as they were.
package conversion

import (
	"context"
	"database/sql"
	"errors"

	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/platform/db"
	"bookshelf-backend/internal/shelf/books"
	"bookshelf-backend/internal/shelf/refno"
	"bookshelf-backend/internal/shelf/wishlist"
)

// MoveRequest は購入時に決まる項目。タイトル等は wishlist から引き継ぐ
type MoveRequest struct {
	PurchaseDate  *string  `json:"purchase_date,omitempty"`
	ReadingStatus *string  `json:"reading_status,omitempty"`
	PersonalNotes *string  `json:"personal_notes,omitempty"`
	Images        []string `json:"images,omitempty"`
}

type MoveResponse struct {
	Message string `json:"message"`
	BookID  int64  `json:"bookId"`
	RefNo   int    `json:"ref_no"`
}

// errVanished: ロック後に削除できなかった（通常は起きない）
var errVanished = errors.New("wishlist item vanished during conversion")

type Service struct {
	db *sql.DB
}

func NewService(conn *sql.DB) *Service { return &Service{db: conn} }

func (s *Service) MoveToBook(ctx context.Context, owner, wishlistID int64, in MoveRequest) (MoveResponse, error) {
	if err := books.ValidateImages(in.Images); err != nil {
		return MoveResponse{}, err
	}
	if err := books.ValidateDate("purchase_date", in.PurchaseDate); err != nil {
		return MoveResponse{}, err
	}

	var b *books.Book
	err := refno.InTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		item, err := wishlist.LockTx(ctx, tx, owner, wishlistID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.ErrNotFound("Wishlist item not found")
			}
			return err
		}

		n, err := refno.Next(ctx, tx, owner, refno.Books)
		if err != nil {
			return err
		}

		// リトライ時に前回の ID が残らないよう毎回作り直す
		b = &books.Book{
			UserID:        owner,
			RefNo:         n,
			Title:         item.Title,
			Author:        item.Author,
			Category:      item.Category,
			SeriesName:    item.SeriesName,
			SeriesNo:      item.SeriesNo,
			PurchaseDate:  books.ToNullString(in.PurchaseDate),
			ReadingStatus: books.ReadingStatusOrDefault(in.ReadingStatus),
			PersonalNotes: books.ToNullString(in.PersonalNotes),
			Images:        in.Images,
			LendingStatus: books.LendingAvailable,
		}
		if err := books.InsertTx(ctx, tx, b); err != nil {
			return err
		}

		deleted, err := wishlist.DeleteTx(ctx, tx, owner, wishlistID)
		if err != nil {
			return err
		}
		if deleted != 1 {
			return errVanished
		}
		return nil
	})
	if err != nil {
		return MoveResponse{}, apierr.FromStore("move to books", err)
	}

	return MoveResponse{
		Message: "Item successfully moved to books",
		BookID:  b.ID,
		RefNo:   b.RefNo,
	}, nil
}
