package lending

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/platform/db"
	"bookshelf-backend/internal/shelf/books"
)

// -------------- Clock --------------

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// -------------- Service --------------

// Service keeps books.lending_status in step with the open lending record:
// a book is "Lent Out" exactly when one record for it is "Not Returned".
type Service struct {
	db    *sql.DB
	store *Store
	clock Clock
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(conn), clock: realClock{}}
}

// Lend は貸出記録の追加と本の状態変更を1Txで行う
func (s *Service) Lend(ctx context.Context, owner int64, in LendRequest) (WriteResponse, error) {
	if in.BookID <= 0 {
		return WriteResponse{}, apierr.ErrInvalid("book_id required")
	}
	if strings.TrimSpace(in.BorrowerName) == "" {
		return WriteResponse{}, apierr.ErrInvalid("borrower_name required")
	}
	if strings.TrimSpace(in.BorrowDate) == "" {
		return WriteResponse{}, apierr.ErrInvalid("borrow_date required")
	}
	if err := books.ValidateDate("borrow_date", &in.BorrowDate); err != nil {
		return WriteResponse{}, err
	}
	if err := books.ValidateDate("return_date", in.ReturnDate); err != nil {
		return WriteResponse{}, err
	}

	r := &Record{
		UserID:       owner,
		BookID:       in.BookID,
		BorrowerName: in.BorrowerName,
		BorrowDate:   strings.TrimSpace(in.BorrowDate),
		ReturnDate:   books.ToNullString(in.ReturnDate),
		ReturnStatus: StatusNotReturned,
	}

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		status, err := lockBook(ctx, tx, owner, in.BookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.ErrNotFound("Book not found")
			}
			return err
		}
		if status == books.LendingLentOut {
			return apierr.ErrConflict("Book is already lent out")
		}
		// 状態カラムとレコードがずれていても二重貸出にはしない
		open, err := countOpen(ctx, tx, owner, in.BookID)
		if err != nil {
			return err
		}
		if open > 0 {
			log.Printf("[WARN] book %d is Available but has %d open lending record(s)", in.BookID, open)
			return apierr.ErrConflict("Book is already lent out")
		}

		if err := insertRecord(ctx, tx, r); err != nil {
			return err
		}
		_, err = setBookStatus(ctx, tx, owner, in.BookID, books.LendingLentOut)
		return err
	})
	if err != nil {
		return WriteResponse{}, apierr.FromStore("lend book", err)
	}
	return WriteResponse{Message: "Lending record created successfully", ID: r.ID}, nil
}

// MarkReturned: 返却日の省略時は当日。記録と本の状態を1Txで戻す
func (s *Service) MarkReturned(ctx context.Context, owner, id int64, in ReturnRequest) (WriteResponse, error) {
	if err := books.ValidateDate("return_date", in.ReturnDate); err != nil {
		return WriteResponse{}, err
	}
	returnDate := s.clock.Now().Format(books.DateLayout)
	if in.ReturnDate != nil && strings.TrimSpace(*in.ReturnDate) != "" {
		returnDate = strings.TrimSpace(*in.ReturnDate)
	}

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		rec, err := lockRecord(ctx, tx, owner, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.ErrNotFound("Lending record not found")
			}
			return err
		}
		if rec.ReturnStatus == StatusReturned {
			return apierr.ErrConflict("Lending record is already returned")
		}

		if err := markReturned(ctx, tx, owner, id, returnDate); err != nil {
			return err
		}
		n, err := setBookStatus(ctx, tx, owner, rec.BookID, books.LendingAvailable)
		if err != nil {
			return err
		}
		if n == 0 {
			log.Printf("[INFO] lending %d returned for book %d which is no longer in the catalog", id, rec.BookID)
		}
		return nil
	})
	if err != nil {
		return WriteResponse{}, apierr.FromStore("mark returned", err)
	}
	return WriteResponse{Message: "Book marked as returned successfully", ID: id}, nil
}

func (s *Service) HistoryForBook(ctx context.Context, owner, bookID int64) ([]RecordResponse, error) {
	recs, err := s.store.HistoryForBook(ctx, owner, bookID)
	if err != nil {
		return nil, apierr.FromStore("lending history", err)
	}
	out := make([]RecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, toResponse(r))
	}
	return out, nil
}

func (s *Service) All(ctx context.Context, owner int64) ([]RecordWithTitleResponse, error) {
	recs, err := s.store.All(ctx, owner)
	if err != nil {
		return nil, apierr.FromStore("list lending", err)
	}
	out := make([]RecordWithTitleResponse, 0, len(recs))
	for _, r := range recs {
		item := RecordWithTitleResponse{RecordResponse: toResponse(r.Record), BookInCatalog: r.BookTitle.Valid}
		if r.BookTitle.Valid {
			v := r.BookTitle.String
			item.BookTitle = &v
		}
		out = append(out, item)
	}
	return out, nil
}

func toResponse(r Record) RecordResponse {
	resp := RecordResponse{
		ID:           r.ID,
		BookID:       r.BookID,
		BorrowerName: r.BorrowerName,
		BorrowDate:   r.BorrowDate,
		ReturnStatus: r.ReturnStatus,
	}
	if r.ReturnDate.Valid {
		v := r.ReturnDate.String
		resp.ReturnDate = &v
	}
	return resp
}
