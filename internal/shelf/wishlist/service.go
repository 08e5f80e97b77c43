package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/platform/db"
	"bookshelf-backend/internal/shelf/books"
	"bookshelf-backend/internal/shelf/refno"
)

const SearchLimit = 10

type Service struct {
	db    *sql.DB
	store *Store
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(conn)}
}

func (s *Service) List(ctx context.Context, owner int64, seriesName *string) ([]ItemResponse, error) {
	if seriesName != nil && strings.TrimSpace(*seriesName) == "" {
		seriesName = nil
	}
	items, err := s.store.List(ctx, owner, seriesName)
	if err != nil {
		return nil, apierr.FromStore("list wishlist", err)
	}
	return toResponses(items), nil
}

func (s *Service) Search(ctx context.Context, owner int64, text string) ([]ItemResponse, error) {
	if strings.TrimSpace(text) == "" {
		return []ItemResponse{}, nil
	}
	items, err := s.store.Search(ctx, owner, text, SearchLimit)
	if err != nil {
		return nil, apierr.FromStore("search wishlist", err)
	}
	return toResponses(items), nil
}

func (s *Service) SeriesNames(ctx context.Context, owner int64) ([]string, error) {
	names, err := s.store.SeriesNames(ctx, owner)
	if err != nil {
		return nil, apierr.FromStore("list wishlist series names", err)
	}
	return names, nil
}

func (s *Service) Get(ctx context.Context, owner, id int64) (ItemResponse, error) {
	it, err := s.store.Get(ctx, owner, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ItemResponse{}, apierr.ErrNotFound("Wishlist item not found")
		}
		return ItemResponse{}, apierr.FromStore("get wishlist item", err)
	}
	return toResponse(*it), nil
}

func (s *Service) Create(ctx context.Context, owner int64, in CreateItemRequest) (WriteResponse, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Author) == "" {
		return WriteResponse{}, apierr.ErrInvalid("Title and author are required")
	}

	it := &Item{
		UserID:     owner,
		Title:      in.Title,
		Author:     in.Author,
		Category:   books.ToNullString(in.Category),
		SeriesName: books.ToNullString(in.SeriesName),
		SeriesNo:   books.ToNullInt(in.SeriesNo),
		Remarks:    books.ToNullString(in.Remarks),
	}

	err := refno.InTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		n, err := refno.Next(ctx, tx, owner, refno.Wishlist)
		if err != nil {
			return err
		}
		it.RefNo = n
		return InsertTx(ctx, tx, it)
	})
	if err != nil {
		return WriteResponse{}, apierr.FromStore("create wishlist item", err)
	}
	return WriteResponse{Message: "Wishlist item added successfully", ID: it.ID, RefNo: it.RefNo}, nil
}

func (s *Service) Update(ctx context.Context, owner, id int64, in UpdateItemRequest) (WriteResponse, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return WriteResponse{}, apierr.ErrInvalid("title must not be empty")
	}
	if in.Author != nil && strings.TrimSpace(*in.Author) == "" {
		return WriteResponse{}, apierr.ErrInvalid("author must not be empty")
	}

	var resp WriteResponse
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := LockTx(ctx, tx, owner, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.ErrNotFound("Wishlist item not found")
			}
			return err
		}
		if in.empty() {
			resp = WriteResponse{Message: "No fields to update"}
			return nil
		}
		if err := updateTx(ctx, tx, owner, id, in); err != nil {
			return err
		}
		resp = WriteResponse{Message: "Wishlist item updated successfully", ID: id}
		return nil
	})
	if err != nil {
		return WriteResponse{}, apierr.FromStore("update wishlist item", err)
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, owner, id int64) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return apierr.FromStore("delete wishlist item", err)
	}
	return nil
}

func nullToPtr(ns sql.NullString) *string {
	if ns.Valid {
		v := ns.String
		return &v
	}
	return nil
}

func toResponse(it Item) ItemResponse {
	resp := ItemResponse{
		ID:         it.ID,
		RefNo:      it.RefNo,
		Title:      it.Title,
		Author:     it.Author,
		Category:   nullToPtr(it.Category),
		SeriesName: nullToPtr(it.SeriesName),
		Remarks:    nullToPtr(it.Remarks),
	}
	if it.SeriesNo.Valid {
		v := it.SeriesNo.Int64
		resp.SeriesNo = &v
	}
	return resp
}

func toResponses(items []Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toResponse(it))
	}
	return out
}
