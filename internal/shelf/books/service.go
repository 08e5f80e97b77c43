package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/platform/db"
	"bookshelf-backend/internal/shelf/refno"
)

const SearchLimit = 10

var sortColumns = map[string]bool{
	"title":         true,
	"author":        true,
	"series_name":   true,
	"purchase_date": true,
	"category":      true,
}

type Service struct {
	db    *sql.DB
	store *Store
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(conn)}
}

func (s *Service) List(ctx context.Context, owner int64) ([]BookResponse, error) {
	items, err := s.store.List(ctx, owner)
	if err != nil {
		return nil, apierr.FromStore("list books", err)
	}
	return toResponses(items), nil
}

// ListPaged: 不正なソート指定はエラーにせず title/asc に倒す
func (s *Service) ListPaged(ctx context.Context, owner int64, q ListQuery) (PagedBooksResponse, error) {
	q = normalizeListQuery(q)
	items, total, err := s.store.ListPaged(ctx, owner, q)
	if err != nil {
		return PagedBooksResponse{}, apierr.FromStore("list books", err)
	}
	return PagedBooksResponse{
		Books: toResponses(items),
		Pagination: Pagination{
			TotalItems:   total,
			CurrentPage:  q.Page,
			TotalPages:   int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
			ItemsPerPage: q.PageSize,
		},
	}, nil
}

func normalizeListQuery(q ListQuery) ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if !sortColumns[q.SortBy] {
		q.SortBy = DefaultSortBy
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		q.SortOrder = DefaultOrder
	}
	q.Category = blankToNil(q.Category)
	q.ReadingStatus = blankToNil(q.ReadingStatus)
	q.SeriesName = blankToNil(q.SeriesName)
	return q
}

func (s *Service) Search(ctx context.Context, owner int64, text string) ([]BookResponse, error) {
	if strings.TrimSpace(text) == "" {
		return []BookResponse{}, nil
	}
	items, err := s.store.Search(ctx, owner, text, SearchLimit)
	if err != nil {
		return nil, apierr.FromStore("search books", err)
	}
	return toResponses(items), nil
}

func (s *Service) SeriesNames(ctx context.Context, owner int64) ([]string, error) {
	names, err := s.store.SeriesNames(ctx, owner)
	if err != nil {
		return nil, apierr.FromStore("list series names", err)
	}
	return names, nil
}

func (s *Service) Get(ctx context.Context, owner, id int64) (BookDetailResponse, error) {
	b, err := s.store.Get(ctx, owner, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BookDetailResponse{}, apierr.ErrNotFound("Book not found")
		}
		return BookDetailResponse{}, apierr.FromStore("get book", err)
	}

	out := BookDetailResponse{Book: toResponse(*b), SeriesBooks: []SeriesBook{}}
	if b.SeriesName.Valid && b.SeriesName.String != "" {
		siblings, err := s.store.SeriesSiblings(ctx, owner, b.SeriesName.String, b.ID)
		if err != nil {
			return BookDetailResponse{}, apierr.FromStore("get series books", err)
		}
		out.SeriesBooks = siblings
	}
	if b.LendingStatus == LendingLentOut {
		details, err := s.store.OpenLending(ctx, owner, b.ID)
		if err != nil {
			return BookDetailResponse{}, apierr.FromStore("get lending details", err)
		}
		out.LendingDetails = details
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, owner int64, in CreateBookRequest) (WriteResponse, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Author) == "" {
		return WriteResponse{}, apierr.ErrInvalid("Title and author are required")
	}
	if err := ValidateImages(in.Images); err != nil {
		return WriteResponse{}, err
	}
	if err := ValidateDate("purchase_date", in.PurchaseDate); err != nil {
		return WriteResponse{}, err
	}

	b := &Book{
		UserID:        owner,
		Title:         in.Title,
		Author:        in.Author,
		Category:      ToNullString(in.Category),
		SeriesName:    ToNullString(in.SeriesName),
		SeriesNo:      ToNullInt(in.SeriesNo),
		PurchaseDate:  ToNullString(in.PurchaseDate),
		ReadingStatus: ReadingStatusOrDefault(in.ReadingStatus),
		PersonalNotes: ToNullString(in.PersonalNotes),
		Images:        in.Images,
	}

	err := refno.InTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		n, err := refno.Next(ctx, tx, owner, refno.Books)
		if err != nil {
			return err
		}
		b.RefNo = n
		return InsertTx(ctx, tx, b)
	})
	if err != nil {
		return WriteResponse{}, apierr.FromStore("create book", err)
	}

	return WriteResponse{
		Message: "Book added successfully",
		ID:      b.ID,
		RefNo:   b.RefNo,
		Images:  nonNil(in.Images),
	}, nil
}

// Update は存在確認・更新を同一Txで行う。フィールド指定がなければ何も書かない
func (s *Service) Update(ctx context.Context, owner, id int64, in UpdateBookRequest) (WriteResponse, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return WriteResponse{}, apierr.ErrInvalid("title must not be empty")
	}
	if in.Author != nil && strings.TrimSpace(*in.Author) == "" {
		return WriteResponse{}, apierr.ErrInvalid("author must not be empty")
	}
	if in.Images != nil {
		if err := ValidateImages(*in.Images); err != nil {
			return WriteResponse{}, err
		}
	}
	if err := ValidateDate("purchase_date", in.PurchaseDate); err != nil {
		return WriteResponse{}, err
	}
	if in.ReadingStatus != nil {
		rs := ReadingStatusOrDefault(in.ReadingStatus)
		in.ReadingStatus = &rs
	}

	var resp WriteResponse
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		current, err := lockImages(ctx, tx, owner, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apierr.ErrNotFound("Book not found")
			}
			return err
		}
		if in.empty() {
			resp = WriteResponse{Message: "No fields to update", Images: current}
			return nil
		}
		if err := updateTx(ctx, tx, owner, id, in); err != nil {
			return err
		}
		images := current
		if in.Images != nil {
			images = nonNil(*in.Images)
		}
		resp = WriteResponse{Message: "Book updated successfully", ID: id, Images: images}
		return nil
	})
	if err != nil {
		return WriteResponse{}, apierr.FromStore("update book", err)
	}
	return resp, nil
}

// Delete は存在しなくても成功扱い。貸出履歴は残す
func (s *Service) Delete(ctx context.Context, owner, id int64) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return apierr.FromStore("delete book", err)
	}
	return nil
}

// ===== validation helpers (conversion / import からも使う) =====

// ValidateImages: 参照はカンマ区切りで保存するので、空文字とカンマ入りは受け付けない
func ValidateImages(images []string) error {
	if len(images) > MaxImages {
		return apierr.ErrInvalid(fmt.Sprintf("Maximum %d images allowed per book", MaxImages))
	}
	for i, ref := range images {
		if strings.TrimSpace(ref) == "" {
			return apierr.ErrInvalid(fmt.Sprintf("images[%d] must not be empty", i))
		}
		if strings.Contains(ref, ",") {
			return apierr.ErrInvalid(fmt.Sprintf("images[%d] must not contain a comma", i))
		}
	}
	return nil
}

func ValidateDate(field string, v *string) error {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, strings.TrimSpace(*v)); err != nil {
		return apierr.ErrInvalid(field + " must be YYYY-MM-DD")
	}
	return nil
}

func ReadingStatusOrDefault(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return ReadingUnread
	}
	return *v
}

func ToNullString(s *string) (ns sql.NullString) {
	if s != nil && strings.TrimSpace(*s) != "" {
		ns.Valid, ns.String = true, *s
	}
	return
}

// series_no の 0 は「番号なし」として扱う
func ToNullInt(n *int64) (ni sql.NullInt64) {
	if n != nil && *n != 0 {
		ni.Valid, ni.Int64 = true, *n
	}
	return
}

func nullToPtr(ns sql.NullString) *string {
	if ns.Valid {
		v := ns.String
		return &v
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func nonNil(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}

func toResponse(b Book) BookResponse {
	resp := BookResponse{
		ID:            b.ID,
		RefNo:         b.RefNo,
		Title:         b.Title,
		Author:        b.Author,
		Category:      nullToPtr(b.Category),
		SeriesName:    nullToPtr(b.SeriesName),
		PurchaseDate:  nullToPtr(b.PurchaseDate),
		ReadingStatus: b.ReadingStatus,
		PersonalNotes: nullToPtr(b.PersonalNotes),
		Images:        nonNil(b.Images),
		LendingStatus: b.LendingStatus,
	}
	if b.SeriesNo.Valid {
		v := b.SeriesNo.Int64
		resp.SeriesNo = &v
	}
	return resp
}

func toResponses(items []Book) []BookResponse {
	out := make([]BookResponse, 0, len(items))
	for _, b := range items {
		out = append(out, toResponse(b))
	}
	return out
}
