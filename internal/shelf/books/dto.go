package books

// ===== Requests =====

type CreateBookRequest struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Category      *string  `json:"category,omitempty"`
	SeriesName    *string  `json:"series_name,omitempty"`
	SeriesNo      *int64   `json:"series_no,omitempty"`
	PurchaseDate  *string  `json:"purchase_date,omitempty"` // "YYYY-MM-DD"
	ReadingStatus *string  `json:"reading_status,omitempty"`
	PersonalNotes *string  `json:"personal_notes,omitempty"`
	Images        []string `json:"images,omitempty"`
}

// UpdateBookRequest: nil のフィールドは更新しない。
// 値が入っていれば反映し、任意項目の空値は NULL として保存する。
type UpdateBookRequest struct {
	Title         *string   `json:"title,omitempty"`
	Author        *string   `json:"author,omitempty"`
	Category      *string   `json:"category,omitempty"`
	SeriesName    *string   `json:"series_name,omitempty"`
	SeriesNo      *int64    `json:"series_no,omitempty"`
	PurchaseDate  *string   `json:"purchase_date,omitempty"`
	ReadingStatus *string   `json:"reading_status,omitempty"`
	PersonalNotes *string   `json:"personal_notes,omitempty"`
	Images        *[]string `json:"images,omitempty"`
}

func (r UpdateBookRequest) empty() bool {
	return r.Title == nil && r.Author == nil && r.Category == nil &&
		r.SeriesName == nil && r.SeriesNo == nil && r.PurchaseDate == nil &&
		r.ReadingStatus == nil && r.PersonalNotes == nil && r.Images == nil
}

// ===== Responses =====

type BookResponse struct {
	ID            int64    `json:"id"`
	RefNo         int      `json:"ref_no"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Category      *string  `json:"category"`
	SeriesName    *string  `json:"series_name"`
	SeriesNo      *int64   `json:"series_no"`
	PurchaseDate  *string  `json:"purchase_date"`
	ReadingStatus string   `json:"reading_status"`
	PersonalNotes *string  `json:"personal_notes"`
	Images        []string `json:"images"`
	LendingStatus string   `json:"lending_status"`
}

type BookDetailResponse struct {
	Book           BookResponse    `json:"book"`
	SeriesBooks    []SeriesBook    `json:"series_books"`
	LendingDetails *LendingDetails `json:"lending_details"`
}

type WriteResponse struct {
	Message string   `json:"message"`
	ID      int64    `json:"id,omitempty"`
	RefNo   int      `json:"ref_no,omitempty"`
	Images  []string `json:"images"`
}

type Pagination struct {
	TotalItems   int64 `json:"total_items"`
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	ItemsPerPage int   `json:"items_per_page"`
}

type PagedBooksResponse struct {
	Books      []BookResponse `json:"books"`
	Pagination Pagination     `json:"pagination"`
}

// ===== Listing helpers =====

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	// OFFSET が溢れないよう page も上限を設ける
	MaxPage         = 1_000_000
	DefaultSortBy   = "title"
	DefaultOrder    = "asc"
)

type ListQuery struct {
	Category      *string
	ReadingStatus *string
	SeriesName    *string
	Page          int
	PageSize      int
	SortBy        string // title, author, series_name, purchase_date, category
	SortOrder     string // "asc" or "desc"
}
