package lending

type LendRequest struct {
	BookID       int64   `json:"book_id"`
	BorrowerName string  `json:"borrower_name"`
	BorrowDate   string  `json:"borrow_date"`           // "YYYY-MM-DD"
	ReturnDate   *string `json:"return_date,omitempty"` // 返却予定日
}

type ReturnRequest struct {
	ReturnDate *string `json:"return_date,omitempty"` // 省略時は当日
}

type RecordResponse struct {
	ID           int64   `json:"id"`
	BookID       int64   `json:"book_id"`
	BorrowerName string  `json:"borrower_name"`
	BorrowDate   string  `json:"borrow_date"`
	ReturnDate   *string `json:"return_date"`
	ReturnStatus string  `json:"return_status"`
}

type RecordWithTitleResponse struct {
	RecordResponse
	BookTitle     *string `json:"book_title"`
	BookInCatalog bool    `json:"book_in_catalog"`
}

type WriteResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}
