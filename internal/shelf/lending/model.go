package lending

import "database/sql"

const (
	StatusNotReturned = "Not Returned"
	StatusReturned    = "Returned"
)

// Record は lending テーブルの1行。book_id は削除済みの本を指すことがある
type Record struct {
	ID           int64
	UserID       int64
	BookID       int64
	BorrowerName string
	BorrowDate   string
	ReturnDate   sql.NullString
	ReturnStatus string
}

// RecordWithTitle: 全件一覧用。本が消えていれば BookTitle は NULL
type RecordWithTitle struct {
	Record
	BookTitle sql.NullString
}
