package wishlist

import "database/sql"

// Item は wishlist テーブルの1行
type Item struct {
	ID         int64
	UserID     int64
	RefNo      int
	Title      string
	Author     string
	Category   sql.NullString
	SeriesName sql.NullString
	SeriesNo   sql.NullInt64
	Remarks    sql.NullString
}
