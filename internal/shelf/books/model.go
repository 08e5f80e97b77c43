package books

import (
	"database/sql"
	"strings"
)

const (
	LendingAvailable = "Available"
	LendingLentOut   = "Lent Out"

	ReadingUnread = "Unread"
	ReadingRead   = "Read"

	// 1冊あたりの画像上限
	MaxImages = 10

	DateLayout = "2006-01-02"
)

// Book は books テーブルの1行を表す
type Book struct {
	ID            int64
	UserID        int64
	RefNo         int
	Title         string
	Author        string
	Category      sql.NullString
	SeriesName    sql.NullString
	SeriesNo      sql.NullInt64
	PurchaseDate  sql.NullString // DATE は "2006-01-02" の文字列で扱う
	ReadingStatus string
	PersonalNotes sql.NullString
	Images        []string
	LendingStatus string
}

// SeriesBook は同じシリーズの他の本（詳細画面用の要約）
type SeriesBook struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	SeriesNo      *int64 `json:"series_no"`
	ReadingStatus string `json:"reading_status"`
	LendingStatus string `json:"lending_status"`
}

// LendingDetails は貸出中の本に紐づく未返却レコードの要約
type LendingDetails struct {
	BorrowerName string  `json:"borrower_name"`
	BorrowDate   string  `json:"borrow_date"`
	ReturnDate   *string `json:"return_date"`
}

// JoinImages: 画像参照はカンマ区切りで1カラムに保存する。空なら NULL
func JoinImages(images []string) any {
	if len(images) == 0 {
		return nil
	}
	return strings.Join(images, ",")
}

func SplitImages(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return []string{}
	}
	return strings.Split(ns.String, ",")
}
