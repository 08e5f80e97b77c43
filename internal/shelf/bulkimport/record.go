package bulkimport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sheet names of the collection workbook. A batch exported from it keeps
// the sheet names as keys and the column headers as field names.
const (
	SheetBooks    = "Mini Library"
	SheetWishlist = "Wishlist"
)

type Batch struct {
	Books    []BookRecord     `json:"Mini Library"`
	Wishlist []WishlistRecord `json:"Wishlist"`
}

type BookRecord struct {
	RefNo      RefNo    `json:"Ref No."`
	Title      string   `json:"Title of the Book"`
	Author     string   `json:"Name of the Author"`
	SeriesName string   `json:"Name of the Series"`
	SeriesNo   SeriesNo `json:"Book number of the Series"`
}

type WishlistRecord struct {
	RefNo      RefNo    `json:"Ref No."`
	Title      string   `json:"Title of the Book"`
	Author     string   `json:"Name of the Author"`
	SeriesName string   `json:"Name of the Series"`
	SeriesNo   SeriesNo `json:"Book number of the Series"`
	Remarks    string   `json:"Remarks"`
}

// RefNo はセルの値が数値でも文字列でも受け付ける
type RefNo int

func (r *RefNo) UnmarshalJSON(b []byte) error {
	v, err := cellValue(b)
	if err != nil {
		return err
	}
	s := strings.TrimSpace(v)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && f > 0 {
		*r = RefNo(int(f))
		return nil
	}
	return fmt.Errorf("invalid Ref No. %q", s)
}

// SeriesNo: 空・"-"・数値でない値は「番号なし」
type SeriesNo struct {
	Value *int
}

func (n *SeriesNo) UnmarshalJSON(b []byte) error {
	v, err := cellValue(b)
	if err != nil {
		return err
	}
	n.Value = NormalizeSeriesNo(v)
	return nil
}

// NormalizeSeriesNo reads the leading integer of a spreadsheet cell.
// "3", " 3 ", "3.0" and "3rd" all give 3; "", "-" and "n/a" give nil.
func NormalizeSeriesNo(v string) *int {
	s := strings.TrimSpace(v)
	if s == "" || s == "-" {
		return nil
	}
	end := 0
	if s[0] == '+' || s[0] == '-' {
		end = 1
	}
	digits := end
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits == end {
		return nil
	}
	n, err := strconv.Atoi(s[:digits])
	if err != nil {
		return nil
	}
	return &n
}

// cellValue: JSON の null/数値/文字列をそのまま文字列にする
func cellValue(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return "", fmt.Errorf("unsupported cell value %s", string(b))
	}
	return num.String(), nil
}

// clean は取り込む文字列を NFC に揃えて前後の空白を落とす
func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
