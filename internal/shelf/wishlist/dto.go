package wishlist

type CreateItemRequest struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Category   *string `json:"category,omitempty"`
	SeriesName *string `json:"series_name,omitempty"`
	SeriesNo   *int64  `json:"series_no,omitempty"`
	Remarks    *string `json:"remarks,omitempty"`
}

// UpdateItemRequest: 書籍と同じく nil は「変更なし」
type UpdateItemRequest struct {
	Title      *string `json:"title,omitempty"`
	Author     *string `json:"author,omitempty"`
	Category   *string `json:"category,omitempty"`
	SeriesName *string `json:"series_name,omitempty"`
	SeriesNo   *int64  `json:"series_no,omitempty"`
	Remarks    *string `json:"remarks,omitempty"`
}

func (r UpdateItemRequest) empty() bool {
	return r.Title == nil && r.Author == nil && r.Category == nil &&
		r.SeriesName == nil && r.SeriesNo == nil && r.Remarks == nil
}

type ItemResponse struct {
	ID         int64   `json:"id"`
	RefNo      int     `json:"ref_no"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Category   *string `json:"category"`
	SeriesName *string `json:"series_name"`
	SeriesNo   *int64  `json:"series_no"`
	Remarks    *string `json:"remarks"`
}

type WriteResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
	RefNo   int    `json:"ref_no,omitempty"`
}
