package books

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/books", h.List)
	r.GET("/books/paged", h.ListPaged)
	r.GET("/books/search", h.Search)
	r.GET("/books/seriesnames", h.SeriesNames)
	r.GET("/books/:id", h.Get)
	r.POST("/books", h.Create)
	r.PUT("/books/:id", h.Update)
	r.DELETE("/books/:id", h.Delete)
}

// ---------- handlers ----------

func (h *Handler) List(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	res, err := h.svc.List(c.Request.Context(), owner)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /books/paged?category=&reading_status=&series_name=&page=&limit=&sort_by=&sort_order=
func (h *Handler) ListPaged(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	q := ListQuery{
		Page:      parseIntDefault(c.Query("page"), DefaultPage),
		PageSize:  parseIntDefault(c.Query("limit"), DefaultPageSize),
		SortBy:    c.DefaultQuery("sort_by", DefaultSortBy),
		SortOrder: c.DefaultQuery("sort_order", DefaultOrder),
	}
	if v := c.Query("category"); v != "" {
		q.Category = &v
	}
	if v := c.Query("reading_status"); v != "" {
		q.ReadingStatus = &v
	}
	if v := c.Query("series_name"); v != "" {
		q.SeriesName = &v
	}
	res, err := h.svc.ListPaged(c.Request.Context(), owner, q)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Search(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	res, err := h.svc.Search(c.Request.Context(), owner, c.Query("query"))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": res})
}

func (h *Handler) SeriesNames(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	res, err := h.svc.SeriesNames(c.Request.Context(), owner)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.svc.Get(c.Request.Context(), owner, id)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Create(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), owner, req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.Header("Location", "/books/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Update(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), owner, id, req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), owner, id); err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted successfully"})
}

// ---------- helpers ----------

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "id must be a positive number"))
		return 0, false
	}
	return id, true
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
