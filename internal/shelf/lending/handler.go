package lending

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

	r.GET("/lending", h.All)
	r.POST("/lending", h.Lend)
	r.PUT("/lending/:id/return", h.MarkReturned)
	r.GET("/lending/book/:bookId", h.HistoryForBook)
}

func (h *Handler) All(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	res, err := h.svc.All(c.Request.Context(), owner)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Lend(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	var req LendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.Lend(c.Request.Context(), owner, req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

// PUT /lending/:id/return  body は省略可
func (h *Handler) MarkReturned(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	id, ok := parsePositive(c, "id")
	if !ok {
		return
	}
	var req ReturnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
			return
		}
	}
	res, err := h.svc.MarkReturned(c.Request.Context(), owner, id, req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) HistoryForBook(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	bookID, ok := parsePositive(c, "bookId")
	if !ok {
		return
	}
	res, err := h.svc.HistoryForBook(c.Request.Context(), owner, bookID)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func parsePositive(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, name+" must be a positive number"))
		return 0, false
	}
	return id, true
}
