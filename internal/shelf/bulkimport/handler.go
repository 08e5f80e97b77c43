package bulkimport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/platform/auth"
)

type Handler struct {
	pipeline *Pipeline
	fallback Source
}

// RegisterRoutes: ボディが空のときは fallback（設定ファイルのソース）を使う。nil なら 400
func RegisterRoutes(r gin.IRoutes, p *Pipeline, fallback Source) {
	h := &Handler{pipeline: p, fallback: fallback}
	r.POST("/bulk-upload", h.Upload)
}

func (h *Handler) Upload(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}

	var src Source
	switch {
	case c.Request.ContentLength != 0 && c.Request.Body != nil && c.Request.Body != http.NoBody:
		src = ReaderSource{R: c.Request.Body}
	case h.fallback != nil:
		src = h.fallback
	default:
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "import batch required"))
		return
	}

	batch, err := src.Load(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, err.Error()))
		return
	}

	res, err := h.pipeline.Run(c.Request.Context(), owner, batch)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
