package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookshelf-backend/internal/platform/apierr"
	"bookshelf-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/stats", h.Summary)
}

func (h *Handler) Summary(c *gin.Context) {
	owner, ok := auth.MustOwner(c)
	if !ok {
		return
	}
	res, err := h.svc.Summarize(c.Request.Context(), owner)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.BodyFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"statistics": res})
}
