package verify

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chmc/wbms-api/internal/handler"
	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/service/document"
)

type Handler struct {
	verifier *document.Verifier
}

func NewHandler(verifier *document.Verifier) *Handler {
	return &Handler{verifier: verifier}
}

// RegisterRoutes mounts the public verification endpoint. Extra middleware,
// such as a rate limiter, runs before the handler.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, mw ...gin.HandlerFunc) {
	r.POST("/verify-document", append(mw, h.VerifyDocument)...)
}

// VerifyDocument accepts unique_code as a form field or JSON and streams the
// edited document as an inline PDF.
func (h *Handler) VerifyDocument(c *gin.Context) {
	var req model.VerifyRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}

	exam, pdf, err := h.verifier.Verify(c.Request.Context(), req.UniqueCode)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	defer pdf.Close()

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"verified_%d.pdf\"", exam.ID))
	c.DataFromReader(http.StatusOK, -1, "application/pdf", pdf, nil)
}
