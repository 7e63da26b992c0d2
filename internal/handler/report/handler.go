package report

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chmc/wbms-api/internal/handler"
	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/service/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *report.Service
	now     func() time.Time
}

func NewHandler(service *report.Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reports")
	{
		reports.GET("/payments.xlsx", h.ExportPayments)
		reports.GET("/payments/summary", h.Summary)
	}
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), h.now())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, summary)
}

// ExportPayments builds the workbook in memory so a failure can still be
// answered with the JSON error envelope.
func (h *Handler) ExportPayments(c *gin.Context) {
	var filter model.PaymentReportFilter
	if err := handler.BindQuery(c, &filter); err != nil {
		handler.RespondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportPayments(c.Request.Context(), &buf, filter); err != nil {
		handler.RespondError(c, err)
		return
	}

	name := fmt.Sprintf("payments_%s.xlsx", h.now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
