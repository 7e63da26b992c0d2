package examination

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chmc/wbms-api/internal/handler"
	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/service/examination"
	"github.com/chmc/wbms-api/internal/storage"
	apperrors "github.com/chmc/wbms-api/pkg/errors"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	pdfContentType  = "application/pdf"

	editedDocumentField = "edited_document"
)

type Handler struct {
	service *examination.Service
}

func NewHandler(service *examination.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	exams := r.Group("/examinations")
	{
		exams.GET("", h.ListExaminations)
		exams.POST("", h.CreateExamination)
		exams.GET("/:id", h.GetExamination)
		exams.PUT("/:id", h.UpdateExamination)
		exams.GET("/:id/document", h.DownloadDocument)
		exams.POST("/:id/edited-document", h.UploadEditedDocument)
		exams.POST("/:id/result-image", h.UploadResultImage)
		exams.GET("/:id/view", h.ViewDocument)
		exams.GET("/:id/integrity", h.CheckIntegrity)
	}
}

func (h *Handler) ListExaminations(c *gin.Context) {
	exams, err := h.service.ListExaminations(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, exams)
}

func (h *Handler) CreateExamination(c *gin.Context) {
	var req model.CreateExaminationRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	webcam, err := storage.UploadFromDataURL(req.WebcamImage)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	exam, err := h.service.CreateExamination(c.Request.Context(), &req, webcam)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusCreated, exam)
}

func (h *Handler) GetExamination(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	exam, err := h.service.GetExamination(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, exam)
}

func (h *Handler) UpdateExamination(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.UpdateExaminationRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	exam, err := h.service.UpdateExamination(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, exam)
}

func (h *Handler) DownloadDocument(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	name, rc, err := h.service.OpenDocument(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	defer rc.Close()

	stream(c, rc, docxContentType, fmt.Sprintf("attachment; filename=%q", name))
}

func (h *Handler) UploadEditedDocument(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	fh, err := c.FormFile(editedDocumentField)
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("No edited document was uploaded.", err).WithReason("missing_file"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("The uploaded file could not be read.", err).WithReason("missing_file"))
		return
	}
	defer f.Close()

	exam, err := h.service.UploadEditedDocument(c.Request.Context(), id, fh.Filename, f)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, exam)
}

func (h *Handler) UploadResultImage(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.ResultImageRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	image, err := storage.UploadFromDataURL(req.ResultImage)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	exam, err := h.service.UploadResultImage(c.Request.Context(), id, image)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, exam)
}

// ViewDocument renders the edited document as an inline PDF.
func (h *Handler) ViewDocument(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	rc, err := h.service.ViewDocument(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	defer rc.Close()

	stream(c, rc, pdfContentType, fmt.Sprintf("inline; filename=\"examination_%d.pdf\"", id))
}

func (h *Handler) CheckIntegrity(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	report, err := h.service.CheckIntegrity(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, report)
}

func stream(c *gin.Context, r io.Reader, contentType, disposition string) {
	c.Header("Content-Disposition", disposition)
	c.DataFromReader(http.StatusOK, -1, contentType, r, nil)
}
