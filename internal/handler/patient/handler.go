package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chmc/wbms-api/internal/handler"
	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/service/patient"
	"github.com/chmc/wbms-api/internal/storage"
)

type Handler struct {
	service *patient.Service
}

func NewHandler(service *patient.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.POST("/search", h.SearchPatients)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.POST("/:id/photo", h.SetPhoto)
	}
}

// RegisterAdminRoutes mounts the routes restricted to superusers.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/secure-id", h.SecureID)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	photo, err := storage.UploadFromDataURL(req.Photo)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	view, err := h.service.CreatePatient(c.Request.Context(), &req, photo)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusCreated, view)
}

func (h *Handler) ListPatients(c *gin.Context) {
	var page model.Pagination
	if err := handler.BindQuery(c, &page); err != nil {
		handler.RespondError(c, err)
		return
	}
	patients, err := h.service.ListPatients(c.Request.Context(), page)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, patients)
}

// SearchPatients answers with a bare JSON array so the examination form can
// use it for autocomplete.
func (h *Handler) SearchPatients(c *gin.Context) {
	var req model.SearchPatientsRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	results, err := h.service.SearchPatients(c.Request.Context(), req.Query)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	view, err := h.service.GetPatient(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, view)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.UpdatePatientRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	view, err := h.service.UpdatePatient(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, view)
}

func (h *Handler) SetPhoto(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	var req model.PhotoRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	photo, err := storage.UploadFromDataURL(req.Photo)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	view, err := h.service.SetPhoto(c.Request.Context(), id, photo)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, view)
}

func (h *Handler) SecureID(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	view, err := h.service.SecureID(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, gin.H{
		"patient_id":   view.ID,
		"formatted_id": view.FormattedID,
		"secure_id":    view.SecureID,
	})
}
