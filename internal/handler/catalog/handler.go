package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chmc/wbms-api/internal/handler"
	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/service/catalog"
)

// Handler serves the service type catalog and the appointment book.
type Handler struct {
	service *catalog.Service
}

func NewHandler(service *catalog.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	types := r.Group("/service-types")
	{
		types.GET("", h.ListServiceTypes)
		types.POST("", h.CreateServiceType)
	}

	appts := r.Group("/appointments")
	{
		appts.GET("", h.ListAppointments)
		appts.POST("", h.CreateAppointment)
	}
}

func (h *Handler) ListServiceTypes(c *gin.Context) {
	types, err := h.service.ListServiceTypes(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, types)
}

func (h *Handler) CreateServiceType(c *gin.Context) {
	var req model.CreateServiceTypeRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	st, err := h.service.CreateServiceType(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusCreated, st)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	var filter model.AppointmentFilter
	if err := handler.BindQuery(c, &filter); err != nil {
		handler.RespondError(c, err)
		return
	}
	appts, err := h.service.ListAppointments(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, appts)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	appt, err := h.service.CreateAppointment(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusCreated, appt)
}
