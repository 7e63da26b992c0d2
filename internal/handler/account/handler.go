package account

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chmc/wbms-api/internal/handler"
	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/service/account"
)

type Handler struct {
	service *account.Service
}

func NewHandler(service *account.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the admin account management routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.POST("", h.CreateAccount)
		accounts.GET("", h.ListAccounts)
		accounts.GET("/:id", h.GetAccount)
		accounts.PUT("/:id", h.UpdateAccount)
		accounts.DELETE("/:id", h.DeleteAccount)
	}
}

// RegisterStaffRoutes mounts the routes available to any employee.
func (h *Handler) RegisterStaffRoutes(r *gin.RouterGroup) {
	r.PUT("/profile", h.UpdateProfile)
	r.GET("/doctors/associated", h.ListDoctors)
}

func files(c *gin.Context, image, signature string) (account.Files, error) {
	var (
		f   account.Files
		err error
	)
	if f.Image, err = handler.FormUpload(c, "image", image); err != nil {
		return f, err
	}
	if f.Signature, err = handler.FormUpload(c, "signature", signature); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) CreateAccount(c *gin.Context) {
	var req model.CreateAccountRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	uploads, err := files(c, req.Image, req.Signature)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	acc, err := h.service.CreateAccount(c.Request.Context(), &req, uploads)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusCreated, acc)
}

func (h *Handler) ListAccounts(c *gin.Context) {
	var filter model.AccountFilter
	if err := handler.BindQuery(c, &filter); err != nil {
		handler.RespondError(c, err)
		return
	}
	accounts, err := h.service.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, accounts)
}

func (h *Handler) GetAccount(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	acc, err := h.service.GetAccount(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, acc)
}

func (h *Handler) UpdateAccount(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	h.update(c, id, h.service.UpdateAccount)
}

// UpdateProfile edits the logged in account. Role changes are ignored.
func (h *Handler) UpdateProfile(c *gin.Context) {
	h.update(c, handler.AccountID(c), h.service.UpdateProfile)
}

type updateFunc func(ctx context.Context, id int64, req *model.UpdateAccountRequest, files account.Files) (*model.Account, error)

func (h *Handler) update(c *gin.Context, id int64, fn updateFunc) {
	var req model.UpdateAccountRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	uploads, err := files(c, req.Image, req.Signature)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	acc, err := fn(c.Request.Context(), id, &req, uploads)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, acc)
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if err := h.service.DeleteAccount(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.service.ListDoctors(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.Respond(c, http.StatusOK, doctors)
}
