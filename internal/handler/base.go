package handler

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chmc/wbms-api/internal/storage"
	apperrors "github.com/chmc/wbms-api/pkg/errors"
	"github.com/chmc/wbms-api/pkg/validator"
)

// Context keys set by the middleware chain.
const (
	ContextAccountID = "account_id"
	ContextRoles     = "roles"
	ContextRequestID = "request_id"
)

// ParseID reads a positive integer path parameter.
func ParseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("invalid "+name, err).WithReason("invalid_id")
	}
	return id, nil
}

// Bind binds the body (JSON or form, by content type) into obj.
func Bind(c *gin.Context, obj interface{}) error {
	return bindError(c.ShouldBind(obj))
}

func BindJSON(c *gin.Context, obj interface{}) error {
	return bindError(c.ShouldBindJSON(obj))
}

func BindQuery(c *gin.Context, obj interface{}) error {
	return bindError(c.ShouldBindQuery(obj))
}

func bindError(err error) error {
	if err == nil {
		return nil
	}
	if fields, ok := validator.FieldErrors(err); ok {
		return apperrors.Validation(fields)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.BadRequest("malformed request body", err).WithReason("malformed_body")
	}
	return apperrors.BadRequest(err.Error(), err)
}

// AccountID returns the authenticated account id.
func AccountID(c *gin.Context) int64 {
	return c.GetInt64(ContextAccountID)
}

// FormUpload prefers a multipart file named field and falls back to the base64
// data URL sent in the body. It returns nil when neither is present.
func FormUpload(c *gin.Context, field, dataURL string) (*storage.Upload, error) {
	if fh, err := c.FormFile(field); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, apperrors.BadRequest("unreadable upload "+field, err)
		}
		defer f.Close()
		return storage.UploadFromReader(fh.Filename, f)
	}
	return storage.UploadFromDataURL(dataURL)
}
