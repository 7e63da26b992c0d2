package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/convert"
	"github.com/chmc/wbms-api/internal/docx"
	"github.com/chmc/wbms-api/internal/repository"
	"github.com/chmc/wbms-api/internal/service/account"
	authsvc "github.com/chmc/wbms-api/internal/service/auth"
	"github.com/chmc/wbms-api/internal/service/catalog"
	"github.com/chmc/wbms-api/internal/service/document"
	"github.com/chmc/wbms-api/internal/service/examination"
	"github.com/chmc/wbms-api/internal/service/report"
	"github.com/chmc/wbms-api/internal/storage"
	"github.com/chmc/wbms-api/pkg/auth"
	"github.com/chmc/wbms-api/pkg/circuitbreaker"
	apperrors "github.com/chmc/wbms-api/pkg/errors"
	"github.com/chmc/wbms-api/pkg/security"
	"github.com/chmc/wbms-api/pkg/validator"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status  string            `json:"status"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(err *apperrors.AppError) *ErrorResponse {
	return &ErrorResponse{
		Status:  "error",
		Code:    err.Reason,
		Message: err.Message,
		Fields:  err.Fields,
	}
}

func Respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// RespondError writes the error envelope for err and aborts the chain.
func RespondError(c *gin.Context, err error) {
	appErr := ToAppError(err)
	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString(ContextRequestID)).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(status, NewErrorResponse(appErr))
}

type mapping struct {
	target error
	code   apperrors.ErrorCode
	reason string
	msg    string
}

var mappings = []mapping{
	{document.ErrInvalidCodeFormat, apperrors.ErrBadRequest, "invalid_code_format", "Invalid code format."},
	{document.ErrInvalidCodePrefix, apperrors.ErrBadRequest, "invalid_code_prefix", "Invalid prefix in the code."},
	{document.ErrDocumentNotFound, apperrors.ErrNotFound, "document_not_found", "Document not found for the provided code."},
	{document.ErrNoEditedVersion, apperrors.ErrNotFound, "no_edited_version", "This document does not have an edited version."},
	{convert.ErrConversionFailed, apperrors.ErrUnavailable, "conversion_failed", "The document could not be converted to PDF."},
	{circuitbreaker.ErrOpen, apperrors.ErrUnavailable, "conversion_failed", "The document could not be converted to PDF."},
	{examination.ErrNoDocument, apperrors.ErrNotFound, "no_document", "This examination has no document."},
	{repository.ErrNotFound, apperrors.ErrNotFound, "not_found", "Resource not found."},
	{storage.ErrNotFound, apperrors.ErrNotFound, "not_found", "Resource not found."},
	{repository.ErrDuplicateEmail, apperrors.ErrConflict, "duplicate_email", "An account with this email already exists."},
	{repository.ErrClinicDoctorExists, apperrors.ErrConflict, "clinic_doctor_exists", "A clinic doctor account already exists."},
	{repository.ErrDuplicateCode, apperrors.ErrConflict, "duplicate_code", "Unique code collision, retry the request."},
	{authsvc.ErrInvalidCredentials, apperrors.ErrUnauthorized, "invalid_credentials", "Invalid email or password."},
	{authsvc.ErrNoRoles, apperrors.ErrForbidden, "no_role", "This account has no role assigned."},
	{auth.ErrInvalidToken, apperrors.ErrUnauthorized, "invalid_token", "Invalid or expired token."},
	{account.ErrSignatureRequired, apperrors.ErrBadRequest, "signature_required", "Doctor accounts require a signature image."},
	{account.ErrPasswordRequired, apperrors.ErrBadRequest, "password_required", "Password and confirmation are required."},
	{security.ErrPasswordTooShort, apperrors.ErrBadRequest, "password_too_short", "Password must be at least 8 characters."},
	{security.ErrPasswordTooLong, apperrors.ErrBadRequest, "password_too_long", "Password must be at most 72 characters."},
	{security.ErrPasswordsMismatch, apperrors.ErrBadRequest, "password_mismatch", "Passwords do not match."},
	{examination.ErrNotADoctor, apperrors.ErrBadRequest, "not_a_doctor", "The attending doctor must be a doctor account."},
	{examination.ErrUnknownServiceType, apperrors.ErrBadRequest, "unknown_service_type", "Unknown service type."},
	{examination.ErrEmptyUpload, apperrors.ErrBadRequest, "empty_upload", "The uploaded file is empty."},
	{examination.ErrPatientRequired, apperrors.ErrBadRequest, "patient_required", "A patient id or patient details are required."},
	{catalog.ErrInvalidSchedule, apperrors.ErrBadRequest, "invalid_schedule", "Invalid appointment date or time."},
	{report.ErrInvalidRange, apperrors.ErrBadRequest, "invalid_range", "Invalid date range."},
	{storage.ErrInvalidDataURL, apperrors.ErrBadRequest, "invalid_data_url", "Expected a base64 data URL."},
	{storage.ErrInvalidPath, apperrors.ErrBadRequest, "invalid_path", "Invalid file name."},
	{docx.ErrNotDocx, apperrors.ErrBadRequest, "not_docx", "The file is not a Word document."},
	{document.ErrTemplateInvalid, apperrors.ErrInternal, "template_invalid", "The examination template could not be read."},
}

// ToAppError maps domain and validation errors onto client errors. Anything
// unrecognised is an internal error.
func ToAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	if fields, ok := validator.FieldErrors(err); ok {
		return apperrors.Validation(fields)
	}
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return apperrors.New(m.code, m.reason, m.msg, err)
		}
	}
	return apperrors.Internal(err)
}
