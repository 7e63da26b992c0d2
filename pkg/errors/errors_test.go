package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	testCases := []struct {
		name string
		err  *AppError
		want int
	}{
		{"not found", NotFound("examination", nil), http.StatusNotFound},
		{"bad request", BadRequest("bad", nil), http.StatusBadRequest},
		{"conflict", Conflict("exists", nil), http.StatusConflict},
		{"unavailable", Unavailable("down", nil), http.StatusBadGateway},
		{"unauthorized", Unauthorized(nil), http.StatusUnauthorized},
		{"forbidden", Forbidden(nil), http.StatusForbidden},
		{"rate limited", TooManyRequests(), http.StatusTooManyRequests},
		{"internal", Internal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.StatusCode())
		})
	}
}

func TestAsFindsWrappedError(t *testing.T) {
	base := NotFound("patient", nil).WithReason("patient_not_found")
	wrapped := fmt.Errorf("load: %w", base)

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "patient_not_found", appErr.Reason)
	assert.Equal(t, "patient not found", appErr.Message)

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestWithReasonCopies(t *testing.T) {
	base := BadRequest("Invalid code format.", nil)
	derived := base.WithReason("invalid_code_format")

	assert.Equal(t, "bad_request", base.Reason)
	assert.Equal(t, "invalid_code_format", derived.Reason)
	assert.Equal(t, base.Message, derived.Message)
}

func TestNewKeepsReasonAndCause(t *testing.T) {
	cause := fmt.Errorf("no rows")
	err := New(ErrNotFound, "document_not_found", "Document not found for the provided code.", cause)

	assert.Equal(t, http.StatusNotFound, err.StatusCode())
	assert.Equal(t, "document_not_found", err.Reason)
	assert.ErrorIs(t, err, cause)
}
