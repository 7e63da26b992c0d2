package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chmc/wbms-api/internal/handler"
	apperrors "github.com/chmc/wbms-api/pkg/errors"
)

// SizeLimit rejects bodies declared larger than maxBytes and caps the reader
// for bodies without a length.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, handler.NewErrorResponse(
				apperrors.BadRequest(fmt.Sprintf("request body exceeds %d bytes", maxBytes), nil).WithReason("body_too_large"),
			))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
