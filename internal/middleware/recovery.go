package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chmc/wbms-api/internal/handler"
	apperrors "github.com/chmc/wbms-api/pkg/errors"
)

// Recovery turns a panic into the standard 500 envelope. The stack goes to
// the log only.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger := zerolog.Ctx(c.Request.Context())
			if logger.GetLevel() == zerolog.Disabled {
				logger = &log.Logger
			}
			logger.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("method", c.Request.Method).
				Str("route", c.FullPath()).
				Msg("Request panic recovered")

			c.AbortWithStatusJSON(http.StatusInternalServerError,
				handler.NewErrorResponse(apperrors.Internal(fmt.Errorf("panic: %v", rec))))
		}()
		c.Next()
	}
}
