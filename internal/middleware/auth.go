package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chmc/wbms-api/internal/handler"
	"github.com/chmc/wbms-api/pkg/auth"
	apperrors "github.com/chmc/wbms-api/pkg/errors"
)

type AuthMiddleware struct {
	jwtService auth.JWTService
}

func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate verifies the bearer token and stores the account id and roles
// in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			handler.RespondError(c, apperrors.Unauthorized(nil).WithReason("missing_token"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			handler.RespondError(c, apperrors.Unauthorized(nil).WithReason("invalid_authorization"))
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			handler.RespondError(c, err)
			return
		}

		c.Set(handler.ContextAccountID, claims.AccountID)
		c.Set(handler.ContextRoles, claims.Roles)
		c.Next()
	}
}

// RequireRole admits requests whose token carries any of roles.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted := c.GetStringSlice(handler.ContextRoles)
		for _, want := range roles {
			for _, have := range granted {
				if want == have {
					c.Next()
					return
				}
			}
		}
		handler.RespondError(c, apperrors.Forbidden(nil))
	}
}
