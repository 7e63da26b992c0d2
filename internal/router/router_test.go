package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmc/wbms-api/internal/middleware"
	"github.com/chmc/wbms-api/pkg/auth"
)

type stub struct{ path string }

func (s stub) RegisterRoutes(r *gin.RouterGroup) {
	r.GET(s.path, func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

type adminStub struct {
	stub
	admin string
}

func (s adminStub) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET(s.admin, func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func (s adminStub) RegisterStaffRoutes(r *gin.RouterGroup) {
	r.GET(s.admin, func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

type verifyStub struct{}

func (verifyStub) RegisterRoutes(r *gin.RouterGroup, mw ...gin.HandlerFunc) {
	r.POST("/verify-document", append(mw, func(c *gin.Context) { c.Status(http.StatusNoContent) })...)
}

func setup(t *testing.T) (*gin.Engine, auth.JWTService) {
	t.Helper()
	jwtSvc, err := auth.NewJWTService(auth.Config{Secret: "router-secret", Issuer: "wbms-api", TokenExpiry: time.Hour})
	require.NoError(t, err)

	r := NewRouter(middleware.NewAuthMiddleware(jwtSvc), Handlers{
		Auth:        stub{path: "/auth/login"},
		Health:      stub{path: "/health/live"},
		Account:     adminStub{stub: stub{path: "/accounts"}, admin: "/profile"},
		Patient:     adminStub{stub: stub{path: "/patients"}, admin: "/patients/secure"},
		Examination: stub{path: "/examinations"},
		Catalog:     stub{path: "/service-types"},
		Report:      stub{path: "/reports/payments/summary"},
		Verify:      verifyStub{},
	}, RouterConfig{
		MaxBodyBytes: 1 << 20,
		VerifyLimit:  middleware.NewRateLimiter(0.001, 1, time.Minute),
		Mode:         gin.TestMode,
	})
	r.Setup()
	return r.Engine(), jwtSvc
}

func TestRouteProtection(t *testing.T) {
	engine, jwtSvc := setup(t)
	employee, _, err := jwtSvc.GenerateAccessToken(1, "staff@chmc.ph", []string{"employee"})
	require.NoError(t, err)
	admin, _, err := jwtSvc.GenerateAccessToken(2, "admin@chmc.ph", []string{"admin"})
	require.NoError(t, err)

	testCases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"public health", "/api/v1/health/live", "", http.StatusNoContent},
		{"staff without token", "/api/v1/examinations", "", http.StatusUnauthorized},
		{"staff as employee", "/api/v1/examinations", employee, http.StatusNoContent},
		{"staff as admin", "/api/v1/patients", admin, http.StatusNoContent},
		{"admin as employee", "/api/v1/reports/payments/summary", employee, http.StatusForbidden},
		{"admin as admin", "/api/v1/accounts", admin, http.StatusNoContent},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.token != "" && tc.status == http.StatusNoContent {
				assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestVerifyIsRateLimited(t *testing.T) {
	engine, _ := setup(t)

	send := func() int {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/verify-document", nil))
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
