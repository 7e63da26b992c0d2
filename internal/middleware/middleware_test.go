package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmc/wbms-api/internal/handler"
	"github.com/chmc/wbms-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	jwtSvc, err := auth.NewJWTService(auth.Config{Secret: "test-secret", Issuer: "wbms-api", TokenExpiry: time.Hour})
	require.NoError(t, err)
	m := NewAuthMiddleware(jwtSvc)

	r := gin.New()
	r.GET("/staff", m.Authenticate(), m.RequireRole("employee", "admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account_id": handler.AccountID(c)})
	})

	employee, _, err := jwtSvc.GenerateAccessToken(7, "staff@chmc.ph", []string{"employee"})
	require.NoError(t, err)
	doctor, _, err := jwtSvc.GenerateAccessToken(8, "doc@chmc.ph", []string{"doctor"})
	require.NoError(t, err)

	testCases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing_token"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid_authorization"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "invalid_token"},
		{"wrong role", "Bearer " + doctor, http.StatusForbidden, "forbidden"},
		{"allowed", "Bearer " + employee, http.StatusOK, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/staff", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, decodeError(t, w).Code)
			} else {
				assert.JSONEq(t, `{"account_id":7}`, w.Body.String())
			}
		})
	}
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, time.Minute)
	r := gin.New()
	r.POST("/verify", rl.RateLimit(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/verify", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2"))
}

func TestRecoveryAndRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderXRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(HeaderXRequestID))
	resp := decodeError(t, w)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "internal", resp.Code)
}

func TestRequestIDReplacesUnusableHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	for _, header := range []string{"", "has space", strings.Repeat("a", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(HeaderXRequestID, header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		rid := w.Header().Get(HeaderXRequestID)
		_, err := uuid.Parse(rid)
		assert.NoError(t, err, "header %q", header)
		assert.Equal(t, rid, w.Body.String())
	}
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.POST("/upload", SizeLimit(4), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.ContentLength = 10
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "body_too_large", decodeError(t, w).Code)
}

func TestHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(DefaultSecurityConfig()), NoStore())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
