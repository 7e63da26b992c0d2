package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := true
	h := NewHandler(map[string]Check{
		"database": func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("connection refused")
		},
	})
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, get("/api/v1/health/live").Code)
	assert.Equal(t, http.StatusOK, get("/api/v1/health/ready").Code)

	healthy = false
	w := get("/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"DOWN","checks":{"database":"connection refused"}}`, w.Body.String())
	assert.Equal(t, http.StatusOK, get("/api/v1/health/live").Code)
}
