package report

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/chmc/wbms-api/internal/middleware"
	"github.com/chmc/wbms-api/internal/repository/memory"
	"github.com/chmc/wbms-api/internal/service/report"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

func setupRouter() *gin.Engine {
	repos := memory.New("sequence").Repos()
	h := NewHandler(report.NewService(repos.Reports, repos.Examinations))
	h.now = func() time.Time { return time.Date(2025, time.March, 4, 12, 0, 0, 0, time.Local) }

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestExportPaymentsWorkbook(t *testing.T) {
	r := setupRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports/payments.xlsx?from=2025-03-01&to=2025-03-31", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="payments_20250304.xlsx"`, w.Header().Get("Content-Disposition"))

	book, err := xlsx.OpenBinary(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, book.Sheets, 1)
	assert.Equal(t, report.SheetName, book.Sheets[0].Name)
	require.Len(t, book.Sheets[0].Rows, 1)
}

func TestExportPaymentsRejectsBadRange(t *testing.T) {
	r := setupRouter()

	testCases := []struct {
		name  string
		query string
		code  string
	}{
		{"reversed", "?from=2025-03-31&to=2025-03-01", "invalid_range"},
		{"bad date", "?from=03/01/2025", "validation_failed"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports/payments.xlsx"+tc.query, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"`+tc.code+`"`)
		})
	}
}

func TestSummary(t *testing.T) {
	r := setupRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports/payments/summary", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
}
