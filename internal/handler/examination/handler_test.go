package examination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmc/wbms-api/internal/middleware"
	"github.com/chmc/wbms-api/internal/model"
	"github.com/chmc/wbms-api/internal/repository/memory"
	"github.com/chmc/wbms-api/internal/service/document"
	"github.com/chmc/wbms-api/internal/service/examination"
	"github.com/chmc/wbms-api/internal/storage"
	"github.com/chmc/wbms-api/pkg/metrics"
	"github.com/chmc/wbms-api/pkg/security"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

type echoConverter struct{}

func (echoConverter) ToPDF(_ context.Context, _ string, r io.Reader) (io.ReadCloser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(append([]byte("%PDF "), data...))), nil
}

type testEnv struct {
	router   *gin.Engine
	files    *storage.MemoryStore
	doctorID int64
	xrayID   int64
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.New("sequence")
	repos := store.Repos()
	files := storage.NewMemoryStore()

	doctor := &model.Account{Email: "reyes@chmc.ph", FirstName: "Maria", MiddleInitial: "S", LastName: "Reyes", IsAssociatedDoctor: true}
	require.NoError(t, repos.Accounts.Create(ctx, doctor))
	xray := model.ServiceType{Name: "X-Ray"}
	require.NoError(t, repos.ServiceTypes.Create(ctx, &xray))

	codes := document.NewCodes("CHMC", security.Secret{Salt: "CHMC2024", Pepper: "WBMS2025"})
	m := metrics.NewNop()
	svc := examination.NewService(
		store,
		repos,
		files,
		document.NewGenerator(document.DefaultTemplateSource, files, codes, m),
		document.NewVerifier(repos, codes, files, echoConverter{}, m),
		document.NewIntegrity(repos.Examinations, files),
	)

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return &testEnv{router: r, files: files, doctorID: doctor.ID, xrayID: xray.ID}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) create(t *testing.T) int64 {
	t.Helper()
	body := fmt.Sprintf(`{
		"patient": {"first_name":"Juan","middle_name":"Dela","last_name":"Cruz","age":42,"sex":"Male","address":"Cebu","contact_number":"09170000000"},
		"webcam_image": "data:image/png;base64,d2ViY2Ft",
		"attending_doctor_id": %d,
		"service_type_ids": [%d],
		"payment": {"amount": "1500.00", "method": "Cash"}
	}`, e.doctorID, e.xrayID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/examinations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := e.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data model.Examination `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, `^\d{2}-01$`, resp.Data.FileNumber)
	require.NotNil(t, resp.Data.UniqueCode)
	assert.True(t, strings.HasPrefix(*resp.Data.UniqueCode, "CHMC-"))
	return resp.Data.ID
}

func (e *testEnv) uploadEdited(id int64, name string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		part, _ := mw.CreateFormFile(editedDocumentField, name)
		_, _ = part.Write(content)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/examinations/%d/edited-document", id), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func TestCreateAndDownloadDocument(t *testing.T) {
	e := setup(t)
	id := e.create(t)

	w := e.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/examinations/%d/document", id), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, docxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Cruz, Juan D..docx"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestCreateExaminationValidation(t *testing.T) {
	e := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/examinations", strings.NewReader(`{"payment":{"method":"Card"}}`))
	req.Header.Set("Content-Type", "application/json")
	w := e.do(req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"validation_failed"`)
	assert.Contains(t, w.Body.String(), `"attending_doctor_id"`)
}

func TestEditedDocumentViewAndIntegrity(t *testing.T) {
	e := setup(t)
	id := e.create(t)
	viewURL := fmt.Sprintf("/api/v1/examinations/%d/view", id)

	w := e.do(httptest.NewRequest(http.MethodGet, viewURL, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"no_edited_version"`)

	w = e.uploadEdited(id, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"missing_file"`)

	w = e.uploadEdited(id, "final.docx", []byte("edited body"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"edited_document_path":"examination_documents/edited/final.docx"`)

	w = e.do(httptest.NewRequest(http.MethodGet, viewURL, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pdfContentType, w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "inline"))
	assert.Equal(t, "%PDF edited body", w.Body.String())

	w = e.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/examinations/%d/integrity", id), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data model.IntegrityReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Verifiable)
	assert.True(t, resp.Data.Intact)

	require.NoError(t, e.files.Put(context.Background(), "examination_documents/edited/final.docx", strings.NewReader("tampered")))
	w = e.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/examinations/%d/integrity", id), nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Intact)
}

func TestUploadResultImage(t *testing.T) {
	e := setup(t)
	id := e.create(t)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/examinations/%d/result-image", id),
		strings.NewReader(`{"result_image":"data:image/jpeg;base64,cmVzdWx0"}`))
	req.Header.Set("Content-Type", "application/json")
	w := e.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	name := fmt.Sprintf("examination_results/examination_%d_image.jpeg", id)
	data, ok := e.files.Bytes(name)
	require.True(t, ok)
	assert.Equal(t, "result", string(data))
}

func TestUnknownExamination(t *testing.T) {
	e := setup(t)

	w := e.do(httptest.NewRequest(http.MethodGet, "/api/v1/examinations/99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(httptest.NewRequest(http.MethodGet, "/api/v1/examinations/x/document", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
