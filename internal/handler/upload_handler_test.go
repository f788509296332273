package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"neuroscan/config"
	"neuroscan/internal/domain/upload"
	"neuroscan/internal/handler"
	"neuroscan/internal/repository/memory"
	"neuroscan/internal/server"
	"neuroscan/internal/services"
	"neuroscan/internal/storage"
	"neuroscan/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	engine *gin.Engine
	repo   *memory.MemoryUploadRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AppPort:      "0",
		AppMode:      server.TestMode,
		JWTSecret:    "test-secret",
		JWTExpiryMin: 15,
	}

	repo := memory.NewUploadRepository()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	uploadService := services.NewUploadService(repo, store, nil, nil, nil)
	authService := services.NewAuthService(memory.NewUserRepository(), cfg)

	srv := server.New(cfg, nil)
	srv.SetupRoutes(&server.Handlers{
		Upload: handler.NewUploadHandler(uploadService),
		Auth:   handler.NewAuthHandler(authService),
	}, authService, nil)

	return &testEnv{engine: srv.Engine(), repo: repo}
}

type part struct {
	name    string
	mime    string
	content []byte
}

func multipartBody(t *testing.T, patientInfo string, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, p.name))
		h.Set("Content-Type", p.mime)
		fw, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = fw.Write(p.content)
		require.NoError(t, err)
	}
	if patientInfo != "" {
		require.NoError(t, writer.WriteField("patientInfo", patientInfo))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) uploadOne(t *testing.T) upload.UploadRecord {
	t.Helper()
	body, ct := multipartBody(t, "", part{"scan1.dcm", "application/dicom", []byte("dicom-bytes")})
	w := e.do(t, http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	var resp httpdto.UploadBatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Uploads, 1)
	return resp.Uploads[0]
}

func TestUpload_SingleDicomFile(t *testing.T) {
	env := newTestEnv(t)

	content := []byte("pretend this is a brain scan")
	body, ct := multipartBody(t, "", part{"scan1.dcm", "application/dicom", content})
	w := env.do(t, http.MethodPost, "/api/upload", body, ct)

	require.Equal(t, http.StatusOK, w.Code)
	var resp httpdto.UploadBatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Uploads, 1)
	rec := resp.Uploads[0]
	assert.Equal(t, upload.StatusUploaded, rec.Status)
	assert.Equal(t, int64(len(content)), rec.FileSize)
	assert.Equal(t, "scan1.dcm", rec.OriginalName)
	assert.Equal(t, "1 file(s) uploaded successfully", resp.Message)
	assert.Empty(t, resp.Failures)
}

func TestUpload_WithPatientInfo(t *testing.T) {
	env := newTestEnv(t)

	info := `{"patientId":"P-77","age":61,"gender":"male","scanType":"t1","clinicalNotes":"follow-up"}`
	body, ct := multipartBody(t, info,
		part{"a.dcm", "application/dicom", []byte("a")},
		part{"b.png", "image/png", []byte("b")},
	)
	w := env.do(t, http.MethodPost, "/api/upload", body, ct)

	require.Equal(t, http.StatusOK, w.Code)
	var resp httpdto.UploadBatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Uploads, 2)
	for _, rec := range resp.Uploads {
		require.NotNil(t, rec.PatientInfo)
		assert.Equal(t, "P-77", rec.PatientInfo.PatientID)
		assert.Equal(t, "t1", rec.PatientInfo.ScanType)
	}
}

func TestUpload_NoFiles(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, "")
	w := env.do(t, http.MethodPost, "/api/upload", body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp httpdto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "No files uploaded", resp.Error)
}

func TestUpload_InvalidFileTypeRejected(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, "", part{"notes.txt", "text/plain", []byte("hello")})
	w := env.do(t, http.MethodPost, "/api/upload", body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp httpdto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "Invalid file type")
	assert.Equal(t, "INVALID_FILE_TYPE", resp.Code)
	assert.Equal(t, 1, resp.Count)

	// Atomic rejection: nothing was created.
	records, err := env.repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpload_MalformedPatientInfo(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, "{not json", part{"scan.dcm", "application/dicom", []byte("x")})
	w := env.do(t, http.MethodPost, "/api/upload", body, ct)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp httpdto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid patient info", resp.Error)
}

func TestGetUpload_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/upload/00000000-0000-0000-0000-000000000001", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp httpdto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Upload not found", resp.Error)
}

func TestGetUpload_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	created := env.uploadOne(t)

	w := env.do(t, http.MethodGet, "/api/upload/"+created.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var rec upload.UploadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, created.ID, rec.ID)
	assert.Equal(t, upload.StatusUploaded, rec.Status)
}

func TestListUploads(t *testing.T) {
	env := newTestEnv(t)
	env.uploadOne(t)
	env.uploadOne(t)

	w := env.do(t, http.MethodGet, "/api/uploads", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var records []upload.UploadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 2)
}

func TestUpdateStatus_ErrorOverride(t *testing.T) {
	env := newTestEnv(t)
	created := env.uploadOne(t)

	_, err := env.repo.UpdateStatus(context.Background(), created.ID, upload.StatusProcessing, nil)
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"status":"error"}`)
	w := env.do(t, http.MethodPut, "/api/upload/"+created.ID.String()+"/status", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	var rec upload.UploadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, upload.StatusError, rec.Status)
	assert.Nil(t, rec.Results)

	// Subsequent GET agrees.
	w = env.do(t, http.MethodGet, "/api/upload/"+created.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, upload.StatusError, rec.Status)
	assert.Nil(t, rec.Results)
}

func TestUpdateStatus_IdempotentCompleted(t *testing.T) {
	env := newTestEnv(t)
	created := env.uploadOne(t)

	payload := `{"status":"completed","results":{"confidenceScore":93.2,"anomaliesDetected":true,"findings":["lesion in region B"],"processingTime":204}}`

	w1 := env.do(t, http.MethodPut, "/api/upload/"+created.ID.String()+"/status", bytes.NewBufferString(payload), "application/json")
	require.Equal(t, http.StatusOK, w1.Code)
	w2 := env.do(t, http.MethodPut, "/api/upload/"+created.ID.String()+"/status", bytes.NewBufferString(payload), "application/json")
	require.Equal(t, http.StatusOK, w2.Code)

	assert.JSONEq(t, w1.Body.String(), w2.Body.String())

	var rec upload.UploadRecord
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &rec))
	require.NotNil(t, rec.Results)
	assert.Equal(t, 93.2, rec.Results.ConfidenceScore)
	assert.NotNil(t, rec.ProcessedAt)
}

func TestUpdateStatus_RejectsRegression(t *testing.T) {
	env := newTestEnv(t)
	created := env.uploadOne(t)

	_, err := env.repo.UpdateStatus(context.Background(), created.ID, upload.StatusProcessing, nil)
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"status":"uploaded"}`)
	w := env.do(t, http.MethodPut, "/api/upload/"+created.ID.String()+"/status", body, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatus_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	body := bytes.NewBufferString(`{"status":"error"}`)
	w := env.do(t, http.MethodPut, "/api/upload/00000000-0000-0000-0000-000000000001/status", body, "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	a := env.uploadOne(t)
	env.uploadOne(t)

	_, err := env.repo.UpdateStatus(context.Background(), a.ID, upload.StatusProcessing, nil)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats services.UploadStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Uploaded)
	assert.Equal(t, 1, stats.Processing)
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/uploads", nil, "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = env.do(t, http.MethodOptions, "/api/upload", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	register := bytes.NewBufferString(`{"username":"radiologist","password":"s3cret-pass"}`)
	w := env.do(t, http.MethodPost, "/api/auth/register", register, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	var auth services.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))
	require.NotEmpty(t, auth.AccessToken)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "radiologist")

	// Without a token the endpoint is closed.
	w = env.do(t, http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
