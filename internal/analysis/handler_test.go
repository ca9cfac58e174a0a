package analysis

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"lexscan-backend/internal/shared/server/middleware"
)

func newHandlerRouter(t *testing.T) (*gin.Engine, *pipeline) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	p := newPipeline(t)
	router := gin.New()
	router.Use(middleware.Auth("test"))
	NewHandler(p.svc).RegisterRoutes(router.Group("/api/v1"))
	return router, p
}

func multipartUpload(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func postAnalyze(t *testing.T, router *gin.Engine, userID, plan, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, fileName, content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-Id", userID)
	if plan != "" {
		req.Header.Set("X-User-Plan", plan)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeAccepted(t *testing.T) {
	router, p := newHandlerRouter(t)

	rec := postAnalyze(t, router, "u1", "free", "contract.txt", "agreement text")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["documentId"] == "" || body["status"] != "queued" || body["fileName"] != "contract.txt" {
		t.Fatalf("unexpected body: %v", body)
	}
	if p.queue.Pending() != 1 {
		t.Fatalf("expected one queued job, got %d", p.queue.Pending())
	}
}

func TestAnalyzeQuotaExceeded(t *testing.T) {
	router, _ := newHandlerRouter(t)
	for i := 0; i < 3; i++ {
		if rec := postAnalyze(t, router, "u1", "free", "a.txt", "text"); rec.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d", i, rec.Code)
		}
	}

	rec := postAnalyze(t, router, "u1", "free", "a.txt", "text")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["reason"] != "QUOTA_EXCEEDED" {
		t.Fatalf("expected QUOTA_EXCEEDED reason, got %v", body)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	router, _ := newHandlerRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/analyze", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeOversizeRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := newPipeline(t)
	p.svc.MaxUploadBytes = 64
	router := gin.New()
	router.Use(middleware.Auth("test"))
	NewHandler(p.svc).RegisterRoutes(router.Group("/api/v1"))

	rec := postAnalyze(t, router, "u1", "free", "big.txt", strings.Repeat("x", 4096))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if p.queue.Pending() != 0 {
		t.Fatalf("oversize upload must not be queued")
	}
}
