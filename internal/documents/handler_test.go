package documents

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lexscan-backend/internal/shared/server/middleware"
)

func newTestRouter(repo Repo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Auth("test"))
	handler := NewHandler(&Service{Repo: repo})
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestHandlerListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seedDoc(t, repo, "d1", "u1", base)
	seedDoc(t, repo, "d2", "u1", base.Add(time.Minute))
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var items []ListItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0].DocumentID != "d2" {
		t.Fatalf("unexpected listing: %+v", items)
	}
}

func TestHandlerGetScopedToOwner(t *testing.T) {
	repo := NewMemoryRepo()
	seedDoc(t, repo, "d1", "u1", time.Now())
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/d1", nil)
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var detail DetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.DocumentID != "d1" || detail.Status != StatusQueued {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/d1", nil)
	req.Header.Set("X-User-Id", "u2")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user, got %d", rec.Code)
	}
}

func TestHandlerGetUnknownReturns404(t *testing.T) {
	router := newTestRouter(NewMemoryRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/nope", nil)
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandlerRequiresIdentity(t *testing.T) {
	router := newTestRouter(NewMemoryRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestHandlerDeleteAll(t *testing.T) {
	repo := NewMemoryRepo()
	seedDoc(t, repo, "d1", "u1", time.Now())
	seedDoc(t, repo, "d2", "u1", time.Now())
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents", nil)
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["deleted"] != 2 {
		t.Fatalf("expected 2 deleted, got %d", body["deleted"])
	}
}
