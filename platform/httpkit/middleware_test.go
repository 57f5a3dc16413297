package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func authTestEngine(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/hook", WebhookKeyAuth(key), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return engine
}

func TestWebhookKeyAuth(t *testing.T) {
	engine := authTestEngine("s3cret")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set("X-Webhook-API-Key", "s3cret")
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("valid key: status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set("X-Webhook-API-Key", "wrong")
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid key: status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/hook", nil)
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: status = %d, want 401", rec.Code)
	}
}

func TestWebhookKeyAuthDisabledWithoutKey(t *testing.T) {
	engine := authTestEngine("")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("no configured key: status = %d, want 204", rec.Code)
	}
}

func TestRequestIDEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-123")
	engine.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("request id = %q, want req-123", got)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	engine.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a generated request id")
	}
}
