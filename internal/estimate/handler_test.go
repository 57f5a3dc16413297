package estimate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"roofquote_backend/internal/results"
	"roofquote_backend/platform/logger"
	"roofquote_backend/platform/validator"
)

func newTestRouter(t *testing.T, f *serviceFixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewHandler(f.service, validator.New(), logger.New("test"))

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	v1 := engine.Group("/api/v1")
	v1.POST("/webhooks/estimate", handler.HandleEstimateWebhook)
	v1.GET("/estimates/results/:callbackId", handler.HandleGetResult)
	v1.GET("/estimates/measure", handler.HandleMeasure)
	return engine
}

func TestWebhookReturnsEstimate(t *testing.T) {
	f := newServiceFixture(t)
	engine := newTestRouter(t, f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/estimate",
		strings.NewReader(`{"job_type":"retail","stories":1,"squares":18}`))
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp EstimateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Outcome != OutcomeEstimated || resp.TotalEstimate != 9000 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestWebhookDoubleEncodedBody(t *testing.T) {
	f := newServiceFixture(t)
	engine := newTestRouter(t, f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/estimate",
		strings.NewReader(`"{\"squares\": 18, \"stories\": 1}"`))
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookMalformedBody(t *testing.T) {
	f := newServiceFixture(t)
	engine := newTestRouter(t, f)

	for _, body := range []string{`not json`, `[1,2]`, `"plain text"`} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/estimate", strings.NewReader(body))
		engine.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestWebhookInvalidSquaresIs400(t *testing.T) {
	f := newServiceFixture(t)
	engine := newTestRouter(t, f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/estimate",
		strings.NewReader(`{"squares":"a lot"}`))
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookWritebackFailureIs502(t *testing.T) {
	f := newServiceFixture(t)
	f.crm.enabled = true
	f.crm.err = context.DeadlineExceeded
	engine := newTestRouter(t, f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/estimate",
		strings.NewReader(`{"squares":10,"stories":1,"contact_id":"c-1"}`))
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	// The estimate still rides along in the body.
	var resp EstimateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.TotalEstimate != 5000 {
		t.Fatalf("total = %v, want 5000", resp.TotalEstimate)
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	f := newServiceFixture(t)
	engine := newTestRouter(t, f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/estimate", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestGetResult(t *testing.T) {
	f := newServiceFixture(t)
	engine := newTestRouter(t, f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/estimates/results/cb-missing", nil)
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	if err := f.store.Put(context.Background(), results.Record{
		CallbackID: "cb-1",
		Payload:    json.RawMessage(`{"outcome":"estimated"}`),
		CreatedAt:  time.Now(),
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/estimates/results/cb-1", nil)
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "estimated") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestMeasureEndpoint(t *testing.T) {
	f := newServiceFixture(t)
	f.measurer.squares = 22
	engine := newTestRouter(t, f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/estimates/measure?address=12+Oak+Ave%2C+Denver%2C+CO", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp MeasureResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.RawSquares != 22 || resp.BufferedSquares != 26 {
		t.Fatalf("unexpected measurement: %+v", resp)
	}
}

func TestMeasureEndpointRequiresAddress(t *testing.T) {
	f := newServiceFixture(t)
	engine := newTestRouter(t, f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/estimates/measure", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
