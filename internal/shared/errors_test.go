package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHTTPErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		err    *echo.HTTPError
		status int
		code   string
	}{
		{"not found", NotFound("session_not_found", "session not found"), http.StatusNotFound, "session_not_found"},
		{"internal", InternalError("get_metrics_failed", "failed to get metrics"), http.StatusInternalServerError, "get_metrics_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.Code)
			}
			apiErr, ok := tt.err.Message.(*APIError)
			if !ok {
				t.Fatal("expected message to be *APIError")
			}
			if apiErr.Code != tt.code {
				t.Errorf("expected code '%s', got '%s'", tt.code, apiErr.Code)
			}
		})
	}
}

func TestAPIError_RenderedByEcho(t *testing.T) {
	e := echo.New()
	e.GET("/missing", func(c echo.Context) error {
		return NotFound("session_not_found", "session not found")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "session_not_found" || body.Message != "session not found" {
		t.Errorf("unexpected body %+v", body)
	}
}
