package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/voice-relay/internal/gateway"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("not configured") }

func newTestServer(t *testing.T, redisClient *redis.Client, checks ...Check) *echo.Echo {
	t.Helper()
	e := echo.New()
	NewHandler(redisClient, gateway.NewRegistry(), checks, "test").RegisterRoutes(e)
	return e
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	rec := get(newTestServer(t, nil), "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tests := []struct {
		name   string
		checks []Check
		code   int
		status Status
	}{
		{"all healthy", []Check{{Name: "stt", Critical: true, Run: ok}, {Name: "completion", Run: ok}}, http.StatusOK, StatusHealthy},
		{"optional failure degrades", []Check{{Name: "stt", Critical: true, Run: ok}, {Name: "completion", Run: fail}}, http.StatusOK, StatusDegraded},
		{"critical failure", []Check{{Name: "stt", Critical: true, Run: fail}}, http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newTestServer(t, client, tt.checks...), "/health/ready")
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.status {
				t.Errorf("expected %s, got %s", tt.status, resp.Status)
			}
			if resp.Components["redis"].Status != StatusHealthy {
				t.Errorf("expected healthy redis, got %+v", resp.Components["redis"])
			}
			if len(resp.Components) != len(tt.checks)+1 {
				t.Errorf("expected %d components, got %d", len(tt.checks)+1, len(resp.Components))
			}
		})
	}
}

func TestReadiness_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	rec := get(newTestServer(t, client), "/health/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with redis down, got %d", rec.Code)
	}
}

func TestConnections(t *testing.T) {
	rec := get(newTestServer(t, nil), "/health/connections")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp ConnectionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 || resp.Connections == nil {
		t.Errorf("expected empty non-nil list, got %+v", resp)
	}
}

func TestComputeOverallStatus(t *testing.T) {
	critical := map[string]bool{"stt": true}

	tests := []struct {
		name       string
		components map[string]ComponentStatus
		want       Status
	}{
		{"empty", map[string]ComponentStatus{}, StatusHealthy},
		{"healthy", map[string]ComponentStatus{"stt": {Status: StatusHealthy}}, StatusHealthy},
		{"non-critical down", map[string]ComponentStatus{"stt": {Status: StatusHealthy}, "completion": {Status: StatusUnhealthy}}, StatusDegraded},
		{"critical down", map[string]ComponentStatus{"stt": {Status: StatusUnhealthy}}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeOverallStatus(tt.components, critical); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
