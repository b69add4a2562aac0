package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eleven-am/voice-relay/internal/health"
	"github.com/eleven-am/voice-relay/internal/transcription"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestEchoServer_NotFound(t *testing.T) {
	e := NewEchoServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"Not found"}` {
		t.Errorf("unexpected body %s", body)
	}
}

func TestEchoServer_Preflight(t *testing.T) {
	e := NewEchoServer()

	req := httptest.NewRequest(http.MethodOptions, "/textract", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected any origin, got %q", got)
	}
}

func TestProvideTranscriptionBackend(t *testing.T) {
	tests := []struct {
		provider string
		name     string
		wantErr  bool
	}{
		{"aws", "aws", false},
		{"", "aws", false},
		{"deepgram", "deepgram", false},
		{"whisper", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			backend, err := ProvideTranscriptionBackend(transcription.Config{Provider: tt.provider}, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if backend.Name() != tt.name {
				t.Errorf("expected %s, got %s", tt.name, backend.Name())
			}
		})
	}
}

func TestProvideGatewayDeps_TrackingToggle(t *testing.T) {
	cfg := defaultConfig()
	deps := ProvideGatewayDeps(cfg, nil, nil, ProvideSessionStore(nil))
	if deps.Tracker == nil {
		t.Error("expected tracker when tracking is on")
	}

	cfg.SessionTracking = false
	deps = ProvideGatewayDeps(cfg, nil, nil, ProvideSessionStore(nil))
	if deps.Tracker != nil {
		t.Error("expected nil tracker when tracking is off")
	}
}

func TestServingStatus(t *testing.T) {
	if servingStatus(health.StatusHealthy) != healthpb.HealthCheckResponse_SERVING {
		t.Error("healthy should serve")
	}
	if servingStatus(health.StatusDegraded) != healthpb.HealthCheckResponse_SERVING {
		t.Error("degraded should serve")
	}
	if servingStatus(health.StatusUnhealthy) != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Error("unhealthy should not serve")
	}
}
