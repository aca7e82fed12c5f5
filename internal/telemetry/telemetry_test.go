package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTelemetry(t *testing.T) {
	// Test with empty endpoint (should not fail, just no telemetry)
	shutdown, err := InitTelemetry(context.Background(), "test-service", "v1.0.0", "test", "", nil)
	if err != nil {
		t.Fatalf("InitTelemetry failed: %v", err)
	}
	if shutdown != nil {
		defer shutdown(context.Background())
	}
}

func TestExporterTarget(t *testing.T) {
	tests := []struct {
		in        string
		endpoint  string
		tracePath string
		logPath   string
		insecure  bool
	}{
		{"", "", "/v1/traces", "/v1/logs", false},
		{"http://localhost:4318", "localhost:4318", "/v1/traces", "/v1/logs", true},
		{"https://otlp.example.com/otlp", "otlp.example.com", "/otlp/v1/traces", "/otlp/v1/logs", false},
		{"https://otlp.example.com/base/v1/traces", "otlp.example.com", "/base/v1/traces", "/base/v1/logs", false},
	}

	for _, tt := range tests {
		endpoint, tracePath, logPath, insecure := exporterTarget(tt.in)
		if endpoint != tt.endpoint || tracePath != tt.tracePath || logPath != tt.logPath || insecure != tt.insecure {
			t.Errorf("exporterTarget(%q) = %q %q %q %v", tt.in, endpoint, tracePath, logPath, insecure)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders("Authorization=Bearer abc, x-team = food ,broken")
	if headers["Authorization"] != "Bearer abc" {
		t.Errorf("unexpected Authorization header %q", headers["Authorization"])
	}
	if headers["x-team"] != "food" {
		t.Errorf("unexpected x-team header %q", headers["x-team"])
	}
	if len(headers) != 2 {
		t.Errorf("expected 2 headers, got %d", len(headers))
	}
}

func TestInitMetrics(t *testing.T) {
	handler, shutdown, err := InitMetrics(context.Background(), "test-service", "v1.0.0", "test")
	if err != nil {
		t.Fatalf("InitMetrics failed: %v", err)
	}
	defer shutdown(context.Background())

	counter, err := otel.Meter("test").Int64Counter("test.counter")
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "test_counter") {
		t.Errorf("expected counter in exposition, got:\n%s", rr.Body.String())
	}
}

func TestTracer(t *testing.T) {
	tracer := Tracer("test-tracer")
	if tracer == nil {
		t.Fatal("Tracer returned nil")
	}
}

func TestMiddleware(t *testing.T) {
	mw := Middleware()
	if mw == nil {
		t.Fatal("Middleware returned nil")
	}
}
