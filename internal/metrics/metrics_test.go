package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_nilMetrics(t *testing.T) {
	var m *Metrics
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if got := rr.Body.String(); !strings.Contains(got, "metrics unavailable") {
		t.Fatalf("expected body to mention metrics unavailable, got %q", got)
	}
}

func TestNilMetrics_recordersAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
	m.ObserveStoreOperation("get", "ok")
	m.AddDevicesSeeded(4)
}

func TestHandler_exposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/devices/{id}", http.StatusNotFound, 12*time.Millisecond)
	m.ObserveStoreOperation("get", "not_found")
	m.ObserveStoreOperation("get", "not_found")
	m.AddDevicesSeeded(4)
	m.AddDevicesSeeded(0)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	if !strings.Contains(body, "device_http_requests_total{method=\"GET\",path=\"/devices/{id}\",status=\"404\"} 1") {
		t.Fatalf("expected labeled request counter to be incremented; body=%s", body)
	}
	if !strings.Contains(body, "device_http_request_duration_seconds_count{method=\"GET\",path=\"/devices/{id}\",status=\"404\"} 1") {
		t.Fatalf("expected request duration histogram to have one observation; body=%s", body)
	}
	if !strings.Contains(body, "device_store_operations_total{operation=\"get\",outcome=\"not_found\"} 2") {
		t.Fatalf("expected store operation counter to be 2; body=%s", body)
	}
	if !strings.Contains(body, "device_devices_seeded_total 4") {
		t.Fatalf("expected seeded counter to be 4; body=%s", body)
	}
}
