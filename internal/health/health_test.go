package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer("", 0, slog.New(slog.DiscardHandler))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" {
		t.Errorf("body = %v", body)
	}
	if body["uptime"] == "" {
		t.Error("uptime missing from body")
	}
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before ready = %d, want 503", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "not ready" {
		t.Errorf("body = %v", body)
	}

	s.SetReady(true)
	rec = httptest.NewRecorder()
	s.handleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status after ready = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ready" {
		t.Errorf("body = %v", body)
	}

	// Readiness can flip back off, e.g. while reconnecting.
	s.SetReady(false)
	rec = httptest.NewRecorder()
	s.handleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status after un-ready = %d, want 503", rec.Code)
	}
}

func TestVersion(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleVersion(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body) == 0 {
		t.Error("version body is empty")
	}
}
