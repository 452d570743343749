package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadyzReportsFailures(t *testing.T) {
	r := NewBaseRouterWithReady(
		ReadyCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
		ReadyCheck{Name: "skipped"},
	)

	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), "redis: connection refused") {
		t.Fatalf("unexpected body: %q", rw.Body.String())
	}
}

func TestHealthzOK(t *testing.T) {
	r := NewBaseRouterWithReady()
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rw.Code != http.StatusOK || rw.Body.String() != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", rw.Code, rw.Body.String())
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("DEBUG").String() != "DEBUG" {
		t.Fatal("expected debug level")
	}
	if parseLevel("bogus").String() != "INFO" {
		t.Fatal("expected info fallback")
	}
}
