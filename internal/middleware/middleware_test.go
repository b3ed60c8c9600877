package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware("*", okHandler(http.StatusTeapot))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/process", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("Preflight: expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Missing Access-Control-Allow-Origin")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("Request should reach the handler, got %d", rec.Code)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewConsoleLogger(&buf)

	LoggingMiddleware(log, okHandler(http.StatusBadGateway)).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/process", nil))
	if out := buf.String(); !strings.Contains(out, "WARNING") || !strings.Contains(out, "POST /api/process -> 502") {
		t.Errorf("Unexpected log output %q", out)
	}

	buf.Reset()
	LoggingMiddleware(log, okHandler(http.StatusOK)).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/view", nil))
	LoggingMiddleware(log, okHandler(http.StatusOK)).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/index.html", nil))
	if buf.Len() != 0 {
		t.Errorf("Streams and static files should not be logged, got %q", buf.String())
	}
}
