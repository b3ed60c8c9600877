package detector

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := &config.Config{DetectorURL: url + "/", DetectTimeoutMs: 2000}
	return NewClient(cfg, logger.NewConsoleLogger(io.Discard))
}

func TestDetect_SendsMultipartImage(t *testing.T) {
	var gotFilename, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/detect" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("Expected a request ID header")
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile failed: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFilename = header.Filename
		gotBody = string(data)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"annotated_image":"QUJD","text":"51F-123.45","gallery":[{"image":"MQ==","text":"51F-123.45"}],"confidence":97.3}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.Detect(context.Background(), strings.NewReader("jpeg-bytes"), "car.jpg")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if gotFilename != "car.jpg" || gotBody != "jpeg-bytes" {
		t.Errorf("Backend received filename=%q body=%q", gotFilename, gotBody)
	}
	if result.Text != "51F-123.45" {
		t.Errorf("Unexpected text %q", result.Text)
	}
	if result.Confidence == nil || *result.Confidence != 97.3 {
		t.Errorf("Unexpected confidence %v", result.Confidence)
	}
	if len(result.Gallery) != 1 || result.AnnotatedImage != "QUJD" {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestDetect_DefaultFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("image")
		if err != nil || header.Filename != "image.jpg" {
			t.Errorf("Expected default filename, got err=%v", err)
		}
		io.WriteString(w, `{"annotated_image":"","text":"","gallery":[]}`)
	}))
	defer server.Close()

	result, err := newTestClient(t, server.URL).Detect(context.Background(), strings.NewReader("x"), "")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Confidence != nil {
		t.Error("Absent confidence should stay nil")
	}
	if result.Gallery == nil || len(result.Gallery) != 0 {
		t.Errorf("Expected empty, non-nil gallery, got %#v", result.Gallery)
	}
}

func TestDetect_BackendErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"No image uploaded"}`)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Detect(context.Background(), strings.NewReader("x"), "a.jpg")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "No image uploaded" {
		t.Errorf("Unexpected error %+v", apiErr)
	}
	if !IsAPIError(err) {
		t.Error("IsAPIError should report true")
	}
}

func TestDetect_PlainTextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Detect(context.Background(), strings.NewReader("x"), "a.jpg")
	if err == nil || !strings.Contains(err.Error(), "500: model crashed") {
		t.Errorf("Unexpected error %v", err)
	}
}

func TestDetect_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url).Detect(context.Background(), strings.NewReader("x"), "a.jpg")
	if err == nil {
		t.Fatal("Expected transport error")
	}
	if IsAPIError(err) {
		t.Error("Transport failure must not be an APIError")
	}
}

func TestDetect_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, server.URL).Detect(ctx, strings.NewReader("x"), "a.jpg")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestWebcamURL(t *testing.T) {
	client := newTestClient(t, "http://localhost:8000")
	if got := client.WebcamURL(); got != "http://localhost:8000/webcam" {
		t.Errorf("Unexpected webcam URL %q", got)
	}
}
