package webcam

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/mjpeg"
)

func jpegFrame(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := imaging.New(w, h, c)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

type httpSource struct{ url string }

func (s httpSource) OpenWebcam(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

func decodeSize(t *testing.T, data []byte) image.Point {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode canvas: %v", err)
	}
	return img.Bounds().Size()
}

func TestRedraw_FixedCanvasSize(t *testing.T) {
	m := NewMirror(nil, 64, 48, time.Millisecond, 92, nil, logger.NewConsoleLogger(io.Discard))

	if drawn, _ := m.Redraw(); drawn {
		t.Fatal("Nothing to draw before the first frame")
	}
	if _, ok := m.Canvas(); ok {
		t.Fatal("No canvas expected before the first frame")
	}

	m.Push(jpegFrame(t, 200, 100, color.White))
	drawn, err := m.Redraw()
	if err != nil || !drawn {
		t.Fatalf("Expected a redraw, got drawn=%v err=%v", drawn, err)
	}
	canvas, ok := m.Canvas()
	if !ok {
		t.Fatal("Expected a canvas")
	}
	if size := decodeSize(t, canvas); size != image.Pt(64, 48) {
		t.Errorf("Canvas size %v, expected 64x48", size)
	}

	if drawn, _ := m.Redraw(); drawn {
		t.Error("Unchanged frame must not be redrawn")
	}
}

func TestRedraw_BadFrame(t *testing.T) {
	m := NewMirror(nil, 8, 8, time.Millisecond, 92, nil, logger.NewConsoleLogger(io.Discard))
	m.Push([]byte("not a jpeg"))
	if _, err := m.Redraw(); err == nil {
		t.Error("Expected decode error")
	}
}

func TestRun_PublishesFramesFromStream(t *testing.T) {
	frame := jpegFrame(t, 32, 32, color.Black)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", mjpeg.ContentType)
		flusher := w.(http.Flusher)
		mw := mjpeg.NewWriter(w, flusher.Flush)
		for i := 0; i < 3; i++ {
			if err := mw.WriteFrame(frame); err != nil {
				return
			}
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	var mu sync.Mutex
	var published [][]byte
	m := NewMirror(httpSource{url: server.URL}, 16, 12, 2*time.Millisecond, 80, func(c []byte) {
		mu.Lock()
		published = append(published, c)
		mu.Unlock()
	}, logger.NewConsoleLogger(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(published)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("No canvas published")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if size := decodeSize(t, published[0]); size != image.Pt(16, 12) {
		t.Errorf("Published canvas size %v, expected 16x12", size)
	}
}
