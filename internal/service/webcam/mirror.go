// Package webcam mirrors the backend's live camera stream onto a fixed-size canvas.
package webcam

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/mjpeg"
)

const reconnectDelay = time.Second

// Source opens the backend's MJPEG stream.
type Source interface {
	OpenWebcam(ctx context.Context) (*http.Response, error)
}

// Mirror keeps the latest webcam frame and redraws it at the refresh interval.
type Mirror struct {
	source   Source
	width    int
	height   int
	interval time.Duration
	quality  int
	publish  func(canvas []byte)
	logger   *logger.Logger

	mu       sync.Mutex
	latest   []byte
	seq      uint64
	drawnSeq uint64
	canvas   []byte
}

// NewMirror draws onto a width x height canvas. publish receives each newly
// drawn canvas as JPEG and may be nil.
func NewMirror(source Source, width, height int, interval time.Duration, quality int, publish func([]byte), logger *logger.Logger) *Mirror {
	return &Mirror{
		source:   source,
		width:    width,
		height:   height,
		interval: interval,
		quality:  quality,
		publish:  publish,
		logger:   logger,
	}
}

// Run reads the stream and redraws the canvas until ctx is cancelled.
func (m *Mirror) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.readLoop(ctx)
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("📷 Webcam mirror started (%dx%d)", m.width, m.height)
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			m.logger.Info("📷 Webcam mirror stopped")
			return
		case <-ticker.C:
			if _, err := m.Redraw(); err != nil {
				m.logger.Warning("Webcam redraw failed: %v", err)
			}
		}
	}
}

// Redraw draws the latest frame if it changed since the last redraw.
// It reports whether a new canvas was produced.
func (m *Mirror) Redraw() (bool, error) {
	m.mu.Lock()
	if m.latest == nil || m.seq == m.drawnSeq {
		m.mu.Unlock()
		return false, nil
	}
	frame, seq := m.latest, m.seq
	m.drawnSeq = seq
	m.mu.Unlock()

	canvas, err := m.draw(frame)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	m.canvas = canvas
	m.mu.Unlock()

	if m.publish != nil {
		m.publish(canvas)
	}
	return true, nil
}

// Canvas returns the last drawn canvas as JPEG.
func (m *Mirror) Canvas() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canvas, m.canvas != nil
}

// Push stores a raw JPEG frame as the latest one.
func (m *Mirror) Push(frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = frame
	m.seq++
}

func (m *Mirror) draw(frame []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode webcam frame: %w", err)
	}
	var dst image.Image = src
	if b := src.Bounds(); b.Dx() != m.width || b.Dy() != m.height {
		dst = imaging.Resize(src, m.width, m.height, imaging.Linear)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(m.quality)); err != nil {
		return nil, fmt.Errorf("encode webcam canvas: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *Mirror) readLoop(ctx context.Context) {
	for {
		err := m.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		m.logger.Warning("Webcam stream interrupted: %v", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (m *Mirror) stream(ctx context.Context) error {
	resp, err := m.source.OpenWebcam(ctx)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader, err := mjpeg.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return err
	}
	for {
		frame, err := reader.NextFrame()
		if err != nil {
			return err
		}
		m.Push(frame)
	}
}
