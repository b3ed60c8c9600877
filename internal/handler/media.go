package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/disintegration/imaging"

	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/mjpeg"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service"
)

// streamFrameInterval paces /api/video/stream at 25 frames per second.
const streamFrameInterval = 40 * time.Millisecond

// MediaHandler serves a staged upload by ID.
func MediaHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		media, err := manager.Media(r.PathValue("id"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if media.ContentType != "" {
			w.Header().Set("Content-Type", media.ContentType)
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, media.Path)
	}
}

// VideoStreamHandler streams the playing video's visible frames as MJPEG
// until the client leaves or another input is selected.
func VideoStreamHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player := manager.CurrentPlayer()
		if player == nil {
			http.Error(w, "No video is playing", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", mjpeg.ContentType)
		w.Header().Set("Cache-Control", "no-cache")
		var flush func()
		if flusher, ok := w.(http.Flusher); ok {
			flush = flusher.Flush
		}
		writer := mjpeg.NewWriter(w, flush)

		ticker := time.NewTicker(streamFrameInterval)
		defer ticker.Stop()

		var buf bytes.Buffer
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if manager.CurrentPlayer() != player {
					writer.Close()
					return
				}
				frame, err := player.Frame()
				if err != nil {
					continue
				}
				buf.Reset()
				if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(cfg.JPEGQuality)); err != nil {
					logger.Warning("Error encoding stream frame: %v", err)
					continue
				}
				if err := writer.WriteFrame(buf.Bytes()); err != nil {
					return
				}
			}
		}
	}
}

// WebcamRelayHandler proxies the backend's live webcam stream unbuffered.
func WebcamRelayHandler(webcamURL string, logger *logger.Logger) http.Handler {
	target, err := url.Parse(webcamURL)
	if err != nil {
		logger.Error("Invalid webcam URL %q: %v", webcamURL, err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Webcam unavailable", http.StatusBadGateway)
		})
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Scheme = target.Scheme
			pr.Out.URL.Host = target.Host
			pr.Out.URL.Path = target.Path
			pr.Out.URL.RawPath = ""
			pr.Out.URL.RawQuery = target.RawQuery
			pr.Out.Host = ""
		},
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, r.Context().Err()) {
				return
			}
			logger.Warning("Webcam relay error: %v", err)
			http.Error(w, "Webcam unavailable", http.StatusBadGateway)
		},
	}
}

// WebcamCanvasHandler returns the latest fixed-size webcam canvas.
func WebcamCanvasHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		canvas, err := manager.Canvas()
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(canvas)
	}
}
