package route

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
	"github.com/t0m4t0ww/license-plate-recognition/internal/handler"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/middleware"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers static file serving, the session API, media streams
// and log endpoints, and wraps the mux with CORS and request logging.
func SetupRoutes(manager *service.Manager, hub *websocket.HubService, webcamURL string, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Session
	mux.HandleFunc("GET /api/state", handler.StateHandler(manager, logger))
	mux.HandleFunc("GET /api/view", handler.ViewWebsocketHandler(manager, hub, cfg, logger))
	mux.HandleFunc("POST /api/input/image", handler.UploadImageHandler(manager, cfg, logger))
	mux.HandleFunc("POST /api/input/video", handler.UploadVideoHandler(manager, cfg, logger))
	mux.HandleFunc("POST /api/input/webcam", handler.SelectWebcamHandler(manager, logger))
	mux.HandleFunc("POST /api/process", handler.ProcessHandler(manager, logger))
	mux.HandleFunc("POST /api/reset", handler.ResetHandler(manager, logger))
	mux.HandleFunc("POST /api/video/pause", handler.PauseVideoHandler(manager, logger))
	mux.HandleFunc("POST /api/video/play", handler.PlayVideoHandler(manager, logger))

	// Media
	mux.HandleFunc("GET /api/media/{id}", handler.MediaHandler(manager))
	mux.HandleFunc("GET /api/video/stats", handler.VideoStatsHandler(manager, logger))
	mux.HandleFunc("GET /api/video/stream", handler.VideoStreamHandler(manager, cfg, logger))
	mux.Handle("GET /api/webcam", handler.WebcamRelayHandler(webcamURL, logger))
	mux.HandleFunc("GET /api/webcam/canvas", handler.WebcamCanvasHandler(manager))

	// Log endpoints
	for _, name := range []string{"info", "warning", "error"} {
		file := name + ".log"
		mux.HandleFunc("GET /logs/"+name, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc("POST /logs/"+name+"/clear", handler.ClearLogsHandler(logger, file))
	}

	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Automatic HTML handler mapping, for example /about -> /static/about.html
	mux.HandleFunc("GET /", dynamicHTMLHandler(cfg.StaticDirectory))

	// Apply middleware
	return middleware.CORSMiddleware(cfg.AllowedOrigin, middleware.LoggingMiddleware(logger, mux))
}
