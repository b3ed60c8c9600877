package handler

import (
	"net/http"

	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service"
)

// StateHandler returns the current session view.
func StateHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manager.View(), logger)
	}
}

// ProcessHandler submits the selected image for detection. Without an image it
// does nothing (204); a backend failure answers 502 with the error message.
func ProcessHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := manager.Process(r.Context())
		respond(w, manager, err, http.StatusBadGateway, logger)
	}
}

// ResetHandler starts a delayed reset and answers 202 immediately.
func ResetHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !manager.Reset() {
			logger.Info("Reset already in progress")
		}
		writeJSON(w, http.StatusAccepted, manager.View(), logger)
	}
}

// SelectWebcamHandler switches the session to the live camera.
func SelectWebcamHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, manager, manager.SelectWebcam(), http.StatusInternalServerError, logger)
	}
}

// PauseVideoHandler pauses the playing video.
func PauseVideoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, manager, manager.Pause(), http.StatusInternalServerError, logger)
	}
}

// PlayVideoHandler resumes or restarts the video.
func PlayVideoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, manager, manager.Play(), http.StatusInternalServerError, logger)
	}
}

// VideoStatsHandler reports the frame sampling counters of the playing video.
func VideoStatsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, ok := manager.SamplerStats()
		if !ok {
			writeError(w, http.StatusConflict, service.ErrNoPlayback, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats, logger)
	}
}
