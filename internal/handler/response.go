package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/t0m4t0ww/license-plate-recognition/internal/dto"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error, logger *logger.Logger) {
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()}, logger)
}

// statusFor maps session errors to HTTP statuses; anything else is fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, service.ErrNoInput):
		return http.StatusNoContent
	case errors.Is(err, service.ErrBusy), errors.Is(err, service.ErrControlsDisabled):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoPlayback):
		return http.StatusConflict
	default:
		return fallback
	}
}

// respond writes the current view, or the mapped error.
func respond(w http.ResponseWriter, manager *service.Manager, err error, fallback int, logger *logger.Logger) {
	if err == nil {
		writeJSON(w, http.StatusOK, manager.View(), logger)
		return
	}
	status := statusFor(err, fallback)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeError(w, status, err, logger)
}
