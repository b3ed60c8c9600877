package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/model"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/storage"
)

const (
	ImageField = "image"
	VideoField = "video"

	// multipartOverhead leaves room for boundaries and headers around the file.
	multipartOverhead = 1 << 20
	maxFormMemory     = 32 << 20
)

// UploadImageHandler stages the "image" file and selects it.
func UploadImageHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		media, ok := stageUpload(w, r, manager, cfg, ImageField, logger)
		if !ok {
			return
		}
		respond(w, manager, manager.SelectImage(media), http.StatusInternalServerError, logger)
	}
}

// UploadVideoHandler stages the "video" file and starts playing it.
func UploadVideoHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		media, ok := stageUpload(w, r, manager, cfg, VideoField, logger)
		if !ok {
			return
		}
		err := manager.SelectVideo(media)
		if err != nil {
			logger.Warning("Video %s rejected: %v", media.Name, err)
		}
		respond(w, manager, err, http.StatusUnprocessableEntity, logger)
	}
}

func stageUpload(w http.ResponseWriter, r *http.Request, manager *service.Manager, cfg *config.Config, field string, logger *logger.Logger) (model.Media, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, storage.ErrTooLarge, logger)
		} else {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err), logger)
		}
		return model.Media{}, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing %q file", field), logger)
		return model.Media{}, false
	}
	defer file.Close()

	media, err := manager.Uploads().Save(header.Filename, header.Header.Get("Content-Type"), file, cfg.MaxUploadBytes())
	if errors.Is(err, storage.ErrTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err, logger)
		return model.Media{}, false
	}
	if err != nil {
		logger.Error("Error storing upload: %v", err)
		writeError(w, http.StatusInternalServerError, err, logger)
		return model.Media{}, false
	}
	return media, true
}
