package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/model"
)

var (
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
	// ErrNotFound is returned for unknown media IDs.
	ErrNotFound = errors.New("media not found")
)

// UploadStore keeps the files the user selected on disk until they are
// replaced, reset, or go stale.
type UploadStore struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	media    map[string]model.Media
	mu       sync.Mutex
	logger   *logger.Logger
}

// NewUploadStore creates the upload directory if needed.
func NewUploadStore(cfg *config.Config, logger *logger.Logger) (*UploadStore, error) {
	if err := os.MkdirAll(cfg.UploadDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadStore{
		dir:      cfg.UploadDirectory,
		maxAge:   cfg.UploadMaxAge(),
		interval: time.Duration(cfg.UploadSweepInterval) * time.Second,
		media:    make(map[string]model.Media),
		logger:   logger,
	}, nil
}

// Run periodically removes uploads older than the configured max age.
func (s *UploadStore) Run(ctx context.Context) {
	if s.interval <= 0 || s.maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Save copies at most limit bytes of r into a new file.
func (s *UploadStore) Save(name, contentType string, r io.Reader, limit int64) (model.Media, error) {
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.dir, id+ext)

	file, err := os.Create(path)
	if err != nil {
		return model.Media{}, fmt.Errorf("failed to create upload: %w", err)
	}
	written, err := io.Copy(file, io.LimitReader(r, limit+1))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > limit {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return model.Media{}, err
		}
		return model.Media{}, fmt.Errorf("failed to write upload: %w", err)
	}

	media := model.Media{
		ID:          id,
		Name:        filepath.Base(name),
		Path:        path,
		ContentType: contentType,
		Size:        written,
		StoredAt:    time.Now(),
	}

	s.mu.Lock()
	s.media[id] = media
	s.mu.Unlock()

	s.logger.Info("Stored upload %s (%s, %d bytes)", id, media.Name, written)
	return media, nil
}

// Get looks up a stored upload.
func (s *UploadStore) Get(id string) (model.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	media, ok := s.media[id]
	if !ok {
		return model.Media{}, ErrNotFound
	}
	return media, nil
}

// Discard removes an upload. Unknown IDs are ignored.
func (s *UploadStore) Discard(id string) {
	s.mu.Lock()
	media, ok := s.media[id]
	delete(s.media, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := os.Remove(media.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Error removing upload %s: %v", media.Path, err)
	}
}

// Sweep removes uploads stored before now minus the max age and returns how many were removed.
func (s *UploadStore) Sweep(now time.Time) int {
	cutoff := now.Add(-s.maxAge)

	s.mu.Lock()
	var stale []string
	for id, media := range s.media {
		if media.StoredAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		s.Discard(id)
	}
	if len(stale) > 0 {
		s.logger.Info("Removed %d stale upload(s)", len(stale))
	}
	return len(stale)
}

// Len returns the number of stored uploads.
func (s *UploadStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.media)
}
