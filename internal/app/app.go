package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/route"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/detector"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/storage"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/video"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config      *config.Config
	logger      *logger.Logger
	detector    *detector.Client
	uploadStore *storage.UploadStore
	hubService  *websocket.HubService
	manager     *service.Manager
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.NewLogger(cfg)

	client := detector.NewClient(cfg, log)
	uploads, err := storage.NewUploadStore(cfg, log)
	if err != nil {
		return nil, err
	}
	hub := websocket.NewHubService(log)

	openPlayer := func(path string) (service.Player, error) {
		return video.Open(path, log)
	}
	mng := service.NewManager(client, uploads, hub, openPlayer, cfg, log)

	return &App{
		config:      cfg,
		logger:      log,
		detector:    client,
		uploadStore: uploads,
		hubService:  hub,
		manager:     mng,
	}, nil
}

// Run serves until ctx is cancelled, then shuts the server and the
// background services down.
func (a *App) Run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start background services
	go a.uploadStore.Run(bgCtx)
	go a.hubService.Run(bgCtx)

	// Setup routes
	router := route.SetupRoutes(a.manager, a.hubService, a.detector.WebcamURL(), a.config, a.logger)

	addr := fmt.Sprintf(":%d", a.config.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end when the background context is cancelled.
		BaseContext: func(net.Listener) context.Context { return bgCtx },
	}

	a.logger.Info("🚀 License Plate Recognition")
	a.logger.Info("📍 URL: http://localhost%s", addr)
	a.logger.Info("🤖 Detector: %s", a.detector.BaseURL())
	a.logger.Info("📁 Uploads: %s", a.config.UploadDirectory)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down server...")
	case err := <-serverErr:
		a.manager.Stop()
		return err
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	cancel()
	err := server.Shutdown(shutdownCtx)
	a.manager.Stop()
	if err != nil {
		a.logger.Error("Server shutdown failed: %v", err)
		return err
	}
	a.logger.Info("Server stopped")
	return nil
}
