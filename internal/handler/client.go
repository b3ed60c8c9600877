package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/t0m4t0ww/license-plate-recognition/internal/config"
	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
	"github.com/t0m4t0ww/license-plate-recognition/internal/service"
	hub "github.com/t0m4t0ww/license-plate-recognition/internal/service/websocket"
)

// NewUpgrader upgrades HTTP connections to WebSocket. With the "*" origin
// every origin is allowed.
func NewUpgrader(cfg *config.Config) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if cfg.AllowedOrigin == "*" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == cfg.AllowedOrigin
		},
	}
}

// ViewWebsocketHandler handles viewer connections over WebSocket. The viewer
// first receives the current state, then every state change, notification
// and webcam canvas.
func ViewWebsocketHandler(manager *service.Manager, hubService *hub.HubService, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	upgrader := NewUpgrader(cfg)
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hubService.Register(connection, manager.ViewMessage())
		defer hubService.Unregister(connection)

		logger.Info("Viewer connected")

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Error("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
