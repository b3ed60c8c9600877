package websocket

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
)

const writeWait = 5 * time.Second

type registration struct {
	conn    *websocket.Conn
	initial []byte
}

// HubService fans messages out to every connected viewer. All writes happen on
// the Run goroutine, so a connection never has two concurrent writers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan registration
	unregister chan *websocket.Conn
	count      chan int
	done       chan struct{}
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan registration),
		unregister: make(chan *websocket.Conn),
		count:      make(chan int),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes
// every connection.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			return

		case reg := <-h.register:
			h.clients[reg.conn] = true
			h.logger.Info("Client connected. Total: %d", len(h.clients))
			if reg.initial != nil {
				h.write(reg.conn, reg.initial)
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				h.logger.Info("Client disconnected. Total: %d", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				h.write(client, message)
			}

		case h.count <- len(h.clients):
		}
	}
}

func (h *HubService) write(client *websocket.Conn, message []byte) {
	client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
		h.logger.Error("Error sending message: %v", err)
		delete(h.clients, client)
		client.Close()
	}
}

// Register adds a viewer and sends it initial before any later broadcast.
func (h *HubService) Register(client *websocket.Conn, initial []byte) {
	select {
	case h.register <- registration{conn: client, initial: initial}:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every viewer. It is dropped once the hub stopped.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

func (h *HubService) GetClientCount() int {
	select {
	case n := <-h.count:
		return n
	case <-h.done:
		return 0
	}
}
