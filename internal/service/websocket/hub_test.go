package websocket

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/t0m4t0ww/license-plate-recognition/internal/logger"
)

func startHub(t *testing.T) (*HubService, *httptest.Server) {
	t.Helper()
	hub := NewHubService(logger.NewConsoleLogger(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn, []byte(`{"type":"hello"}`))
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	return string(data)
}

func waitForClients(t *testing.T, hub *HubService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", n, hub.GetClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_InitialThenBroadcast(t *testing.T) {
	hub, server := startHub(t)
	a := dial(t, server)
	b := dial(t, server)

	if got := readText(t, a); got != `{"type":"hello"}` {
		t.Errorf("Unexpected initial message %q", got)
	}
	readText(t, b)
	waitForClients(t, hub, 2)

	hub.Broadcast([]byte("update"))
	for _, conn := range []*websocket.Conn{a, b} {
		if got := readText(t, conn); got != "update" {
			t.Errorf("Expected broadcast, got %q", got)
		}
	}
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server)
	readText(t, conn)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_BroadcastAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHubService(logger.NewConsoleLogger(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast([]byte("x"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked after the hub stopped")
	}
}
