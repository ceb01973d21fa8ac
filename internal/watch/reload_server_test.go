package watch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestReloadServer_NewReloadServer(t *testing.T) {
	rs := NewReloadServer(zap.NewNop().Sugar())
	if rs == nil {
		t.Fatal("Expected reload server to be created")
	}

	if rs.connections == nil {
		t.Error("Expected connections map to be initialized")
	}

	if rs.broadcast == nil {
		t.Error("Expected broadcast channel to be initialized")
	}

	defer rs.Close()
}

func TestReloadServer_HandleWebSocket(t *testing.T) {
	rs := NewReloadServer(zap.NewNop().Sugar())
	defer rs.Close()

	server := httptest.NewServer(http.HandlerFunc(rs.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	// Give time for registration
	time.Sleep(50 * time.Millisecond)

	if rs.ConnectionCount() != 1 {
		t.Errorf("Expected 1 connection, got %d", rs.ConnectionCount())
	}
}

func TestReloadServer_NotifyBuilding(t *testing.T) {
	rs := NewReloadServer(zap.NewNop().Sugar())
	defer rs.Close()

	server := httptest.NewServer(http.HandlerFunc(rs.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	files := []string{"index.md", "posts/hello.md"}
	rs.NotifyBuilding("build-1", files)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var message ReloadMessage
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if message.Type != "building" {
		t.Errorf("Expected type building, got %s", message.Type)
	}
	if message.BuildID != "build-1" {
		t.Errorf("Expected build ID build-1, got %s", message.BuildID)
	}
	if len(message.Files) != 2 {
		t.Errorf("Expected 2 files, got %d", len(message.Files))
	}
}

func TestReloadServer_NotifyReload(t *testing.T) {
	rs := NewReloadServer(zap.NewNop().Sugar())
	defer rs.Close()

	server := httptest.NewServer(http.HandlerFunc(rs.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	rs.NotifyReload("build-2")

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var message ReloadMessage
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if message.Type != "reload" {
		t.Errorf("Expected type reload, got %s", message.Type)
	}
}

func TestReloadServer_Close(t *testing.T) {
	rs := NewReloadServer(zap.NewNop().Sugar())

	server := httptest.NewServer(http.HandlerFunc(rs.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	rs.Close()

	if rs.ConnectionCount() != 0 {
		t.Errorf("Expected 0 connections after close, got %d", rs.ConnectionCount())
	}
}
