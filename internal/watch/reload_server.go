package watch

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReloadServer manages WebSocket connections for live reload. Connected
// browsers receive build lifecycle messages and refresh themselves when a
// rebuild lands.
type ReloadServer struct {
	connections map[*websocket.Conn]bool
	broadcast   chan *ReloadMessage
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	log         *zap.SugaredLogger
}

// ReloadMessage is a build lifecycle message sent to browsers.
type ReloadMessage struct {
	Type      string   `json:"type"`    // "building", "reload", "error", "success"
	BuildID   string   `json:"buildId"` // identifies the build pass
	Timestamp int64    `json:"timestamp"`
	Files     []string `json:"files,omitempty"`
	Duration  float64  `json:"duration,omitempty"` // milliseconds
	Error     string   `json:"error,omitempty"`
}

// NewReloadServer creates a reload server and starts its broadcast loop.
func NewReloadServer(log *zap.SugaredLogger) *ReloadServer {
	rs := &ReloadServer{
		connections: make(map[*websocket.Conn]bool),
		broadcast:   make(chan *ReloadMessage, 256),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
		log:         log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Allow no origin (same-origin)
					return true
				}
				// Allow localhost only for security
				return strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "https://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1") ||
					strings.HasPrefix(origin, "https://127.0.0.1")
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	go rs.run()

	return rs
}

// run handles the WebSocket connection lifecycle.
func (rs *ReloadServer) run() {
	for {
		select {
		case <-rs.done:
			rs.log.Debug("shutting down reload server")
			return

		case conn := <-rs.register:
			rs.mutex.Lock()
			rs.connections[conn] = true
			total := len(rs.connections)
			rs.mutex.Unlock()
			rs.log.Debugw("reload client connected", "total", total)

		case conn := <-rs.unregister:
			rs.mutex.Lock()
			if _, ok := rs.connections[conn]; ok {
				delete(rs.connections, conn)
				conn.Close()
			}
			total := len(rs.connections)
			rs.mutex.Unlock()
			rs.log.Debugw("reload client disconnected", "total", total)

		case message := <-rs.broadcast:
			rs.sendToAll(message)
		}
	}
}

// sendToAll sends a message to all connected clients.
func (rs *ReloadServer) sendToAll(message *ReloadMessage) {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		rs.log.Warnw("failed to marshal reload message", "error", err)
		return
	}

	// Collect failed connections while holding read lock
	rs.mutex.RLock()
	var failedConns []*websocket.Conn
	for conn := range rs.connections {
		if err := conn.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
			rs.log.Debugw("failed to send reload message", "error", err)
			failedConns = append(failedConns, conn)
		}
	}
	rs.mutex.RUnlock()

	// Remove failed connections with write lock
	if len(failedConns) > 0 {
		rs.mutex.Lock()
		for _, conn := range failedConns {
			if _, ok := rs.connections[conn]; ok {
				conn.Close()
				delete(rs.connections, conn)
			}
		}
		rs.mutex.Unlock()
	}
}

// HandleWebSocket upgrades HTTP connections to WebSocket.
func (rs *ReloadServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := rs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rs.log.Warnw("failed to upgrade connection", "error", err)
		return
	}

	rs.register <- conn

	// Reads are mostly keepalive.
	go rs.readMessages(conn)
}

// readMessages reads messages from the client (for keepalive).
func (rs *ReloadServer) readMessages(conn *websocket.Conn) {
	defer func() {
		rs.unregister <- conn
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				rs.log.Debugw("websocket error", "error", err)
			}
			break
		}
	}
}

// NotifyBuilding announces the start of a build pass.
func (rs *ReloadServer) NotifyBuilding(buildID string, files []string) {
	rs.broadcast <- &ReloadMessage{
		Type:      "building",
		BuildID:   buildID,
		Timestamp: time.Now().Unix(),
		Files:     files,
	}
}

// NotifySuccess announces a completed build pass.
func (rs *ReloadServer) NotifySuccess(buildID string, duration time.Duration) {
	rs.broadcast <- &ReloadMessage{
		Type:      "success",
		BuildID:   buildID,
		Timestamp: time.Now().Unix(),
		Duration:  float64(duration.Milliseconds()),
	}
}

// NotifyReload tells connected browsers to refresh.
func (rs *ReloadServer) NotifyReload(buildID string) {
	rs.broadcast <- &ReloadMessage{
		Type:      "reload",
		BuildID:   buildID,
		Timestamp: time.Now().Unix(),
	}
}

// NotifyError reports a failed build pass.
func (rs *ReloadServer) NotifyError(buildID string, err error) {
	rs.broadcast <- &ReloadMessage{
		Type:      "error",
		BuildID:   buildID,
		Timestamp: time.Now().Unix(),
		Error:     err.Error(),
	}
}

// ConnectionCount returns the number of active connections.
func (rs *ReloadServer) ConnectionCount() int {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()
	return len(rs.connections)
}

// Close closes all connections and stops the server.
func (rs *ReloadServer) Close() {
	close(rs.done)

	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	for conn := range rs.connections {
		conn.Close()
	}
	rs.connections = make(map[*websocket.Conn]bool)
}
