// internal/notifications/hub.go
package notifications

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust for production
	},
}

// PushMessage is the envelope written to connected clients.
type PushMessage struct {
	Type      string      `json:"type"`
	FamilyID  int64       `json:"family_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client is one websocket connection scoped to a family. All of a
// family's devices share the same feed.
type Client struct {
	conn     *websocket.Conn
	familyID int64
	send     chan PushMessage
}

// Hub tracks connected clients and fans push messages out per family.
type Hub struct {
	mu      sync.Mutex
	clients map[int64][]*Client
	logger  *zap.Logger
}

// NewHub creates a new push hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[int64][]*Client),
		logger:  logger,
	}
}

// ServeWS upgrades the request and registers the connection under the
// given family. Blocks until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, familyID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:     conn,
		familyID: familyID,
		send:     make(chan PushMessage, 16),
	}

	h.mu.Lock()
	h.clients[familyID] = append(h.clients[familyID], client)
	h.mu.Unlock()

	h.logger.Info("WebSocket client connected", zap.Int64("family_id", familyID))

	go client.writeMessages(h.logger)
	h.readUntilClosed(client)
}

// Broadcast pushes a message to every connection of a family. Slow
// clients are skipped rather than blocking the caller.
func (h *Hub) Broadcast(familyID int64, msgType string, payload interface{}) {
	msg := PushMessage{
		Type:      msgType,
		FamilyID:  familyID,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients[familyID] {
		select {
		case client.send <- msg:
		default:
			h.logger.Warn("Dropping push message for slow client",
				zap.Int64("family_id", familyID),
				zap.String("type", msgType),
			)
		}
	}
}

// ConnectionCount returns the number of open connections for a family.
func (h *Hub) ConnectionCount(familyID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[familyID])
}

// Close shuts down every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Closing the connection unblocks each client's read loop, which
	// owns the rest of the teardown.
	for _, clients := range h.clients {
		for _, client := range clients {
			client.conn.Close()
		}
	}
}

// readUntilClosed drains client reads until the connection drops, then
// unregisters the client. The feed is push-only; inbound frames are
// discarded.
func (h *Hub) readUntilClosed(client *Client) {
	defer func() {
		h.mu.Lock()
		remaining := h.clients[client.familyID][:0]
		for _, c := range h.clients[client.familyID] {
			if c != client {
				remaining = append(remaining, c)
			}
		}
		if len(remaining) == 0 {
			delete(h.clients, client.familyID)
		} else {
			h.clients[client.familyID] = remaining
		}
		h.mu.Unlock()

		close(client.send)
		client.conn.Close()

		h.logger.Info("WebSocket client disconnected", zap.Int64("family_id", client.familyID))
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writeMessages(logger *zap.Logger) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			logger.Warn("Failed to write push message",
				zap.Error(err),
				zap.Int64("family_id", c.familyID),
			)
			return
		}
	}
}
