package events

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const maxConnectionsPerUser = 10

// Hub manages WebSocket connections per user for live notification events.
type Hub struct {
	connections map[int64]map[*websocket.Conn]bool
	mutex       sync.Mutex
	logger      *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		connections: make(map[int64]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// AddConnection registers a WebSocket connection for a user.
func (h *Hub) AddConnection(userID int64, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[userID]; !exists {
		h.connections[userID] = make(map[*websocket.Conn]bool)
	}
	if len(h.connections[userID]) >= maxConnectionsPerUser {
		h.logger.Warnf("events: max connections reached for user %d", userID)
		return
	}
	h.connections[userID][conn] = true
	h.logger.Infof("events: added WebSocket connection for user %d (total: %d)", userID, len(h.connections[userID]))
}

// RemoveConnection removes a WebSocket connection for a user.
func (h *Hub) RemoveConnection(userID int64, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if conns, exists := h.connections[userID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, userID)
		}
		h.logger.Infof("events: removed WebSocket connection for user %d (remaining: %d)", userID, len(conns))
	}
}

// SendToUser delivers a message to all of a user's connections. Failed
// connections are dropped.
func (h *Hub) SendToUser(userID int64, message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	conns, exists := h.connections[userID]
	if !exists {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("events: failed to send WebSocket message to user %d: %v", userID, err)
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.connections, userID)
	}
}
