package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust CORS as needed, e.g., check r.Header.Get("Origin")
	},
}

// NotificationHub stores connected users (userId -> *websocket.Conn)
type NotificationHub struct {
	clients map[string]*websocket.Conn
	mutex   sync.Mutex
}

var hub = &NotificationHub{
	clients: make(map[string]*websocket.Conn),
	mutex:   sync.Mutex{},
}

// HandleNotificationsWebSocket WebSocket handler for notifications
func HandleNotificationsWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade error", "error", err)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		conn.Close()
		return
	}

	// Register client
	hub.mutex.Lock()
	hub.clients[userID] = conn
	hub.mutex.Unlock()
	zap.S().Infow("user connected to /ws/notifications", "userId", userID)

	// Handle disconnect
	conn.SetCloseHandler(func(code int, text string) error {
		hub.mutex.Lock()
		delete(hub.clients, userID)
		hub.mutex.Unlock()
		zap.S().Infow("user disconnected from /ws/notifications", "userId", userID)
		return nil
	})

	// Keep connection alive
	for {
		if _, _, err := conn.NextReader(); err != nil {
			conn.Close()
			break
		}
	}
}

// sendNotificationToUser pushes a ride event to a single connected user.
// Users without an open notification socket simply miss the push; the ride
// endpoints remain the source of truth.
func sendNotificationToUser(userID, event string, notification interface{}) {
	hub.mutex.Lock()
	conn, exists := hub.clients[userID]
	hub.mutex.Unlock()

	if exists {
		err := conn.WriteJSON(map[string]interface{}{
			"event": event,
			"data":  notification,
		})
		if err != nil {
			zap.S().Errorw("error sending notification", "userId", userID, "error", err)
			hub.mutex.Lock()
			delete(hub.clients, userID)
			hub.mutex.Unlock()
			conn.Close()
		}
	}
}
