// Package board pushes order events to admins watching the live order board.
package board

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/steamybites/metrics"
	"github.com/yeremiapane/steamybites/models"
	"github.com/yeremiapane/steamybites/utils"
)

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderAcknowledged  = "order_acknowledged"
)

const writeWait = 5 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub keeps the connected board clients, keyed by connection, valued by admin id.
type Hub struct {
	clients map[*websocket.Conn]uint
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]uint)}
}

// Register adds a connection for the given admin.
func (h *Hub) Register(conn *websocket.Conn, userID uint) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = userID
	metrics.BoardClients.Set(float64(len(h.clients)))
}

// Unregister removes and closes a connection. It is safe to call twice.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.remove(conn)
}

func (h *Hub) remove(conn *websocket.Conn) {
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	conn.Close()
	metrics.BoardClients.Set(float64(len(h.clients)))
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. Clients that fail to receive it are dropped.
func (h *Hub) Broadcast(msg Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, userID := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{"user_id": userID, "event": msg.Event, "error": err}).Warn("board client dropped")
			h.remove(conn)
		}
	}
}

func (h *Hub) OrderCreated(order models.Order) {
	h.Broadcast(Message{Event: EventOrderCreated, Data: order})
}

func (h *Hub) OrderStatusChanged(order models.Order) {
	h.Broadcast(Message{Event: EventOrderStatusChanged, Data: order})
}

func (h *Hub) OrderAcknowledged(order models.Order) {
	h.Broadcast(Message{Event: EventOrderAcknowledged, Data: order})
}
