// Package ws pushes animated vehicle frames and notifications to WebSocket
// clients. The hub is a frame observer on the animation engine; rendering
// itself stays in the client.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/psford/t-tracker/internal/animation"
	"github.com/psford/t-tracker/internal/notify"
)

const writeTimeout = 5 * time.Second

type frameMessage struct {
	Type     string                   `json:"type"`
	Vehicles []animation.VehicleState `json:"vehicles"`
}

type notificationMessage struct {
	Type         string              `json:"type"`
	Notification notify.Notification `json:"notification"`
}

// Hub tracks connected WebSocket clients and broadcasts to all of them,
// dropping connections whose writes fail.
type Hub struct {
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	minInterval time.Duration

	mu        sync.Mutex
	clients   map[*websocket.Conn]struct{}
	lastFrame time.Time
}

// NewHub creates a Hub. minInterval throttles frame broadcasts: the render
// clock ticks at 60 Hz but clients animate locally, so a few frames per
// second is plenty on the wire.
func NewHub(minInterval time.Duration, logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With(slog.String("component", "ws_hub")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		minInterval: minInterval,
		clients:     make(map[*websocket.Conn]struct{}),
	}
}

// HandleWebSocket upgrades the request and registers the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.readPump(conn)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastFrame sends the current vehicle states to every client, rate
// limited to the hub's minimum interval. It is registered as a frame
// observer, so it runs on the render tick and must not block.
func (h *Hub) BroadcastFrame(vehicles map[string]*animation.VehicleState) {
	h.mu.Lock()
	if len(h.clients) == 0 || time.Since(h.lastFrame) < h.minInterval {
		h.mu.Unlock()
		return
	}
	h.lastFrame = time.Now()
	h.mu.Unlock()

	msg := frameMessage{Type: "vehicles", Vehicles: make([]animation.VehicleState, 0, len(vehicles))}
	for _, st := range vehicles {
		msg.Vehicles = append(msg.Vehicles, *st)
	}
	h.broadcast(msg)
}

// Notifier adapts the hub into a notification delivery mechanism:
// permission is granted whenever at least one client is connected.
func (h *Hub) Notifier() notify.Notifier {
	return (*hubNotifier)(h)
}

type hubNotifier Hub

func (n *hubNotifier) Permission() notify.Permission {
	if (*Hub)(n).ClientCount() > 0 {
		return notify.PermissionGranted
	}
	return notify.PermissionDefault
}

func (n *hubNotifier) Notify(note notify.Notification) error {
	(*Hub)(n).broadcast(notificationMessage{Type: "notification", Notification: note})
	return nil
}

func (h *Hub) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("ws marshal failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

// readPump drains client messages so control frames are processed and
// removes the client once the connection dies.
func (h *Hub) readPump(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
