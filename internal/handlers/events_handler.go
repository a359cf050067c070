package handlers

import (
	"log/slog"
	"time"

	"estoque/internal/notify"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const writeWait = 10 * time.Second

// EventsHandler streams notification events to websocket clients.
type EventsHandler struct {
	hub *notify.Hub
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(hub *notify.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// RegisterRoutes registers GET /ws.
func (h *EventsHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.RequireUpgrade, websocket.New(h.HandleConn))
}

// RequireUpgrade answers 426 to plain HTTP requests.
func (h *EventsHandler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"message": "websocket upgrade required",
	})
}

// eventConn is the part of a websocket connection the event stream uses.
type eventConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// HandleConn subscribes the connection to the hub until either side closes.
func (h *EventsHandler) HandleConn(conn *websocket.Conn) {
	h.stream(conn)
}

func (h *EventsHandler) stream(conn eventConn) {
	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Debug("websocket write deadline failed", "subscriber", sub.ID, "error", err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("websocket write failed", "subscriber", sub.ID, "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}
