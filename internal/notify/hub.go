package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// EventLowStock is the event name broadcast when a product is created with
// low stock.
const EventLowStock = "estoqueBaixo"

const subscriberBuffer = 16

// Event is the envelope sent to subscribers and published to the broker.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Subscriber is one connected real-time client.
type Subscriber struct {
	ID   string
	send chan []byte
}

// Messages returns the channel of encoded events for this subscriber. It is
// closed on Unsubscribe.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// Hub is the registry of connected real-time subscribers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*Subscriber
	logger      *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:   uuid.New().String(),
		send: make(chan []byte, subscriberBuffer),
	}
	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()
	h.logger.Info("subscriber connected", "subscriber", sub.ID)
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Calling it twice
// is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub.ID]; !ok {
		return
	}
	delete(h.subscribers, sub.ID)
	close(sub.send)
	h.logger.Info("subscriber disconnected", "subscriber", sub.ID)
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Broadcast sends the event to every subscriber without blocking. A
// subscriber whose buffer is full misses the event.
func (h *Hub) Broadcast(event string, payload any) error {
	msg, err := json.Marshal(Event{Name: event, Data: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subscribers {
		select {
		case sub.send <- msg:
		default:
			h.logger.Warn("subscriber too slow, event dropped", "subscriber", id, "event", event)
		}
	}
	return nil
}
