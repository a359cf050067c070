package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"estoque/internal/models"
)

// Email content for low-stock alerts.
const (
	AlertSubject      = "Alerta de Estoque Baixo"
	alertBodyTemplate = "O produto %s está com estoque baixo (%d unidades restantes)."
)

const deliveryTimeout = 30 * time.Second

// EventPublisher forwards events to a message broker.
type EventPublisher interface {
	PublishEvent(event string, payload any) error
}

// Notifier fans a low-stock product out to real-time subscribers, email and
// the broker.
type Notifier struct {
	hub       *Hub
	mailer    Mailer
	publisher EventPublisher
	recipient string
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewNotifier creates a Notifier. mailer and publisher may be nil.
func NewNotifier(hub *Hub, mailer Mailer, publisher EventPublisher, recipient string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		hub:       hub,
		mailer:    mailer,
		publisher: publisher,
		recipient: recipient,
		logger:    logger,
	}
}

// AlertBody renders the email body for a product.
func AlertBody(product models.Product) string {
	return fmt.Sprintf(alertBodyTemplate, product.Name, product.Quantity)
}

// NotifyLowStock broadcasts the event to subscribers before returning, then
// delivers email and broker messages in the background. Failures are logged.
func (n *Notifier) NotifyLowStock(ctx context.Context, product models.Product) {
	if n.hub != nil {
		if err := n.hub.Broadcast(EventLowStock, product); err != nil {
			n.logger.Error("failed to broadcast low stock event", "error", err, "product", product.ID)
		}
	}

	if n.mailer == nil && n.publisher == nil {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		defer cancel()

		if n.mailer != nil {
			if err := n.mailer.Send(ctx, n.recipient, AlertSubject, AlertBody(product)); err != nil {
				n.logger.Error("failed to send low stock email", "error", err, "product", product.ID)
			} else {
				n.logger.Info("low stock email sent", "to", n.recipient, "product", product.ID)
			}
		}
		if n.publisher != nil {
			if err := n.publisher.PublishEvent(EventLowStock, product); err != nil {
				n.logger.Error("failed to publish low stock event", "error", err, "product", product.ID)
			}
		}
	}()
}

// Wait blocks until all background deliveries have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
