package consumer

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

// SaleRecorder is satisfied by *notifications.Inbox.
type SaleRecorder interface {
	RecordSale(ctx context.Context, event models.OrderCreatedEvent) error
}

// SalesConsumer turns order.created events into seller notifications.
type SalesConsumer struct {
	inbox  SaleRecorder
	logger *zap.Logger
}

func NewSalesConsumer(inbox SaleRecorder, logger *zap.Logger) *SalesConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesConsumer{inbox: inbox, logger: logger}
}

// ProcessOrderCreated handles order.created events until messages is closed
// or ctx is done.
func (c *SalesConsumer) ProcessOrderCreated(ctx context.Context, messages <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *SalesConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	c.logger.Debug("📥 Received order.created event")

	var event models.OrderCreatedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("❌ Failed to parse event", zap.Error(err))
		msg.Nack(false, false) // Don't requeue bad messages
		return
	}

	if err := c.inbox.RecordSale(ctx, event); err != nil {
		c.logger.Warn("⚠️ Failed to notify sellers, requeued", zap.String("order_id", event.OrderID), zap.Error(err))
		msg.Nack(false, true) // Requeue for retry
		return
	}

	msg.Ack(false)
	c.logger.Info("✅ Order processed", zap.String("order_id", event.OrderID), zap.Int("items", len(event.Items)))
}
