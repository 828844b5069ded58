package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

const OrderCreatedQueue = "order.created"

// Broker is the slice of messaging.RabbitMQ the publisher uses.
type Broker interface {
	DeclareQueue(name string) error
	Publish(ctx context.Context, queue string, message []byte) error
}

type OrderPublisher struct {
	mq Broker
}

func NewOrderPublisher(mq Broker) (*OrderPublisher, error) {
	// Declare the queue
	if err := mq.DeclareQueue(OrderCreatedQueue); err != nil {
		return nil, err
	}

	return &OrderPublisher{mq: mq}, nil
}

// PublishOrderCreated publishes an order.created event
func (p *OrderPublisher) PublishOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.mq.Publish(ctx, OrderCreatedQueue, data)
}
