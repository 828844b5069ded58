package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/notifications"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

type ackRecorder struct {
	acks     int
	nacks    int
	requeued int
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.acks++
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacks++
	if requeue {
		a.requeued++
	}
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

type failingRecorder struct{}

func (failingRecorder) RecordSale(context.Context, models.OrderCreatedEvent) error {
	return errors.New("redis down")
}

func delivery(t *testing.T, ack amqp.Acknowledger, body interface{}) amqp.Delivery {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: raw}
}

func TestProcessOrderCreated(t *testing.T) {
	ctx := context.Background()
	inbox := notifications.NewInbox(storage.NewMemory(), nil)
	c := NewSalesConsumer(inbox, nil)
	ack := &ackRecorder{}

	messages := make(chan amqp.Delivery, 2)
	messages <- delivery(t, ack, models.OrderCreatedEvent{
		OrderID: "o1",
		BuyerID: "u1",
		Items:   []models.OrderItemEvent{{ListingID: "A", SellerID: "s1", Quantity: 1}},
	})
	messages <- delivery(t, ack, []byte("{broken"))
	close(messages)

	c.ProcessOrderCreated(ctx, messages)

	assert.Equal(t, 1, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.Equal(t, 0, ack.requeued, "bad messages are dropped")

	list, err := inbox.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProcessOrderCreated_StorageFailureRequeues(t *testing.T) {
	c := NewSalesConsumer(failingRecorder{}, nil)
	ack := &ackRecorder{}

	messages := make(chan amqp.Delivery, 1)
	messages <- delivery(t, ack, models.OrderCreatedEvent{OrderID: "o1"})
	close(messages)

	c.ProcessOrderCreated(context.Background(), messages)

	assert.Equal(t, 0, ack.acks)
	assert.Equal(t, 1, ack.requeued)
}

func TestProcessOrderCreated_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewSalesConsumer(failingRecorder{}, nil)
	done := make(chan struct{})
	go func() {
		c.ProcessOrderCreated(ctx, make(chan amqp.Delivery))
		close(done)
	}()
	<-done
}
