package main

import (
	"context"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/notifications"
)

// inlinePublisher delivers order.created straight to the seller inboxes when
// no broker is configured.
type inlinePublisher struct {
	inbox *notifications.Inbox
}

func (p inlinePublisher) PublishOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error {
	return p.inbox.RecordSale(ctx, event)
}
