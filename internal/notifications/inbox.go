// Package notifications keeps each seller's sales inbox.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

// MaxPerSeller caps an inbox; the oldest entries fall off.
const MaxPerSeller = 100

type Inbox struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewInbox(store storage.Store, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{store: store, logger: logger, now: time.Now}
}

// RecordSale adds one notification per sold line to the owning seller's
// inbox. Lines without a seller are skipped.
func (i *Inbox) RecordSale(ctx context.Context, event models.OrderCreatedEvent) error {
	for _, item := range event.Items {
		if item.SellerID == "" {
			i.logger.Warn("⚠️ Sold line has no seller", zap.String("order_id", event.OrderID), zap.String("listing_id", item.ListingID))
			continue
		}
		n := models.Notification{
			ID:        uuid.NewString(),
			SellerID:  item.SellerID,
			OrderID:   event.OrderID,
			ListingID: item.ListingID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			BuyerID:   event.BuyerID,
			CreatedAt: i.now().UTC(),
		}
		if err := i.Append(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (i *Inbox) Append(ctx context.Context, n models.Notification) error {
	err := storage.UpdateJSON(ctx, i.store, storage.NotificationsKey(n.SellerID), func(list *[]models.Notification) error {
		// Redelivered events must not duplicate entries.
		for _, existing := range *list {
			if existing.OrderID == n.OrderID && existing.ListingID == n.ListingID {
				return nil
			}
		}
		next := append([]models.Notification{n}, *list...)
		if len(next) > MaxPerSeller {
			next = next[:MaxPerSeller]
		}
		*list = next
		return nil
	})
	if err != nil {
		return err
	}

	i.logger.Info("🔔 Seller notified",
		zap.String("seller_id", n.SellerID),
		zap.String("order_id", n.OrderID),
		zap.String("listing_id", n.ListingID),
	)
	return nil
}

// List returns the seller's notifications, newest first.
func (i *Inbox) List(ctx context.Context, sellerID string) ([]models.Notification, error) {
	list := []models.Notification{}
	if _, err := storage.LoadJSON(ctx, i.store, storage.NotificationsKey(sellerID), &list); err != nil {
		return nil, err
	}
	return list, nil
}
