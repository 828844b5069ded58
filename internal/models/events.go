package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is published when a checkout completes
type OrderCreatedEvent struct {
	OrderID   string           `json:"order_id"`
	BuyerID   string           `json:"buyer_id"`
	Total     decimal.Decimal  `json:"total"`
	Items     []OrderItemEvent `json:"items"`
	CreatedAt time.Time        `json:"created_at"`
}

type OrderItemEvent struct {
	ListingID string `json:"listing_id"`
	Title     string `json:"title"`
	SellerID  string `json:"seller_id"`
	Quantity  int    `json:"quantity"`
}

// Notification tells a seller that one of their listings was bought.
type Notification struct {
	ID        string    `json:"id"`
	SellerID  string    `json:"sellerId"`
	OrderID   string    `json:"orderId"`
	ListingID string    `json:"listingId"`
	Title     string    `json:"title"`
	Quantity  int       `json:"quantity"`
	BuyerID   string    `json:"buyerId"`
	CreatedAt time.Time `json:"createdAt"`
}
