package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const OrderStatusCreated = "created"

type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Lines     []OrderLine     `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

type OrderLine struct {
	ListingID string          `json:"listingId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	SellerID  string          `json:"sellerId,omitempty"`
}
