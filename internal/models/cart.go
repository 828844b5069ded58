package models

import "github.com/shopspring/decimal"

type CartLine struct {
	ListingID string          `json:"listingId"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ImageURL  string          `json:"imageUrl"`
	Quantity  int             `json:"quantity"`
	MaxStock  int             `json:"maxStock"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type CartTotals struct {
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type Cart struct {
	UserID string     `json:"userId"`
	Lines  []CartLine `json:"lines"`
	CartTotals
}

// ComputeTotals derives item count and price from lines.
func ComputeTotals(lines []CartLine) CartTotals {
	totals := CartTotals{TotalPrice: decimal.Zero}
	for _, line := range lines {
		totals.TotalItems += line.Quantity
		totals.TotalPrice = totals.TotalPrice.Add(line.Subtotal())
	}
	return totals
}

type AddCartItemRequest struct {
	ListingID string `json:"listingId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// Quote is an informational price breakdown for a cart with an optional coupon.
type Quote struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	CouponCode string          `json:"couponCode,omitempty"`
	Discount   decimal.Decimal `json:"discount"`
	Shipping   decimal.Decimal `json:"shipping"`
	Total      decimal.Decimal `json:"total"`
}
