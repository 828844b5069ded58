package cart

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

var (
	// Coupons maps a coupon code to its discount rate.
	Coupons = map[string]decimal.Decimal{
		"UTP10":     decimal.RequireFromString("0.10"),
		"STUDENT15": decimal.RequireFromString("0.15"),
		"WELCOME20": decimal.RequireFromString("0.20"),
	}

	ShippingFee           = decimal.RequireFromString("5.99")
	FreeShippingThreshold = decimal.NewFromInt(50)
)

// PriceQuote computes the breakdown for lines. An empty coupon means none.
func PriceQuote(lines []models.CartLine, coupon string) (models.Quote, error) {
	code := strings.ToUpper(strings.TrimSpace(coupon))
	rate := decimal.Zero
	if code != "" {
		r, ok := Coupons[code]
		if !ok {
			return models.Quote{}, apperr.Validation("coupon %q is not valid", coupon)
		}
		rate = r
	}

	subtotal := models.ComputeTotals(lines).TotalPrice
	discount := subtotal.Mul(rate).Round(2)
	discounted := subtotal.Sub(discount)

	shipping := ShippingFee
	if len(lines) == 0 || discounted.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return models.Quote{
		Subtotal:   subtotal,
		CouponCode: code,
		Discount:   discount,
		Shipping:   shipping,
		Total:      discounted.Add(shipping),
	}, nil
}

// Quote prices the user's current cart. It never changes what checkout
// charges.
func (a *Aggregator) Quote(ctx context.Context, userID, coupon string) (models.Quote, error) {
	lines, err := a.Lines(ctx, userID)
	if err != nil {
		return models.Quote{}, err
	}
	return PriceQuote(lines, coupon)
}
