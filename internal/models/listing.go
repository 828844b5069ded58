package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingSold      ListingStatus = "sold"
)

type Listing struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Condition   string          `json:"condition"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl"`
	SellerID    string          `json:"sellerId"`
	SellerName  string          `json:"sellerName,omitempty"`
	SellerEmail string          `json:"sellerEmail,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
	Status      ListingStatus   `json:"status"`
	Version     int64           `json:"version"`
}

// UnmarshalJSON accepts records written with the older name/image field names.
// A record without a stock field holds a single unit.
func (l *Listing) UnmarshalJSON(data []byte) error {
	type alias Listing
	aux := struct {
		*alias
		Name  string `json:"name"`
		Image string `json:"image"`
		Stock *int   `json:"stock"`
	}{alias: (*alias)(l)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Stock != nil {
		l.Stock = *aux.Stock
	} else {
		l.Stock = 1
	}
	if l.Title == "" {
		l.Title = aux.Name
	}
	if l.ImageURL == "" {
		l.ImageURL = aux.Image
	}
	if l.Status == "" {
		l.Status = ListingAvailable
	}
	return nil
}

// Available reports whether the listing shows up in browse results.
func (l Listing) Available() bool {
	return l.Stock > 0
}

type CreateListingRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Condition   string          `json:"condition"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl"`

	// Filled from the authenticated user, never from the request body.
	SellerID    string `json:"-"`
	SellerName  string `json:"-"`
	SellerEmail string `json:"-"`
}

// UpdateListingRequest is a partial update; nil fields are left untouched.
type UpdateListingRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Condition   *string          `json:"condition,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	ImageURL    *string          `json:"imageUrl,omitempty"`

	// ExpectedVersion rejects the update when the stored listing moved on.
	ExpectedVersion *int64 `json:"-"`
}

// StockChange is one line of a batch stock mutation.
type StockChange struct {
	ListingID string
	Amount    int
}
