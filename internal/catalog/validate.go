package catalog

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

const (
	MinTitleLength       = 5
	MinDescriptionLength = 10

	DefaultCondition = "Used - Good condition"
	DefaultImageURL  = "https://via.placeholder.com/400x300?text=No+Image"
)

var (
	MaxPrice = decimal.NewFromInt(10000)

	htmlTag = regexp.MustCompile(`<[^>]*>`)
)

// sanitize strips HTML tags and surrounding whitespace.
func sanitize(s string) string {
	return strings.TrimSpace(htmlTag.ReplaceAllString(s, ""))
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(title) < MinTitleLength {
		return apperr.Validation("title must be at least %d characters", MinTitleLength)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		return apperr.Validation("description must be at least %d characters", MinDescriptionLength)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() || price.GreaterThan(MaxPrice) {
		return apperr.Validation("price must be greater than 0 and at most %s", MaxPrice.String())
	}
	return nil
}

func validateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return apperr.Validation("category is required")
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return apperr.Validation("stock cannot be negative")
	}
	return nil
}

// normalizeCreate sanitizes the request in place and validates it.
func normalizeCreate(req *models.CreateListingRequest) error {
	req.Title = sanitize(req.Title)
	req.Description = sanitize(req.Description)
	req.Category = strings.TrimSpace(req.Category)

	if err := validateTitle(req.Title); err != nil {
		return err
	}
	if err := validateDescription(req.Description); err != nil {
		return err
	}
	if err := validatePrice(req.Price); err != nil {
		return err
	}
	if err := validateCategory(req.Category); err != nil {
		return err
	}
	if err := validateStock(req.Stock); err != nil {
		return err
	}
	if req.SellerID == "" && req.SellerEmail == "" {
		return apperr.Validation("seller identity is required")
	}
	return nil
}

// normalizeUpdate validates the fields present in a partial update.
func normalizeUpdate(req *models.UpdateListingRequest) error {
	if req.Title != nil {
		t := sanitize(*req.Title)
		if err := validateTitle(t); err != nil {
			return err
		}
		req.Title = &t
	}
	if req.Description != nil {
		d := sanitize(*req.Description)
		if err := validateDescription(d); err != nil {
			return err
		}
		req.Description = &d
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return err
		}
	}
	if req.Category != nil {
		if err := validateCategory(*req.Category); err != nil {
			return err
		}
	}
	if req.Stock != nil {
		if err := validateStock(*req.Stock); err != nil {
			return err
		}
	}
	return nil
}
