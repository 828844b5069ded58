package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

// SeedListings is the starter catalog written into an empty store.
func SeedListings() []models.Listing {
	return []models.Listing{
		{
			ID:          "seed-1",
			Title:       "Stewart - Calculus: Early Transcendentals",
			Description: "Calculus textbook in excellent condition, with worked exercises. Ideal for engineering.",
			Price:       decimal.NewFromInt(45),
			Category:    "Books",
			Condition:   "Like new",
			Stock:       1,
			ImageURL:    "https://images.unsplash.com/photo-1544947950-fa07a98d237f?w=400",
			SellerID:    "u20201234",
			SellerName:  "Juan Perez",
			SellerEmail: "u20201234@utp.edu.pe",
			CreatedAt:   time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC),
			Status:      models.ListingAvailable,
			Version:     1,
		},
		{
			ID:          "seed-2",
			Title:       "Dell Inspiron 15 laptop - 8GB RAM",
			Description: "Laptop in good shape, fine for programming and study. Charger and backpack included.",
			Price:       decimal.NewFromInt(1200),
			Category:    "Technology",
			Condition:   "Used - Good condition",
			Stock:       1,
			ImageURL:    "https://images.unsplash.com/photo-1588872657578-7efd1f1555ed?w=400",
			SellerID:    "u20195678",
			SellerName:  "Maria Garcia",
			SellerEmail: "u20195678@utp.edu.pe",
			CreatedAt:   time.Date(2024, 11, 18, 0, 0, 0, 0, time.UTC),
			Status:      models.ListingAvailable,
			Version:     1,
		},
		{
			ID:          "seed-3",
			Title:       "TI-84 Plus graphing calculator",
			Description: "Graphing calculator in perfect condition. Great for calculus and statistics.",
			Price:       decimal.NewFromInt(95),
			Category:    "School Supplies",
			Condition:   "Almost new",
			Stock:       1,
			ImageURL:    "https://images.unsplash.com/photo-1611348586804-61bf6c080437?w=400",
			SellerID:    "u20189012",
			SellerName:  "Carlos Lopez",
			SellerEmail: "u20189012@utp.edu.pe",
			CreatedAt:   time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC),
			Status:      models.ListingAvailable,
			Version:     1,
		},
	}
}
