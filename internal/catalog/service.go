// Package catalog owns the listing snapshot: listing CRUD, browsing and the
// stock mutations performed at checkout.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

type Service struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store storage.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) all(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	if _, err := storage.LoadJSON(ctx, s.store, storage.CatalogKey(), &listings); err != nil {
		s.logger.Error("❌ Failed to read catalog", zap.Error(err))
		return nil, err
	}
	return listings, nil
}

func (s *Service) mutate(ctx context.Context, fn func(listings []models.Listing) ([]models.Listing, error)) error {
	return storage.UpdateJSON(ctx, s.store, storage.CatalogKey(), func(listings *[]models.Listing) error {
		next, err := fn(*listings)
		if err != nil {
			return err
		}
		*listings = next
		return nil
	})
}

func indexOf(listings []models.Listing, id string) int {
	for i := range listings {
		if listings[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id string) error {
	return apperr.NotFound("listing %s not found", id)
}

// List returns the listings that still have stock, newest first.
func (s *Service) List(ctx context.Context) ([]models.Listing, error) {
	listings, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Available() {
			available = append(available, l)
		}
	}
	return available, nil
}

// GetByID returns a listing whether or not it is sold out.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	listings, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	i := indexOf(listings, id)
	if i < 0 {
		return nil, notFound(id)
	}
	l := listings[i]
	return &l, nil
}

// BySeller returns every listing of a seller, including sold ones.
func (s *Service) BySeller(ctx context.Context, sellerID string) ([]models.Listing, error) {
	listings, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Listing
	for _, l := range listings {
		if l.SellerID == sellerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, req models.CreateListingRequest) (*models.Listing, error) {
	if err := normalizeCreate(&req); err != nil {
		return nil, err
	}

	listing := models.Listing{
		ID:          s.newID(),
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Condition:   req.Condition,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		SellerID:    req.SellerID,
		SellerName:  req.SellerName,
		SellerEmail: req.SellerEmail,
		CreatedAt:   s.now().UTC(),
		Status:      models.ListingAvailable,
		Version:     1,
	}
	if listing.Condition == "" {
		listing.Condition = DefaultCondition
	}
	if listing.Stock == 0 {
		listing.Stock = 1
	}
	if listing.ImageURL == "" {
		listing.ImageURL = DefaultImageURL
	}
	if listing.SellerID == "" {
		listing.SellerID = strings.SplitN(listing.SellerEmail, "@", 2)[0]
	}

	err := s.mutate(ctx, func(listings []models.Listing) ([]models.Listing, error) {
		return append([]models.Listing{listing}, listings...), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("✅ Listing created", zap.String("listing_id", listing.ID), zap.String("seller_id", listing.SellerID))
	return &listing, nil
}

func (s *Service) Update(ctx context.Context, id string, req models.UpdateListingRequest) (*models.Listing, error) {
	if err := normalizeUpdate(&req); err != nil {
		return nil, err
	}

	var updated models.Listing
	err := s.mutate(ctx, func(listings []models.Listing) ([]models.Listing, error) {
		i := indexOf(listings, id)
		if i < 0 {
			return nil, notFound(id)
		}

		l := listings[i]
		if req.ExpectedVersion != nil && *req.ExpectedVersion != l.Version {
			return nil, apperr.Newf(apperr.KindConflict, "listing %s was modified (version %d, expected %d)", id, l.Version, *req.ExpectedVersion)
		}

		if req.Title != nil {
			l.Title = *req.Title
		}
		if req.Description != nil {
			l.Description = *req.Description
		}
		if req.Price != nil {
			l.Price = *req.Price
		}
		if req.Category != nil {
			l.Category = strings.TrimSpace(*req.Category)
		}
		if req.Condition != nil {
			l.Condition = *req.Condition
		}
		if req.ImageURL != nil {
			l.ImageURL = *req.ImageURL
		}
		if req.Stock != nil {
			l.Stock = *req.Stock
			if l.Stock > 0 {
				l.Status = models.ListingAvailable
			} else {
				l.Status = models.ListingSold
			}
		}

		now := s.now().UTC()
		l.UpdatedAt = &now
		l.Version++

		listings[i] = l
		updated = l
		return listings, nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(listings []models.Listing) ([]models.Listing, error) {
		i := indexOf(listings, id)
		if i < 0 {
			return nil, notFound(id)
		}
		return append(listings[:i], listings[i+1:]...), nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("🗑️ Listing deleted", zap.String("listing_id", id))
	return nil
}

// DecrementStock takes amount units off a listing. Reaching zero marks the
// listing sold; going below zero is refused.
func (s *Service) DecrementStock(ctx context.Context, id string, amount int) (*models.Listing, error) {
	updated, err := s.DecrementStockBatch(ctx, []models.StockChange{{ListingID: id, Amount: amount}})
	if err != nil {
		return nil, err
	}
	return &updated[0], nil
}

// mergeChanges validates amounts and folds repeated listing ids together,
// keeping first-seen order.
func mergeChanges(changes []models.StockChange) ([]models.StockChange, error) {
	merged := make([]models.StockChange, 0, len(changes))
	pos := make(map[string]int, len(changes))
	for _, c := range changes {
		if c.Amount < 1 {
			return nil, apperr.Validation("quantity for listing %s must be at least 1", c.ListingID)
		}
		if i, ok := pos[c.ListingID]; ok {
			merged[i].Amount += c.Amount
			continue
		}
		pos[c.ListingID] = len(merged)
		merged = append(merged, c)
	}
	return merged, nil
}

// DecrementStockBatch applies all decrements in one catalog write. Either
// every listing has enough stock and all are decremented, or nothing changes.
func (s *Service) DecrementStockBatch(ctx context.Context, changes []models.StockChange) ([]models.Listing, error) {
	merged, err := mergeChanges(changes)
	if err != nil {
		return nil, err
	}

	var updated []models.Listing
	err = s.mutate(ctx, func(listings []models.Listing) ([]models.Listing, error) {
		updated = updated[:0]
		idx := make([]int, len(merged))
		for n, c := range merged {
			i := indexOf(listings, c.ListingID)
			if i < 0 {
				return nil, notFound(c.ListingID)
			}
			if c.Amount > listings[i].Stock {
				return nil, apperr.StockExceeded("only %d units of %q available", listings[i].Stock, listings[i].Title)
			}
			idx[n] = i
		}

		now := s.now().UTC()
		for n, c := range merged {
			l := &listings[idx[n]]
			l.Stock -= c.Amount
			if l.Stock == 0 {
				l.Status = models.ListingSold
			}
			l.UpdatedAt = &now
			l.Version++
			updated = append(updated, *l)
		}
		return listings, nil
	})
	if err != nil {
		return nil, err
	}

	for _, l := range updated {
		s.logger.Info("📦 Stock decremented", zap.String("listing_id", l.ID), zap.Int("stock", l.Stock), zap.String("status", string(l.Status)))
	}
	return updated, nil
}

// RestockBatch gives units back, undoing a decrement. Listings deleted in the
// meantime are skipped.
func (s *Service) RestockBatch(ctx context.Context, changes []models.StockChange) error {
	merged, err := mergeChanges(changes)
	if err != nil {
		return err
	}

	return s.mutate(ctx, func(listings []models.Listing) ([]models.Listing, error) {
		now := s.now().UTC()
		for _, c := range merged {
			i := indexOf(listings, c.ListingID)
			if i < 0 {
				s.logger.Warn("⚠️ Restock skipped, listing is gone", zap.String("listing_id", c.ListingID))
				continue
			}
			l := &listings[i]
			l.Stock += c.Amount
			l.Status = models.ListingAvailable
			l.UpdatedAt = &now
			l.Version++
		}
		return listings, nil
	})
}

// Seed writes the given listings when the catalog is empty. It reports
// whether anything was written.
func (s *Service) Seed(ctx context.Context, seed []models.Listing) (bool, error) {
	seeded := false
	err := s.mutate(ctx, func(listings []models.Listing) ([]models.Listing, error) {
		seeded = false
		if len(listings) > 0 {
			return listings, nil
		}
		seeded = true
		return append([]models.Listing(nil), seed...), nil
	})
	if err != nil {
		return false, err
	}
	if seeded {
		s.logger.Info("📦 Catalog seeded", zap.Int("listings", len(seed)))
	}
	return seeded, nil
}
