// Package cart keeps one cart per user in the snapshot store and tells
// subscribers whenever a cart changes.
package cart

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

// Listener is called with the new cart after every persisted change. It runs
// on the caller's goroutine and must not block.
type Listener func(userID string, cart models.Cart)

type Aggregator struct {
	store  storage.Store
	logger *zap.Logger

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

func NewAggregator(store storage.Store, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		store:     store,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

func requireUser(userID string) error {
	if userID == "" {
		return apperr.New(apperr.KindUnauthenticated, "sign in to use the cart")
	}
	return nil
}

// decode turns a stored snapshot into lines. A corrupt snapshot is logged and
// read as an empty cart.
func (a *Aggregator) decode(userID string, data []byte) []models.CartLine {
	if len(data) == 0 {
		return nil
	}
	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		a.logger.Warn("⚠️ Discarding unreadable cart", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return lines
}

func (a *Aggregator) load(ctx context.Context, userID string) ([]models.CartLine, error) {
	snap, err := a.store.Load(ctx, storage.CartKey(userID))
	if err != nil {
		a.logger.Error("❌ Failed to read cart", zap.String("user_id", userID), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindUnavailable, err, "failed to read cart")
	}
	return a.decode(userID, snap.Data), nil
}

// mutate applies fn to the stored lines and persists the result. fn may run
// more than once on version conflicts.
func (a *Aggregator) mutate(ctx context.Context, userID string, fn func(lines []models.CartLine) ([]models.CartLine, error)) (*models.Cart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var result []models.CartLine
	err := storage.Update(ctx, a.store, storage.CartKey(userID), func(data []byte) ([]byte, error) {
		next, err := fn(a.decode(userID, data))
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []models.CartLine{}
		}
		result = next
		return json.Marshal(next)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnavailable {
			a.logger.Error("❌ Cart change not persisted", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, err
	}

	cart := build(userID, result)
	a.notify(userID, cart)
	return &cart, nil
}

func build(userID string, lines []models.CartLine) models.Cart {
	if lines == nil {
		lines = []models.CartLine{}
	}
	return models.Cart{
		UserID:     userID,
		Lines:      lines,
		CartTotals: models.ComputeTotals(lines),
	}
}

func indexOf(lines []models.CartLine, listingID string) int {
	for i := range lines {
		if lines[i].ListingID == listingID {
			return i
		}
	}
	return -1
}

// AddItem puts quantity units of listing in the user's cart. An add that would
// take the line above the listing's stock is rejected in full.
func (a *Aggregator) AddItem(ctx context.Context, userID string, listing models.Listing, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	return a.mutate(ctx, userID, func(lines []models.CartLine) ([]models.CartLine, error) {
		if listing.Stock <= 0 {
			return nil, apperr.StockExceeded("%q is sold out", listing.Title)
		}

		i := indexOf(lines, listing.ID)
		if i < 0 {
			if quantity > listing.Stock {
				return nil, apperr.StockExceeded("only %d units of %q available", listing.Stock, listing.Title)
			}
			return append(lines, models.CartLine{
				ListingID: listing.ID,
				Title:     listing.Title,
				UnitPrice: listing.Price,
				ImageURL:  listing.ImageURL,
				Quantity:  quantity,
				MaxStock:  listing.Stock,
			}), nil
		}

		line := &lines[i]
		if line.Quantity+quantity > listing.Stock {
			return nil, apperr.StockExceeded("only %d units of %q available, %d already in cart", listing.Stock, listing.Title, line.Quantity)
		}
		line.Quantity += quantity
		line.MaxStock = listing.Stock
		line.UnitPrice = listing.Price
		line.Title = listing.Title
		return lines, nil
	})
}

// RemoveItem drops the line for listingID. Removing an absent line is a no-op.
func (a *Aggregator) RemoveItem(ctx context.Context, userID, listingID string) (*models.Cart, error) {
	return a.mutate(ctx, userID, func(lines []models.CartLine) ([]models.CartLine, error) {
		i := indexOf(lines, listingID)
		if i < 0 {
			return lines, nil
		}
		return append(lines[:i], lines[i+1:]...), nil
	})
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line and
// values above the captured stock are clamped to it.
func (a *Aggregator) UpdateQuantity(ctx context.Context, userID, listingID string, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return a.RemoveItem(ctx, userID, listingID)
	}

	return a.mutate(ctx, userID, func(lines []models.CartLine) ([]models.CartLine, error) {
		i := indexOf(lines, listingID)
		if i < 0 {
			return lines, nil
		}
		q := quantity
		if q > lines[i].MaxStock {
			q = lines[i].MaxStock
		}
		lines[i].Quantity = q
		return lines, nil
	})
}

func (a *Aggregator) Clear(ctx context.Context, userID string) (*models.Cart, error) {
	return a.mutate(ctx, userID, func([]models.CartLine) ([]models.CartLine, error) {
		return []models.CartLine{}, nil
	})
}

// Take empties the cart and returns the lines it held, in one write. Two
// callers racing on the same cart can never both get the same lines.
func (a *Aggregator) Take(ctx context.Context, userID string) ([]models.CartLine, error) {
	var taken []models.CartLine
	_, err := a.mutate(ctx, userID, func(lines []models.CartLine) ([]models.CartLine, error) {
		if len(lines) == 0 {
			return nil, apperr.New(apperr.KindEmptyCart, "cart is empty")
		}
		taken = lines
		return []models.CartLine{}, nil
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// Restore puts taken lines back in front of whatever the cart holds now.
// Lines for the same listing are merged and kept within the larger captured
// stock.
func (a *Aggregator) Restore(ctx context.Context, userID string, taken []models.CartLine) (*models.Cart, error) {
	return a.mutate(ctx, userID, func(lines []models.CartLine) ([]models.CartLine, error) {
		merged := append([]models.CartLine(nil), taken...)
		for _, l := range lines {
			i := indexOf(merged, l.ListingID)
			if i < 0 {
				merged = append(merged, l)
				continue
			}
			m := &merged[i]
			if l.MaxStock > m.MaxStock {
				m.MaxStock = l.MaxStock
			}
			m.Quantity += l.Quantity
			if m.Quantity > m.MaxStock {
				m.Quantity = m.MaxStock
			}
		}
		return merged, nil
	})
}

// Deduct takes the ordered quantities off the cart and drops lines that reach
// zero. Anything added since the order was built stays.
func (a *Aggregator) Deduct(ctx context.Context, userID string, ordered []models.CartLine) (*models.Cart, error) {
	return a.mutate(ctx, userID, func(lines []models.CartLine) ([]models.CartLine, error) {
		for _, o := range ordered {
			i := indexOf(lines, o.ListingID)
			if i < 0 {
				continue
			}
			lines[i].Quantity -= o.Quantity
			if lines[i].Quantity <= 0 {
				lines = append(lines[:i], lines[i+1:]...)
			}
		}
		return lines, nil
	})
}

// Get returns the user's cart with totals derived from its lines.
func (a *Aggregator) Get(ctx context.Context, userID string) (*models.Cart, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	lines, err := a.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart := build(userID, lines)
	return &cart, nil
}

func (a *Aggregator) Lines(ctx context.Context, userID string) ([]models.CartLine, error) {
	cart, err := a.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cart.Lines, nil
}

func (a *Aggregator) Totals(ctx context.Context, userID string) (models.CartTotals, error) {
	cart, err := a.Get(ctx, userID)
	if err != nil {
		return models.CartTotals{}, err
	}
	return cart.CartTotals, nil
}

// Subscribe registers l and returns the function that removes it.
func (a *Aggregator) Subscribe(l Listener) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = l
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

func (a *Aggregator) notify(userID string, cart models.Cart) {
	a.mu.RLock()
	listeners := make([]Listener, 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.mu.RUnlock()

	for _, l := range listeners {
		l(userID, cart)
	}
}
