// Package orders turns carts into immutable orders: stock is taken from the
// catalog in one write, the order is stored per user and an order.created
// event goes out for the sellers.
package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

// Inventory is the part of the catalog checkout needs.
type Inventory interface {
	DecrementStockBatch(ctx context.Context, changes []models.StockChange) ([]models.Listing, error)
	RestockBatch(ctx context.Context, changes []models.StockChange) error
}

// Carts is the part of the cart aggregator checkout needs.
type Carts interface {
	Take(ctx context.Context, userID string) ([]models.CartLine, error)
	Restore(ctx context.Context, userID string, lines []models.CartLine) (*models.Cart, error)
	Deduct(ctx context.Context, userID string, lines []models.CartLine) (*models.Cart, error)
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error
}

type Recorder struct {
	inventory Inventory
	carts     Carts
	store     storage.Store
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Recorder)

// WithPublisher sends order.created events through p after each checkout.
func WithPublisher(p EventPublisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(r *Recorder) { r.newID = newID }
}

func NewRecorder(inventory Inventory, carts Carts, store storage.Store, logger *zap.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		inventory: inventory,
		carts:     carts,
		store:     store,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckoutCart checks out whatever is in the user's stored cart. The cart is
// emptied in the same write that reads it, so a second checkout of the same
// cart finds it empty. If the order cannot be recorded the lines go back.
func (r *Recorder) CheckoutCart(ctx context.Context, userID string) (*models.Order, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "sign in to check out")
	}
	lines, err := r.carts.Take(ctx, userID)
	if err != nil {
		return nil, err
	}

	order, err := r.record(ctx, userID, lines)
	if err != nil {
		if _, rerr := r.carts.Restore(context.WithoutCancel(ctx), userID, lines); rerr != nil {
			r.logger.Error("❌ Failed to give the cart back", zap.String("user_id", userID), zap.Error(rerr))
		}
		return nil, err
	}
	return order, nil
}

// Checkout records an order for lines and takes the ordered quantities off
// the user's cart.
func (r *Recorder) Checkout(ctx context.Context, userID string, lines []models.CartLine) (*models.Order, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "sign in to check out")
	}
	if len(lines) == 0 {
		return nil, apperr.New(apperr.KindEmptyCart, "cart is empty")
	}

	order, err := r.record(ctx, userID, lines)
	if err != nil {
		return nil, err
	}
	if _, err := r.carts.Deduct(ctx, userID, lines); err != nil {
		r.logger.Warn("⚠️ Failed to update cart after checkout", zap.String("user_id", userID), zap.Error(err))
	}
	return order, nil
}

// record takes stock for every line at once and stores the order. If any
// line is short nothing is taken and StockExceeded is returned.
func (r *Recorder) record(ctx context.Context, userID string, lines []models.CartLine) (*models.Order, error) {

	changes := make([]models.StockChange, 0, len(lines))
	for _, l := range lines {
		changes = append(changes, models.StockChange{ListingID: l.ListingID, Amount: l.Quantity})
	}

	updated, err := r.inventory.DecrementStockBatch(ctx, changes)
	if err != nil {
		r.logger.Warn("⚠️ Checkout rejected", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	sellers := make(map[string]string, len(updated))
	for _, l := range updated {
		sellers[l.ID] = l.SellerID
	}

	order := models.Order{
		ID:        r.newID(),
		UserID:    userID,
		Lines:     make([]models.OrderLine, 0, len(lines)),
		Total:     decimal.Zero,
		Status:    models.OrderStatusCreated,
		CreatedAt: r.now().UTC(),
	}
	for _, l := range lines {
		order.Lines = append(order.Lines, models.OrderLine{
			ListingID: l.ListingID,
			Title:     l.Title,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			SellerID:  sellers[l.ListingID],
		})
		order.Total = order.Total.Add(l.Subtotal())
	}

	err = storage.UpdateJSON(ctx, r.store, storage.OrdersKey(userID), func(orders *[]models.Order) error {
		*orders = append([]models.Order{order}, *orders...)
		return nil
	})
	if err != nil {
		r.logger.Error("❌ Failed to record order, restoring stock", zap.String("order_id", order.ID), zap.Error(err))
		if rerr := r.inventory.RestockBatch(context.WithoutCancel(ctx), changes); rerr != nil {
			r.logger.Error("❌ Failed to restore stock", zap.String("order_id", order.ID), zap.Error(rerr))
		}
		return nil, err
	}

	r.logger.Info("✅ Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("total", order.Total.StringFixed(2)),
	)

	r.publish(ctx, &order)
	return &order, nil
}

func (r *Recorder) publish(ctx context.Context, order *models.Order) {
	if r.publisher == nil {
		return
	}

	event := models.OrderCreatedEvent{
		OrderID:   order.ID,
		BuyerID:   order.UserID,
		Total:     order.Total,
		CreatedAt: order.CreatedAt,
	}
	for _, l := range order.Lines {
		event.Items = append(event.Items, models.OrderItemEvent{
			ListingID: l.ListingID,
			Title:     l.Title,
			SellerID:  l.SellerID,
			Quantity:  l.Quantity,
		})
	}

	if err := r.publisher.PublishOrderCreated(ctx, event); err != nil {
		r.logger.Warn("⚠️ Failed to publish order event", zap.String("order_id", order.ID), zap.Error(err))
	}
}

// ListOrders returns the user's orders, newest first.
func (r *Recorder) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "sign in to see your orders")
	}
	orders := []models.Order{}
	if _, err := storage.LoadJSON(ctx, r.store, storage.OrdersKey(userID), &orders); err != nil {
		r.logger.Error("❌ Failed to read orders", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return orders, nil
}

func (r *Recorder) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	orders, err := r.ListOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], nil
		}
	}
	return nil, apperr.NotFound("order %s not found", orderID)
}
