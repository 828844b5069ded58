package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/cart"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/catalog"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

// streamKeepAlive is how often an idle cart stream sends a comment line.
const streamKeepAlive = 25 * time.Second

type CartHandler struct {
	carts   *cart.Aggregator
	catalog *catalog.Service
}

func NewCartHandler(carts *cart.Aggregator, catalog *catalog.Service) *CartHandler {
	return &CartHandler{carts: carts, catalog: catalog}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.carts.Get(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// AddItem adds a listing to the cart, checked against its current stock
func (h *CartHandler) AddItem(c *gin.Context) {
	var req models.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	listing, err := h.catalog.GetByID(c.Request.Context(), req.ListingID)
	if err != nil {
		respondError(c, err)
		return
	}

	cart, err := h.carts.AddItem(c.Request.Context(), currentUser(c).ID, *listing, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	cart, err := h.carts.UpdateQuantity(c.Request.Context(), currentUser(c).ID, c.Param("listingId"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	cart, err := h.carts.RemoveItem(c.Request.Context(), currentUser(c).ID, c.Param("listingId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	cart, err := h.carts.Clear(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// Quote prices the cart with an optional coupon without changing it
func (h *CartHandler) Quote(c *gin.Context) {
	quote, err := h.carts.Quote(c.Request.Context(), currentUser(c).ID, c.Query("coupon"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Stream pushes the caller's cart as server-sent events: once on connect and
// again after every change until the client goes away.
func (h *CartHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c).ID

	updates := make(chan models.Cart, 8)
	unsubscribe := h.carts.Subscribe(func(owner string, cart models.Cart) {
		if owner != userID {
			return
		}
		select {
		case updates <- cart:
		default:
			// Slow client; it will get the next change.
		}
	})
	defer unsubscribe()

	current, err := h.carts.Get(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	c.SSEvent("cart", current)
	c.Writer.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cart := <-updates:
			c.SSEvent("cart", cart)
			c.Writer.Flush()
		case <-ticker.C:
			if _, err := c.Writer.WriteString(": keep-alive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
