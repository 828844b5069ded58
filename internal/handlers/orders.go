package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/notifications"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/orders"
)

type OrderHandler struct {
	recorder *orders.Recorder
}

func NewOrderHandler(recorder *orders.Recorder) *OrderHandler {
	return &OrderHandler{recorder: recorder}
}

// Checkout turns the caller's cart into an order
func (h *OrderHandler) Checkout(c *gin.Context) {
	order, err := h.recorder.CheckoutCart(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListOrders returns the caller's orders, newest first
func (h *OrderHandler) ListOrders(c *gin.Context) {
	list, err := h.recorder.ListOrders(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.recorder.GetOrder(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type NotificationHandler struct {
	inbox *notifications.Inbox
}

func NewNotificationHandler(inbox *notifications.Inbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

// MyNotifications returns the caller's sales, newest first
func (h *NotificationHandler) MyNotifications(c *gin.Context) {
	list, err := h.inbox.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
