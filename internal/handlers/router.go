package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/cart"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/catalog"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/identity"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/notifications"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/orders"
)

// Deps is everything the HTTP API is built from.
type Deps struct {
	ServiceName string
	Logger      *zap.Logger

	Catalog  *catalog.Service
	Carts    *cart.Aggregator
	Orders   *orders.Recorder
	Inbox    *notifications.Inbox
	Auth     identity.Authenticator
	Sessions SessionManager
	Limiter  *LoginLimiter
}

func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Limiter == nil {
		d.Limiter = NewLoginLimiter(1, 5)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(d.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": d.ServiceName})
	})

	authHandler := NewAuthHandler(d.Auth, d.Sessions)
	listingHandler := NewListingHandler(d.Catalog)
	cartHandler := NewCartHandler(d.Carts, d.Catalog)
	orderHandler := NewOrderHandler(d.Orders)
	notificationHandler := NewNotificationHandler(d.Inbox)

	requireAuth := RequireAuth(d.Sessions)

	auth := router.Group("/auth")
	auth.POST("/register", d.Limiter.Middleware(), authHandler.Register)
	auth.POST("/login", d.Limiter.Middleware(), authHandler.Login)
	auth.POST("/logout", requireAuth, authHandler.Logout)
	auth.GET("/me", requireAuth, authHandler.Me)

	router.GET("/listings", listingHandler.Browse)
	router.GET("/listings/categories", listingHandler.Categories)
	router.GET("/listings/:id", listingHandler.GetListing)
	router.POST("/listings", requireAuth, listingHandler.CreateListing)
	router.PATCH("/listings/:id", requireAuth, listingHandler.UpdateListing)
	router.DELETE("/listings/:id", requireAuth, listingHandler.DeleteListing)

	me := router.Group("/me", requireAuth)
	me.GET("/listings", listingHandler.MyListings)
	me.GET("/notifications", notificationHandler.MyNotifications)

	cartGroup := router.Group("/cart", requireAuth)
	cartGroup.GET("", cartHandler.GetCart)
	cartGroup.DELETE("", cartHandler.ClearCart)
	cartGroup.GET("/quote", cartHandler.Quote)
	cartGroup.GET("/stream", cartHandler.Stream)
	cartGroup.POST("/items", cartHandler.AddItem)
	cartGroup.PATCH("/items/:listingId", cartHandler.UpdateItem)
	cartGroup.DELETE("/items/:listingId", cartHandler.RemoveItem)

	orderGroup := router.Group("/orders", requireAuth)
	orderGroup.POST("", orderHandler.Checkout)
	orderGroup.GET("", orderHandler.ListOrders)
	orderGroup.GET("/:id", orderHandler.GetOrder)

	return router
}
