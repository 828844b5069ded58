package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/cart"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/catalog"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/identity"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/notifications"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/orders"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

const (
	buyerEmail  = "u20209999@utp.edu.pe"
	sellerEmail = "u20201234@utp.edu.pe"
)

type testAPI struct {
	router *gin.Engine
	carts  *cart.Aggregator
	inbox  *notifications.Inbox
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemory()
	cat := catalog.NewService(store, nil)
	_, err := cat.Seed(context.Background(), catalog.SeedListings())
	require.NoError(t, err)

	carts := cart.NewAggregator(store, nil)
	auth, err := identity.NewMockIdentity(store, `^[a-zA-Z0-9._-]+@utp\.edu\.pe$`, nil)
	require.NoError(t, err)
	inbox := notifications.NewInbox(store, nil)

	router := NewRouter(Deps{
		ServiceName: "marketplace-api",
		Catalog:     cat,
		Carts:       carts,
		Orders:      orders.NewRecorder(cat, carts, store, nil),
		Inbox:       inbox,
		Auth:        auth,
		Sessions:    identity.NewSessions(store, "test-secret", time.Hour, nil),
		Limiter:     NewLoginLimiter(100, 100),
	})
	return &testAPI{router: router, carts: carts, inbox: inbox}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) login(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": email})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var s models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["code"]
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "someone@gmail.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = api.do(t, http.MethodPost, "/auth/register", "", gin.H{"email": buyerEmail, "password": "secret1", "name": "Ana Torres"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decode[models.Session](t, w).Token

	w = api.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana Torres", decode[models.User](t, w).Name)

	w = api.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, w))
}

func TestLoginRateLimit(t *testing.T) {
	api := newTestAPI(t)
	api.router = NewRouter(Deps{Limiter: NewLoginLimiter(0.001, 1), Auth: nil})

	w := api.do(t, http.MethodPost, "/auth/login", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/auth/login", "", gin.H{})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestLoginLimiter_EvictsIdleClients(t *testing.T) {
	l := NewLoginLimiter(1, 1)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.limiter("10.0.0.1").Allow())
	assert.True(t, l.limiter("10.0.0.2").Allow())
	assert.Equal(t, 2, l.tracked())

	// A client seen recently keeps its limiter across the sweep.
	now = now.Add(limiterIdle - time.Second)
	l.limiter("10.0.0.2")
	now = now.Add(2 * time.Second)
	l.limiter("10.0.0.3")
	assert.Equal(t, 2, l.tracked())

	now = now.Add(2 * limiterIdle)
	l.limiter("10.0.0.4")
	assert.Equal(t, 1, l.tracked())
}

func TestBrowseAndGet(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/listings?search=calculator&sort=price-asc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.Listing](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "seed-3", list[0].ID)

	w = api.do(t, http.MethodGet, "/listings?minPrice=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/listings/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]string](t, w), 3)

	w = api.do(t, http.MethodGet, "/listings/seed-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"1"`, w.Header().Get("ETag"))

	w = api.do(t, http.MethodGet, "/listings/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestListingLifecycle(t *testing.T) {
	api := newTestAPI(t)
	seller := api.login(t, sellerEmail)
	other := api.login(t, buyerEmail)

	body := gin.H{
		"title":       "Arduino starter kit",
		"description": "Uno board, breadboard and jumper wires",
		"price":       "85.50",
		"category":    "Technology",
		"stock":       2,
	}
	w := api.do(t, http.MethodPost, "/listings", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/listings", seller, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Listing](t, w)
	assert.Equal(t, "u20201234", created.SellerID)

	w = api.do(t, http.MethodPost, "/listings", seller, gin.H{"title": "Kit", "description": "short", "price": 1, "category": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := "/listings/" + created.ID
	w = api.do(t, http.MethodPatch, path, other, gin.H{"price": 80})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPatch, path, seller, gin.H{"price": 80}, "If-Match", `"9"`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, w))

	w = api.do(t, http.MethodPatch, path, seller, gin.H{"price": 80}, "If-Match", `"1"`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[models.Listing](t, w).Price.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, `"2"`, w.Header().Get("ETag"))

	w = api.do(t, http.MethodGet, "/me/listings", seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Listing](t, w), 2, "seed-1 and the new listing")

	w = api.do(t, http.MethodDelete, path, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodDelete, path, seller, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodDelete, path, seller, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartAndCheckout(t *testing.T) {
	api := newTestAPI(t)
	buyer := api.login(t, buyerEmail)

	w := api.do(t, http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/orders", buyer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_CART", errorCode(t, w))

	w = api.do(t, http.MethodPost, "/cart/items", buyer, gin.H{"listingId": "seed-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/cart/items", buyer, gin.H{"listingId": "seed-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "STOCK_EXCEEDED", errorCode(t, w))

	w = api.do(t, http.MethodPost, "/cart/items", buyer, gin.H{"listingId": "seed-3", "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	c := decode[models.Cart](t, w)
	assert.Equal(t, 2, c.TotalItems)
	assert.True(t, c.TotalPrice.Equal(decimal.NewFromInt(140)))

	w = api.do(t, http.MethodGet, "/cart/quote?coupon=UTP10", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	q := decode[models.Quote](t, w)
	assert.True(t, q.Total.Equal(decimal.NewFromInt(126)), q.Total.String())

	w = api.do(t, http.MethodGet, "/cart/quote?coupon=BOGUS", buyer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPatch, "/cart/items/seed-3", buyer, gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.Cart](t, w).Lines, 1)

	w = api.do(t, http.MethodPost, "/orders", buyer, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[models.Order](t, w)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(45)))

	w = api.do(t, http.MethodGet, "/cart", buyer, nil)
	assert.Empty(t, decode[models.Cart](t, w).Lines)

	w = api.do(t, http.MethodGet, "/orders/"+order.ID, buyer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/orders", buyer, nil)
	assert.Len(t, decode[[]models.Order](t, w), 1)

	w = api.do(t, http.MethodGet, "/orders/missing", buyer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Sold out now: hidden from browse, still addressable.
	w = api.do(t, http.MethodGet, "/listings", "", nil)
	for _, l := range decode[[]models.Listing](t, w) {
		assert.NotEqual(t, "seed-1", l.ID)
	}
	w = api.do(t, http.MethodGet, "/listings/seed-1", "", nil)
	assert.Equal(t, models.ListingSold, decode[models.Listing](t, w).Status)
}

func TestNotifications(t *testing.T) {
	api := newTestAPI(t)
	seller := api.login(t, sellerEmail)

	require.NoError(t, api.inbox.RecordSale(context.Background(), models.OrderCreatedEvent{
		OrderID: "o1",
		BuyerID: "u20209999",
		Items:   []models.OrderItemEvent{{ListingID: "seed-1", SellerID: "u20201234", Quantity: 1}},
	}))

	w := api.do(t, http.MethodGet, "/me/notifications", seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Notification](t, w), 1)
}

func TestCartStream(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, buyerEmail)

	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/cart/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	nextData := func() models.Cart {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data:") {
				var c models.Cart
				require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &c))
				return c
			}
		}
	}

	initial := nextData()
	assert.Empty(t, initial.Lines)

	// The subscription is in place once the first event arrived.
	l := models.Listing{ID: "seed-2", Title: "Laptop", Price: decimal.NewFromInt(1200), Stock: 1}
	_, err = api.carts.AddItem(context.Background(), "u20209999", l, 1)
	require.NoError(t, err)

	updated := nextData()
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, "seed-2", updated.Lines[0].ListingID)
}

func TestParseIfMatch(t *testing.T) {
	v, err := parseIfMatch(`W/"4"`)
	require.NoError(t, err)
	assert.Equal(t, int64(4), *v)

	v, err = parseIfMatch("")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = parseIfMatch("abc")
	assert.Error(t, err)
}
