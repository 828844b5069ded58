package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

// APIError is a non-2xx answer from the marketplace API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("marketplace returned status %d", e.Status)
}

type MarketplaceClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewMarketplaceClient(baseURL, token string) *MarketplaceClient {
	return &MarketplaceClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *MarketplaceClient) Token() string {
	return c.token
}

func (c *MarketplaceClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call marketplace: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login signs in and keeps the token for later calls
func (c *MarketplaceClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &session)
	if err != nil {
		return nil, err
	}
	c.token = session.Token
	return &session, nil
}

func (c *MarketplaceClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// ListListings browses the catalog. Empty values are left out of the query.
func (c *MarketplaceClient) ListListings(ctx context.Context, search, category, sort string) ([]models.Listing, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if category != "" {
		q.Set("category", category)
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	path := "/listings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var listings []models.Listing
	if err := c.do(ctx, http.MethodGet, path, nil, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

func (c *MarketplaceClient) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	if err := c.do(ctx, http.MethodGet, "/listings/"+url.PathEscape(id), nil, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *MarketplaceClient) Cart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *MarketplaceClient) AddToCart(ctx context.Context, listingID string, quantity int) (*models.Cart, error) {
	var cart models.Cart
	req := models.AddCartItemRequest{ListingID: listingID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/cart/items", req, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *MarketplaceClient) Quote(ctx context.Context, coupon string) (*models.Quote, error) {
	var quote models.Quote
	path := "/cart/quote"
	if coupon != "" {
		path += "?coupon=" + url.QueryEscape(coupon)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

func (c *MarketplaceClient) Checkout(ctx context.Context) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *MarketplaceClient) Orders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
