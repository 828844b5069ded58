package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/catalog"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

type ListingHandler struct {
	catalog *catalog.Service
}

func NewListingHandler(catalog *catalog.Service) *ListingHandler {
	return &ListingHandler{catalog: catalog}
}

func etag(l *models.Listing) string {
	return strconv.Quote(strconv.FormatInt(l.Version, 10))
}

// parseIfMatch reads a version from If-Match. Both "3" and W/"3" are accepted.
func parseIfMatch(h string) (*int64, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return nil, nil
	}
	h = strings.TrimPrefix(h, "W/")
	h = strings.Trim(h, `"`)
	v, err := strconv.ParseInt(h, 10, 64)
	if err != nil {
		return nil, apperr.Validation("If-Match must be a listing version")
	}
	return &v, nil
}

func parsePrice(c *gin.Context, name string) (*decimal.Decimal, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		badRequest(c, name+" must be a number")
		return nil, false
	}
	return &d, true
}

// Browse returns available listings filtered by the query string
func (h *ListingHandler) Browse(c *gin.Context) {
	q := catalog.Query{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
	}
	var ok bool
	if q.MinPrice, ok = parsePrice(c, "minPrice"); !ok {
		return
	}
	if q.MaxPrice, ok = parsePrice(c, "maxPrice"); !ok {
		return
	}

	listings, err := h.catalog.Browse(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (h *ListingHandler) Categories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetListing returns a single listing, sold or not
func (h *ListingHandler) GetListing(c *gin.Context) {
	listing, err := h.catalog.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("ETag", etag(listing))
	c.JSON(http.StatusOK, listing)
}

// CreateListing publishes a listing owned by the caller
func (h *ListingHandler) CreateListing(c *gin.Context) {
	var req models.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user := currentUser(c)
	req.SellerID = user.ID
	req.SellerName = user.Name
	req.SellerEmail = user.Email

	listing, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("ETag", etag(listing))
	c.JSON(http.StatusCreated, listing)
}

// owned loads the listing and checks the caller sells it.
func (h *ListingHandler) owned(c *gin.Context) (*models.Listing, bool) {
	listing, err := h.catalog.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	user := currentUser(c)
	if listing.SellerID != user.ID && (listing.SellerEmail == "" || listing.SellerEmail != user.Email) {
		respondError(c, apperr.New(apperr.KindForbidden, "only the seller can change this listing"))
		return nil, false
	}
	return listing, true
}

func (h *ListingHandler) UpdateListing(c *gin.Context) {
	var req models.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	version, err := parseIfMatch(c.GetHeader("If-Match"))
	if err != nil {
		respondError(c, err)
		return
	}
	req.ExpectedVersion = version

	if _, ok := h.owned(c); !ok {
		return
	}

	listing, err := h.catalog.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("ETag", etag(listing))
	c.JSON(http.StatusOK, listing)
}

func (h *ListingHandler) DeleteListing(c *gin.Context) {
	if _, ok := h.owned(c); !ok {
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "listing deleted"})
}

// MyListings returns everything the caller has listed, sold included
func (h *ListingHandler) MyListings(c *gin.Context) {
	listings, err := h.catalog.BySeller(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	c.JSON(http.StatusOK, listings)
}
