package catalog

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortNameAsc   = "name-asc"
)

type Query struct {
	Search   string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

// fold lowercases s and strips accents so "Cálculo" matches "calculo".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func (q Query) matches(l models.Listing, term string) bool {
	if q.Category != "" && l.Category != q.Category {
		return false
	}
	if q.MinPrice != nil && l.Price.LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && l.Price.GreaterThan(*q.MaxPrice) {
		return false
	}
	if term == "" {
		return true
	}
	return strings.Contains(fold(l.Title), term) ||
		strings.Contains(fold(l.Description), term) ||
		strings.Contains(fold(l.Category), term)
}

// Browse filters and sorts the available listings.
func (s *Service) Browse(ctx context.Context, q Query) ([]models.Listing, error) {
	switch q.Sort {
	case "", SortNewest, SortPriceAsc, SortPriceDesc, SortNameAsc:
	default:
		return nil, apperr.Validation("unknown sort %q", q.Sort)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, apperr.Validation("minPrice must not exceed maxPrice")
	}

	listings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	term := fold(strings.TrimSpace(q.Search))
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if q.matches(l, term) {
			out = append(out, l)
		}
	}

	switch q.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	case SortNameAsc:
		c := collate.New(language.Spanish, collate.IgnoreCase, collate.IgnoreDiacritics)
		sort.SliceStable(out, func(i, j int) bool { return c.CompareString(out[i].Title, out[j].Title) < 0 })
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}

	return out, nil
}

// Categories returns the sorted distinct categories of available listings.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	listings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	categories := []string{}
	for _, l := range listings {
		if l.Category == "" {
			continue
		}
		if _, ok := seen[l.Category]; ok {
			continue
		}
		seen[l.Category] = struct{}{}
		categories = append(categories, l.Category)
	}
	sort.Strings(categories)
	return categories, nil
}
