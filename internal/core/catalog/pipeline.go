// Package catalog holds the pure read pipeline applied to the product list:
// filter, sort, offers partition and pagination.
package catalog

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
)

const DefaultPageSize = 8

type Result struct {
	Offers     []domain.Product
	Items      []domain.Product
	Page       int
	PageSize   int
	TotalPages int
	TotalItems int
	// At is the time offers were partitioned at.
	At time.Time
}

// Run filters and sorts products, splits off the running offers and returns
// the requested page of the remaining ones.
//
// Offers are taken from the whole catalog, regular items from the filtered one.
func Run(
	products []domain.Product, f domain.Filter, page, pageSize int, now time.Time,
) Result {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	offers, _ := Partition(products, now)
	_, regular := Partition(Sort(Filter(products, f), f.SortBy), now)

	return Result{
		Offers:     offers,
		Items:      Paginate(regular, page, pageSize),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(len(regular), pageSize),
		TotalItems: len(regular),
		At:         now,
	}
}

func Filter(products []domain.Product, f domain.Filter) []domain.Product {
	search := strings.ToLower(f.Search)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if matches(p, f, search) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p domain.Product, f domain.Filter, search string) bool {
	if search != "" &&
		!strings.Contains(strings.ToLower(p.Name), search) &&
		!strings.Contains(strings.ToLower(p.ID), search) {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Brand != "" && p.Brand != f.Brand {
		return false
	}
	if f.Color != "" && !slices.Contains(p.Colors(), f.Color) {
		return false
	}
	if f.Size != "" && !slices.Contains(p.Sizes(), f.Size) {
		return false
	}
	return true
}

// Sort returns a stably sorted copy. An empty or unknown key keeps the order.
func Sort(products []domain.Product, key domain.SortKey) []domain.Product {
	out := slices.Clone(products)

	var less func(a, b domain.Product) int
	switch key {
	case domain.SortPriceAsc:
		less = func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) }
	case domain.SortPriceDesc:
		less = func(a, b domain.Product) int { return cmp.Compare(b.Price, a.Price) }
	case domain.SortNameAsc:
		less = func(a, b domain.Product) int { return strings.Compare(a.Name, b.Name) }
	case domain.SortNameDesc:
		less = func(a, b domain.Product) int { return strings.Compare(b.Name, a.Name) }
	default:
		return out
	}

	slices.SortStableFunc(out, less)
	return out
}

// Partition splits products into running offers and the rest,
// preserving order in both.
func Partition(
	products []domain.Product, now time.Time,
) (offers, regular []domain.Product) {
	for _, p := range products {
		if p.OfferActive(now) {
			offers = append(offers, p)
			continue
		}
		regular = append(regular, p)
	}
	return offers, regular
}

// Paginate returns page N (1-based) as the half-open slice
// [(N-1)*size, N*size).
func Paginate(products []domain.Product, page, size int) []domain.Product {
	if page < 1 || size < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(products) {
		return []domain.Product{}
	}
	end := min(start+size, len(products))
	return products[start:end]
}

func TotalPages(count, size int) int {
	if size < 1 {
		return 0
	}
	return (count + size - 1) / size
}
