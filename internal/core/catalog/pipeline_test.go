package catalog_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/niksmo/storefront/internal/core/catalog"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func ids(ps []domain.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func offer(id string, endsAt time.Time) domain.Product {
	pct := 20
	return domain.Product{
		ID:                 id,
		Name:               id,
		Price:              10,
		SpecialOffer:       true,
		DiscountPercentage: &pct,
		OfferEndsAt:        &endsAt,
	}
}

func TestFilter(t *testing.T) {
	products := []domain.Product{
		{ID: "sku-1", Name: "Linen Shirt", Category: "Shirts", Brand: "Acme", Color: "White,Blue", Size: "S,M"},
		{ID: "sku-2", Name: "Denim Jacket", Category: "Outerwear", Brand: "Acme", Color: "Blue", Size: "L"},
		{ID: "sku-3", Name: "Wool Shirt", Category: "Shirts Extra", Brand: "Nordic", Color: "Light Blue", Size: "M , XL"},
	}

	t.Run("NoConstraints", func(t *testing.T) {
		got := catalog.Filter(products, domain.Filter{})
		assert.Equal(t, []string{"sku-1", "sku-2", "sku-3"}, ids(got))
	})

	t.Run("SearchNameCaseInsensitive", func(t *testing.T) {
		got := catalog.Filter(products, domain.Filter{Search: "SHIRT"})
		assert.Equal(t, []string{"sku-1", "sku-3"}, ids(got))
	})

	t.Run("SearchByID", func(t *testing.T) {
		got := catalog.Filter(products, domain.Filter{Search: "Sku-2"})
		assert.Equal(t, []string{"sku-2"}, ids(got))
	})

	t.Run("CategoryExact", func(t *testing.T) {
		got := catalog.Filter(products, domain.Filter{Category: "Shirts"})
		assert.Equal(t, []string{"sku-1"}, ids(got))
	})

	t.Run("BrandExact", func(t *testing.T) {
		got := catalog.Filter(products, domain.Filter{Brand: "Acme"})
		assert.Equal(t, []string{"sku-1", "sku-2"}, ids(got))
	})

	t.Run("ColorMembership", func(t *testing.T) {
		got := catalog.Filter(products, domain.Filter{Color: "Blue"})
		assert.Equal(t, []string{"sku-1", "sku-2"}, ids(got))
	})

	t.Run("SizeMembershipTrimmed", func(t *testing.T) {
		got := catalog.Filter(products, domain.Filter{Size: "XL"})
		assert.Equal(t, []string{"sku-3"}, ids(got))
	})

	t.Run("AllDimensions", func(t *testing.T) {
		got := catalog.Filter(products, domain.Filter{
			Search: "shirt", Category: "Shirts", Brand: "Acme", Color: "White", Size: "M",
		})
		assert.Equal(t, []string{"sku-1"}, ids(got))
	})
}

func TestSort(t *testing.T) {
	products := []domain.Product{
		{ID: "a", Name: "Beta", Price: 10},
		{ID: "b", Name: "Alpha", Price: 5},
		{ID: "c", Name: "Gamma", Price: 20},
		{ID: "d", Name: "Delta", Price: 10},
	}

	tests := []struct {
		key  domain.SortKey
		want []string
	}{
		{domain.SortNone, []string{"a", "b", "c", "d"}},
		{domain.SortPriceAsc, []string{"b", "a", "d", "c"}},
		{domain.SortPriceDesc, []string{"c", "a", "d", "b"}},
		{domain.SortNameAsc, []string{"b", "a", "d", "c"}},
		{domain.SortNameDesc, []string{"c", "d", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got := catalog.Sort(products, tt.key)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	t.Run("PriceDescWithTies", func(t *testing.T) {
		got := catalog.Sort([]domain.Product{
			{ID: "10", Price: 10}, {ID: "5", Price: 5}, {ID: "20", Price: 20},
		}, domain.SortPriceDesc)
		assert.Equal(t, []string{"20", "10", "5"}, ids(got))
	})

	t.Run("DoesNotMutateInput", func(t *testing.T) {
		_ = catalog.Sort(products, domain.SortPriceAsc)
		assert.Equal(t, []string{"a", "b", "c", "d"}, ids(products))
	})
}

func TestPartition(t *testing.T) {
	products := []domain.Product{
		{ID: "plain", Price: 10},
		offer("running", now.Add(time.Hour)),
		offer("expired", now.Add(-time.Hour)),
		{ID: "flagOnly", SpecialOffer: true},
	}

	offers, regular := catalog.Partition(products, now)
	assert.Equal(t, []string{"running"}, ids(offers))
	assert.Equal(t, []string{"plain", "expired", "flagOnly"}, ids(regular))
}

func TestPaginate(t *testing.T) {
	products := make([]domain.Product, 17)
	for i := range products {
		products[i] = domain.Product{ID: fmt.Sprintf("p%02d", i)}
	}

	assert.Equal(t, 3, catalog.TotalPages(len(products), 8))
	assert.Len(t, catalog.Paginate(products, 1, 8), 8)
	assert.Len(t, catalog.Paginate(products, 2, 8), 8)

	last := catalog.Paginate(products, 3, 8)
	require.Len(t, last, 1)
	assert.Equal(t, "p16", last[0].ID)

	assert.Empty(t, catalog.Paginate(products, 4, 8))
	assert.Nil(t, catalog.Paginate(products, 0, 8))
	assert.Equal(t, 0, catalog.TotalPages(0, 8))
}

func TestRun(t *testing.T) {
	var products []domain.Product
	for i := range 17 {
		products = append(products, domain.Product{
			ID: fmt.Sprintf("p%02d", i), Name: "Item", Category: "Bags", Price: float64(i),
		})
	}
	products = append(products,
		offer("running", now.Add(24*time.Hour)),
		offer("expired", now.Add(-time.Minute)),
	)
	products[len(products)-1].Category = "Bags"

	res := catalog.Run(
		products,
		domain.Filter{Category: "Bags", SortBy: domain.SortPriceDesc},
		3, 8, now,
	)

	assert.Equal(t, []string{"running"}, ids(res.Offers))
	assert.Equal(t, 18, res.TotalItems)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 3, res.Page)
	require.Len(t, res.Items, 2)
	assert.Equal(t, []string{"p01", "p00"}, ids(res.Items))
}

func TestRunDefaults(t *testing.T) {
	res := catalog.Run(nil, domain.Filter{}, 0, 0, now)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, catalog.DefaultPageSize, res.PageSize)
	assert.Equal(t, 0, res.TotalPages)
	assert.Empty(t, res.Items)
}

func TestBuildFacets(t *testing.T) {
	f := catalog.BuildFacets([]domain.Product{
		{Category: "Shirts", Brand: "Acme", Color: "Red,Blue", Size: "S"},
		{Category: "", Brand: "Nordic", Color: "Blue", Size: "S,M"},
		{Category: "Shoes", Brand: "Acme"},
	})
	assert.Equal(t, []string{"Shirts", "Shoes"}, f.Categories)
	assert.Equal(t, []string{"Acme", "Nordic"}, f.Brands)
	assert.Equal(t, []string{"Red", "Blue"}, f.Colors)
	assert.Equal(t, []string{"S", "M"}, f.Sizes)
}
