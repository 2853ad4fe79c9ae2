package domain_test

import (
	"testing"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestProductOfferActive(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("NoOffer", func(t *testing.T) {
		p := domain.Product{Price: 100}
		assert.False(t, p.OfferActive(now))

		price, discounted := p.DiscountedPrice()
		assert.False(t, discounted)
		assert.Equal(t, 100.0, price)
	})

	t.Run("FutureExpiry", func(t *testing.T) {
		p := domain.Product{
			SpecialOffer:       true,
			DiscountPercentage: intPtr(10),
			OfferEndsAt:        timePtr(now.Add(time.Hour)),
		}
		assert.True(t, p.OfferActive(now))
	})

	t.Run("ExpiryEqualsNow", func(t *testing.T) {
		p := domain.Product{
			SpecialOffer:       true,
			DiscountPercentage: intPtr(10),
			OfferEndsAt:        timePtr(now),
		}
		assert.False(t, p.OfferActive(now))
	})

	t.Run("ExpiredKeepsFields", func(t *testing.T) {
		p := domain.Product{
			SpecialOffer:       true,
			DiscountPercentage: intPtr(10),
			OfferEndsAt:        timePtr(now.Add(-time.Hour)),
		}
		assert.False(t, p.OfferActive(now))
		require.NotNil(t, p.DiscountPercentage)
		require.NotNil(t, p.OfferEndsAt)
	})
}

func TestProductDiscountedPrice(t *testing.T) {
	p := domain.Product{
		Price:              19.99,
		SpecialOffer:       true,
		DiscountPercentage: intPtr(15),
	}
	price, discounted := p.DiscountedPrice()
	assert.True(t, discounted)
	assert.Equal(t, 16.99, price)
}

func TestProductLists(t *testing.T) {
	p := domain.Product{Color: "Red, Blue,,Black ", Size: ""}
	assert.Equal(t, []string{"Red", "Blue", "Black"}, p.Colors())
	assert.Empty(t, p.Sizes())
}

func TestProductClone(t *testing.T) {
	p := domain.Product{
		ID:                 "p1",
		Images:             []string{"a.png"},
		SpecialOffer:       true,
		DiscountPercentage: intPtr(5),
	}
	c := p.Clone()
	c.Images[0] = "b.png"
	*c.DiscountPercentage = 50

	assert.Equal(t, "a.png", p.Images[0])
	assert.Equal(t, 5, *p.DiscountPercentage)
}

func TestSortKeyValid(t *testing.T) {
	assert.True(t, domain.SortPriceDesc.Valid())
	assert.True(t, domain.SortNone.Valid())
	assert.False(t, domain.SortKey("rating-desc").Valid())
}

func TestCheckUniqueIDs(t *testing.T) {
	assert.NoError(t, domain.CheckUniqueIDs(nil))
	assert.NoError(t, domain.CheckUniqueIDs([]domain.Product{{ID: "a"}, {ID: "b"}}))

	err := domain.CheckUniqueIDs([]domain.Product{{ID: "a"}, {ID: "b"}, {ID: "a"}})
	require.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.Contains(t, err.Error(), `"a"`)
}
