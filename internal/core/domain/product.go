package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicateID = errors.New("duplicate product id")
)

type (
	// A Product is a catalog entry.
	//
	// DiscountPercentage and OfferEndsAt are set only when SpecialOffer is true.
	// An expired offer keeps its fields, see [Product.OfferActive].
	Product struct {
		ID                 string
		Name               string
		Brand              string
		Price              float64
		Category           string
		Color              string
		Size               string
		Images             []string
		Description        string
		SpecialOffer       bool
		DiscountPercentage *int
		OfferEndsAt        *time.Time
	}

	CartLine struct {
		Product  Product
		Quantity int
	}

	// A Snapshot is the durable local state of the store.
	Snapshot struct {
		Products []Product
		Cart     []CartLine
	}

	// A Document is the seed and remote mirror payload.
	Document struct {
		Products []Product
	}
)

// OfferActive reports whether the special offer is running at now.
func (p Product) OfferActive(now time.Time) bool {
	return p.SpecialOffer && p.OfferEndsAt != nil && now.Before(*p.OfferEndsAt)
}

// DiscountedPrice returns the price after the offer discount, rounded to
// cents. The second value is false when the product carries no discount.
func (p Product) DiscountedPrice() (float64, bool) {
	if !p.SpecialOffer || p.DiscountPercentage == nil {
		return p.Price, false
	}
	price := decimal.NewFromFloat(p.Price)
	off := price.Mul(decimal.NewFromInt(int64(*p.DiscountPercentage))).
		Div(decimal.NewFromInt(100))
	v, _ := price.Sub(off).Round(2).Float64()
	return v, true
}

func (p Product) Colors() []string {
	return splitList(p.Color)
}

func (p Product) Sizes() []string {
	return splitList(p.Size)
}

// Clone returns a copy that shares no memory with p.
func (p Product) Clone() Product {
	c := p
	if p.Images != nil {
		c.Images = make([]string, len(p.Images))
		copy(c.Images, p.Images)
	}
	if p.DiscountPercentage != nil {
		v := *p.DiscountPercentage
		c.DiscountPercentage = &v
	}
	if p.OfferEndsAt != nil {
		v := *p.OfferEndsAt
		c.OfferEndsAt = &v
	}
	return c
}

func CloneProducts(ps []Product) []Product {
	if ps == nil {
		return nil
	}
	out := make([]Product, len(ps))
	for i := range ps {
		out[i] = ps[i].Clone()
	}
	return out
}

func CloneCart(ls []CartLine) []CartLine {
	if ls == nil {
		return nil
	}
	out := make([]CartLine, len(ls))
	for i := range ls {
		out[i] = CartLine{Product: ls[i].Product.Clone(), Quantity: ls[i].Quantity}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// CheckUniqueIDs returns ErrDuplicateID naming the first id seen twice.
func CheckUniqueIDs(ps []Product) error {
	seen := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateID, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
