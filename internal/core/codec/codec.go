// Package codec is the JSON shape of the catalog documents: the seed file,
// the remote mirror payload and the durable local snapshot.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
)

type (
	Product struct {
		ID                 string     `json:"id"`
		Name               string     `json:"name"`
		Brand              string     `json:"brand"`
		Price              float64    `json:"price"`
		Category           string     `json:"category"`
		Color              string     `json:"color"`
		Size               string     `json:"size"`
		Images             []string   `json:"images"`
		Description        string     `json:"description"`
		SpecialOffer       bool       `json:"specialOffer,omitempty"`
		DiscountPercentage *int       `json:"discountPercentage,omitempty"`
		OfferEndsAt        *time.Time `json:"offerEndsAt,omitempty"`
	}

	CartLine struct {
		Product  Product `json:"product"`
		Quantity int     `json:"quantity"`
	}

	Document struct {
		Products []Product `json:"products"`
	}

	Snapshot struct {
		Products []Product  `json:"products"`
		Cart     []CartLine `json:"cart"`
	}
)

func FromProduct(p domain.Product) Product {
	v := Product{
		ID:           p.ID,
		Name:         p.Name,
		Brand:        p.Brand,
		Price:        p.Price,
		Category:     p.Category,
		Color:        p.Color,
		Size:         p.Size,
		Images:       p.Images,
		Description:  p.Description,
		SpecialOffer: p.SpecialOffer,
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	if p.DiscountPercentage != nil {
		pct := *p.DiscountPercentage
		v.DiscountPercentage = &pct
	}
	if p.OfferEndsAt != nil {
		t := p.OfferEndsAt.UTC()
		v.OfferEndsAt = &t
	}
	return v
}

func (v Product) ToDomain() domain.Product {
	return domain.Product{
		ID:                 v.ID,
		Name:               v.Name,
		Brand:              v.Brand,
		Price:              v.Price,
		Category:           v.Category,
		Color:              v.Color,
		Size:               v.Size,
		Images:             v.Images,
		Description:        v.Description,
		SpecialOffer:       v.SpecialOffer,
		DiscountPercentage: v.DiscountPercentage,
		OfferEndsAt:        v.OfferEndsAt,
	}.Clone()
}

func FromProducts(ps []domain.Product) []Product {
	out := make([]Product, len(ps))
	for i := range ps {
		out[i] = FromProduct(ps[i])
	}
	return out
}

func ToProducts(vs []Product) []domain.Product {
	out := make([]domain.Product, len(vs))
	for i := range vs {
		out[i] = vs[i].ToDomain()
	}
	return out
}

func FromDocument(doc domain.Document) Document {
	return Document{Products: FromProducts(doc.Products)}
}

func (v Document) ToDomain() domain.Document {
	return domain.Document{Products: ToProducts(v.Products)}
}

func FromSnapshot(snap domain.Snapshot) Snapshot {
	v := Snapshot{
		Products: FromProducts(snap.Products),
		Cart:     make([]CartLine, len(snap.Cart)),
	}
	for i, l := range snap.Cart {
		v.Cart[i] = CartLine{Product: FromProduct(l.Product), Quantity: l.Quantity}
	}
	return v
}

func (v Snapshot) ToDomain() domain.Snapshot {
	snap := domain.Snapshot{
		Products: ToProducts(v.Products),
		Cart:     make([]domain.CartLine, len(v.Cart)),
	}
	for i, l := range v.Cart {
		snap.Cart[i] = domain.CartLine{Product: l.Product.ToDomain(), Quantity: l.Quantity}
	}
	return snap
}

// MarshalDocument encodes doc as indented JSON.
func MarshalDocument(doc domain.Document) ([]byte, error) {
	const op = "codec.MarshalDocument"

	b, err := json.MarshalIndent(FromDocument(doc), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

func UnmarshalDocument(data []byte) (domain.Document, error) {
	const op = "codec.UnmarshalDocument"

	var v Document
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", op, err)
	}
	return v.ToDomain(), nil
}

func MarshalSnapshot(snap domain.Snapshot) ([]byte, error) {
	const op = "codec.MarshalSnapshot"

	b, err := json.Marshal(FromSnapshot(snap))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

func UnmarshalSnapshot(data []byte) (domain.Snapshot, error) {
	const op = "codec.UnmarshalSnapshot"

	var v Snapshot
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	return v.ToDomain(), nil
}
