package catalog

import "github.com/niksmo/storefront/internal/core/domain"

// Facets lists the distinct values a filter can be set to.
type Facets struct {
	Categories []string
	Brands     []string
	Colors     []string
	Sizes      []string
}

func BuildFacets(products []domain.Product) Facets {
	var f Facets
	categories, brands, colors, sizes := newSet(), newSet(), newSet(), newSet()
	for _, p := range products {
		f.Categories = categories.add(f.Categories, p.Category)
		f.Brands = brands.add(f.Brands, p.Brand)
		for _, c := range p.Colors() {
			f.Colors = colors.add(f.Colors, c)
		}
		for _, s := range p.Sizes() {
			f.Sizes = sizes.add(f.Sizes, s)
		}
	}
	return f
}

type set map[string]struct{}

func newSet() set { return make(set) }

// add appends v to dst once, in first-seen order. Empty values are skipped.
func (s set) add(dst []string, v string) []string {
	if v == "" {
		return dst
	}
	if _, ok := s[v]; ok {
		return dst
	}
	s[v] = struct{}{}
	return append(dst, v)
}
