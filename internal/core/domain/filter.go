package domain

type SortKey string

const (
	SortNone      SortKey = ""
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortNone, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc:
		return true
	}
	return false
}

// A Filter narrows and orders the catalog.
// An empty field puts no constraint on its dimension.
type Filter struct {
	Search   string
	Category string
	Brand    string
	Color    string
	Size     string
	SortBy   SortKey
}
