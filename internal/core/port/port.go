package port

import (
	"context"
	"time"

	"github.com/niksmo/storefront/internal/core/catalog"
	"github.com/niksmo/storefront/internal/core/countdown"
	"github.com/niksmo/storefront/internal/core/domain"
)

type closer interface {
	Close()
}

// Inbound.

type ProductsReader interface {
	Now() time.Time
	Products() []domain.Product
	Product(id string) (domain.Product, error)
	ExportJSON() ([]byte, error)
}

type ProductsEditor interface {
	SetProducts(ctx context.Context, ps []domain.Product) error
	AddProduct(ctx context.Context, p domain.Product) error
	UpdateProduct(ctx context.Context, p domain.Product)
	DeleteProduct(ctx context.Context, id string)
}

type CartEditor interface {
	Cart() []domain.CartLine
	Total() float64
	AddToCart(ctx context.Context, p domain.Product)
	RemoveFromCart(ctx context.Context, id string, decrementOnly bool)
}

type FiltersSetter interface {
	Filters() domain.Filter
	SetFilters(f domain.Filter)
}

type CatalogBrowser interface {
	Browse(page int) catalog.Result
	Facets() catalog.Facets
}

type CheckoutMaker interface {
	Checkout(d domain.Delivery) (domain.Order, error)
}

type CountdownWatcher interface {
	Watch(ctx context.Context, productID string, endsAt time.Time) <-chan countdown.Tick
}

// Outbound.

// A SnapshotStore is the durable local copy of products and cart.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) (snap domain.Snapshot, ok bool, err error)
	SaveSnapshot(ctx context.Context, snap domain.Snapshot) error
}

// A Mirror receives best-effort copies of the product document.
type Mirror interface {
	MirrorDocument(ctx context.Context, doc domain.Document) error
}

// A DocumentWriter is the server side of the remote persistence endpoint.
type DocumentWriter interface {
	WriteDocument(ctx context.Context, doc domain.Document) error
}

type DocumentScheduler interface {
	Schedule(doc domain.Document)
}

type ProductsPublisher interface {
	Mirror
	closer
}
