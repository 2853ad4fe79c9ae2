package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/niksmo/storefront/internal/core/catalog"
	"github.com/niksmo/storefront/internal/core/codec"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.ProductsReader = (*Store)(nil)
var _ port.ProductsEditor = (*Store)(nil)
var _ port.CartEditor = (*Store)(nil)
var _ port.FiltersSetter = (*Store)(nil)
var _ port.CatalogBrowser = (*Store)(nil)
var _ port.CheckoutMaker = (*Store)(nil)

type StoreOpt func(*storeOpts) error

type storeOpts struct {
	seed      []domain.Product
	snapshots port.SnapshotStore
	scheduler port.DocumentScheduler
	pageSize  int
	now       func() time.Time
	checkout  checkoutOpts
}

func SeedOpt(products []domain.Product) StoreOpt {
	return func(o *storeOpts) error {
		o.seed = domain.CloneProducts(products)
		return nil
	}
}

func SnapshotStoreOpt(ss port.SnapshotStore) StoreOpt {
	return func(o *storeOpts) error {
		if ss == nil {
			return errors.New("snapshot store is nil")
		}
		o.snapshots = ss
		return nil
	}
}

func DocumentSchedulerOpt(ds port.DocumentScheduler) StoreOpt {
	return func(o *storeOpts) error {
		if ds == nil {
			return errors.New("document scheduler is nil")
		}
		o.scheduler = ds
		return nil
	}
}

func PageSizeOpt(size int) StoreOpt {
	return func(o *storeOpts) error {
		if size < 1 {
			return fmt.Errorf("invalid page size %d", size)
		}
		o.pageSize = size
		return nil
	}
}

func ClockOpt(now func() time.Time) StoreOpt {
	return func(o *storeOpts) error {
		if now == nil {
			return errors.New("clock is nil")
		}
		o.now = now
		return nil
	}
}

// A Store is the single source of truth for products, cart and filters.
//
// Every method is one critical section. Product mutations write the local
// snapshot before returning and then hand the product document to the
// scheduler for the remote mirror.
type Store struct {
	mu       sync.Mutex
	products []domain.Product
	cart     []domain.CartLine
	filters  domain.Filter

	snapshots port.SnapshotStore
	scheduler port.DocumentScheduler
	pageSize  int
	clock     func() time.Time
	checkout  checkoutOpts
}

// NewStore creates the store from the seed products, or from the durable
// snapshot when one exists.
func NewStore(ctx context.Context, opts ...StoreOpt) (*Store, error) {
	const op = "NewStore"
	log := slog.With("op", op)

	options := storeOpts{
		pageSize: catalog.DefaultPageSize,
		now:      time.Now,
		checkout: defaultCheckoutOpts(),
	}
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s := &Store{
		products:  options.seed,
		snapshots: options.snapshots,
		scheduler: options.scheduler,
		pageSize:  options.pageSize,
		clock:     options.now,
		checkout:  options.checkout,
	}

	if s.snapshots == nil {
		log.Info("store is seeded", "nProducts", len(s.products))
		return s, nil
	}

	snap, ok, err := s.snapshots.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		log.Info("no stored data found, using seed", "nProducts", len(s.products))
		return s, nil
	}

	s.products = snap.Products
	s.cart = snap.Cart
	log.Info("store is rehydrated from snapshot",
		"nProducts", len(s.products), "nCartLines", len(s.cart))
	return s, nil
}

// Now is the time offers are evaluated at.
func (s *Store) Now() time.Time {
	return s.clock()
}

func (s *Store) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneProducts(s.products)
}

func (s *Store) Product(id string) (domain.Product, error) {
	const op = "Store.Product"

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Product{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return s.products[i].Clone(), nil
}

// SetProducts replaces the product collection. A list repeating an id
// is rejected and the collection is left unchanged.
func (s *Store) SetProducts(ctx context.Context, ps []domain.Product) error {
	const op = "Store.SetProducts"

	if err := domain.CheckUniqueIDs(ps); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = domain.CloneProducts(ps)
	s.persist(ctx, true)
	return nil
}

// AddProduct appends p. Callers validate p beforehand.
// An id already in the collection yields domain.ErrDuplicateID.
func (s *Store) AddProduct(ctx context.Context, p domain.Product) error {
	const op = "Store.AddProduct"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(p.ID) >= 0 {
		return fmt.Errorf("%s: %w: %q", op, domain.ErrDuplicateID, p.ID)
	}

	s.products = append(s.products, p.Clone())
	s.persist(ctx, true)
	return nil
}

// UpdateProduct replaces the product with the same id.
// An unknown id leaves the collection unchanged.
func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(p.ID); i >= 0 {
		s.products[i] = p.Clone()
	}
	s.persist(ctx, true)
}

// DeleteProduct removes the product with id, if any.
func (s *Store) DeleteProduct(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = slices.DeleteFunc(s.products, func(p domain.Product) bool {
		return p.ID == id
	})
	s.persist(ctx, true)
}

func (s *Store) Cart() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneCart(s.cart)
}

// AddToCart increments the line for p, or adds one with quantity 1.
func (s *Store) AddToCart(ctx context.Context, p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.cartIndexOf(p.ID); i >= 0 {
		s.cart[i].Quantity++
	} else {
		s.cart = append(s.cart, domain.CartLine{Product: p.Clone(), Quantity: 1})
	}
	s.persist(ctx, false)
}

// RemoveFromCart decrements the line when decrementOnly is set and its
// quantity is above one. Otherwise the line is removed.
func (s *Store) RemoveFromCart(
	ctx context.Context, id string, decrementOnly bool,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.cartIndexOf(id)
	if i < 0 {
		return
	}
	if decrementOnly && s.cart[i].Quantity > 1 {
		s.cart[i].Quantity--
	} else {
		s.cart = slices.Delete(s.cart, i, i+1)
	}
	s.persist(ctx, false)
}

func (s *Store) Filters() domain.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// SetFilters replaces the filter set. Fields are not merged.
func (s *Store) SetFilters(f domain.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
}

// Browse runs the catalog pipeline with the current filters.
func (s *Store) Browse(page int) catalog.Result {
	s.mu.Lock()
	products := domain.CloneProducts(s.products)
	filters := s.filters
	s.mu.Unlock()

	return catalog.Run(products, filters, page, s.pageSize, s.clock())
}

func (s *Store) Facets() catalog.Facets {
	return catalog.BuildFacets(s.Products())
}

// ExportJSON returns the indented product document.
func (s *Store) ExportJSON() ([]byte, error) {
	const op = "Store.ExportJSON"

	b, err := codec.MarshalDocument(domain.Document{Products: s.Products()})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// ImportJSON replaces the products with the ones in a document
// produced by ExportJSON.
func (s *Store) ImportJSON(ctx context.Context, data []byte) error {
	const op = "Store.ImportJSON"

	doc, err := codec.UnmarshalDocument(data)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.SetProducts(ctx, doc.Products); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.products, func(p domain.Product) bool {
		return p.ID == id
	})
}

func (s *Store) cartIndexOf(id string) int {
	return slices.IndexFunc(s.cart, func(l domain.CartLine) bool {
		return l.Product.ID == id
	})
}

// persist writes the snapshot and, when mirror is set, schedules the
// remote copy of the product document. Callers hold s.mu.
func (s *Store) persist(ctx context.Context, mirror bool) {
	const op = "Store.persist"
	log := slog.With("op", op)

	if s.snapshots != nil {
		snap := domain.Snapshot{
			Products: domain.CloneProducts(s.products),
			Cart:     domain.CloneCart(s.cart),
		}
		if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
			log.Error("failed to save local snapshot", "err", err)
		}
	}

	if mirror && s.scheduler != nil {
		s.scheduler.Schedule(domain.Document{
			Products: domain.CloneProducts(s.products),
		})
	}
}
