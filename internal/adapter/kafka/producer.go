package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.ProductsPublisher = (*ProductsProducer)(nil)

// A ProductsProducer mirrors the product document to a compacted topic.
//
// Every product is one record keyed by its id. Products that disappeared
// since the last successful publish get a tombstone.
type ProductsProducer struct {
	cl      ProducerClient
	encoder Encoder

	mu        sync.Mutex
	published map[string]struct{}
}

func NewProductsProducer(
	opts ...ProducerOpt,
) (*ProductsProducer, error) {
	const op = "NewProductsProducer"

	if len(opts) != 2 {
		panic(fmt.Errorf("%s: %w", op, ErrTooFewOpts)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return &ProductsProducer{
		cl:        options.cl,
		encoder:   options.encoder,
		published: make(map[string]struct{}),
	}, nil
}

func (p *ProductsProducer) Close() {
	const op = "ProductsProducer.Close"
	log := slog.With("op", op)
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p *ProductsProducer) MirrorDocument(
	ctx context.Context, doc domain.Document,
) error {
	const op = "ProductsProducer.MirrorDocument"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rs, current, err := p.createRecords(doc.Products)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(rs) == 0 {
		return nil
	}

	if err := p.produce(ctx, rs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.published = current
	slog.Debug("document is published", "op", op, "nRecords", len(rs))
	return nil
}

func (p *ProductsProducer) createRecords(
	products []domain.Product,
) ([]*kgo.Record, map[string]struct{}, error) {
	const op = "ProductsProducer.createRecords"

	rs := make([]*kgo.Record, 0, len(products))
	current := make(map[string]struct{}, len(products))

	for _, product := range products {
		v, err := p.encoder.Encode(productToSchemaV1(product))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		rs = append(rs, &kgo.Record{Key: []byte(product.ID), Value: v})
		current[product.ID] = struct{}{}
	}

	for id := range p.published {
		if _, ok := current[id]; !ok {
			rs = append(rs, &kgo.Record{Key: []byte(id)})
		}
	}
	return rs, current, nil
}

func (p *ProductsProducer) produce(
	ctx context.Context, rs []*kgo.Record,
) error {
	const op = "ProductsProducer.produce"
	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
