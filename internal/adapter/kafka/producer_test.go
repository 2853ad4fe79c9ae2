package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type MockProducerClient struct {
	mock.Mock
}

func (m *MockProducerClient) ProduceSync(
	ctx context.Context, rs ...*kgo.Record,
) kgo.ProduceResults {
	args := m.Called(ctx, rs)
	res := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		res = append(res, kgo.ProduceResult{Record: r, Err: args.Error(0)})
	}
	return res
}

func (m *MockProducerClient) Close() {
	m.Called()
}

type encoderFunc func(v any) ([]byte, error)

func (f encoderFunc) Encode(v any) ([]byte, error) { return f(v) }

func idEncoder() Encoder {
	return encoderFunc(func(v any) ([]byte, error) {
		return []byte("v:" + v.(schema.ProductV1).ID), nil
	})
}

func recordsOf(t *testing.T, cl *MockProducerClient, call int) map[string][]byte {
	t.Helper()
	rs := cl.Calls[call].Arguments.Get(1).([]*kgo.Record)
	out := make(map[string][]byte, len(rs))
	for _, r := range rs {
		out[string(r.Key)] = r.Value
	}
	return out
}

func TestProductsProducer(t *testing.T) {
	doc := func(ids ...string) domain.Document {
		var d domain.Document
		for _, id := range ids {
			d.Products = append(d.Products, domain.Product{ID: id, Name: id})
		}
		return d
	}

	t.Run("KeyedByID", func(t *testing.T) {
		cl := new(MockProducerClient)
		cl.On("ProduceSync", mock.Anything, mock.Anything).Return(nil)

		p, err := NewProductsProducer(ProducerWithClientOpt(cl), ProducerEncoderOpt(idEncoder()))
		require.NoError(t, err)

		require.NoError(t, p.MirrorDocument(t.Context(), doc("a", "b")))
		got := recordsOf(t, cl, 0)
		assert.Equal(t, map[string][]byte{"a": []byte("v:a"), "b": []byte("v:b")}, got)
	})

	t.Run("TombstoneForRemoved", func(t *testing.T) {
		cl := new(MockProducerClient)
		cl.On("ProduceSync", mock.Anything, mock.Anything).Return(nil)

		p, err := NewProductsProducer(ProducerWithClientOpt(cl), ProducerEncoderOpt(idEncoder()))
		require.NoError(t, err)

		require.NoError(t, p.MirrorDocument(t.Context(), doc("a", "b")))
		require.NoError(t, p.MirrorDocument(t.Context(), doc("b")))

		got := recordsOf(t, cl, 1)
		require.Len(t, got, 2)
		assert.Equal(t, []byte("v:b"), got["b"])
		v, ok := got["a"]
		assert.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("FailedPublishKeepsPreviousState", func(t *testing.T) {
		cl := new(MockProducerClient)
		errBroker := errors.New("broker down")
		cl.On("ProduceSync", mock.Anything, mock.Anything).Return(nil).Once()
		cl.On("ProduceSync", mock.Anything, mock.Anything).Return(errBroker).Once()
		cl.On("ProduceSync", mock.Anything, mock.Anything).Return(nil)

		p, err := NewProductsProducer(ProducerWithClientOpt(cl), ProducerEncoderOpt(idEncoder()))
		require.NoError(t, err)

		require.NoError(t, p.MirrorDocument(t.Context(), doc("a")))
		assert.ErrorIs(t, p.MirrorDocument(t.Context(), doc()), errBroker)
		require.NoError(t, p.MirrorDocument(t.Context(), doc()))

		got := recordsOf(t, cl, 2)
		v, ok := got["a"]
		assert.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("EmptyDocumentNothingToSend", func(t *testing.T) {
		cl := new(MockProducerClient)
		p, err := NewProductsProducer(ProducerWithClientOpt(cl), ProducerEncoderOpt(idEncoder()))
		require.NoError(t, err)

		require.NoError(t, p.MirrorDocument(t.Context(), doc()))
		cl.AssertNotCalled(t, "ProduceSync", mock.Anything, mock.Anything)
	})

	t.Run("EncodeError", func(t *testing.T) {
		cl := new(MockProducerClient)
		errEncode := errors.New("bad value")
		enc := encoderFunc(func(any) ([]byte, error) { return nil, errEncode })

		p, err := NewProductsProducer(ProducerWithClientOpt(cl), ProducerEncoderOpt(enc))
		require.NoError(t, err)

		assert.ErrorIs(t, p.MirrorDocument(t.Context(), doc("a")), errEncode)
		cl.AssertNotCalled(t, "ProduceSync", mock.Anything, mock.Anything)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		cl := new(MockProducerClient)
		p, err := NewProductsProducer(ProducerWithClientOpt(cl), ProducerEncoderOpt(idEncoder()))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		assert.ErrorIs(t, p.MirrorDocument(ctx, doc("a")), context.Canceled)
	})

	t.Run("Close", func(t *testing.T) {
		cl := new(MockProducerClient)
		cl.On("Close").Return()
		p, err := NewProductsProducer(ProducerWithClientOpt(cl), ProducerEncoderOpt(idEncoder()))
		require.NoError(t, err)

		p.Close()
		cl.AssertExpectations(t)
	})

	t.Run("TooFewOpts", func(t *testing.T) {
		assert.Panics(t, func() {
			_, _ = NewProductsProducer(ProducerEncoderOpt(idEncoder()))
		})
	})
}

func TestProductToSchemaV1(t *testing.T) {
	pct := 15
	ends := time.Date(2030, 6, 1, 12, 0, 0, 0, time.FixedZone("EET", 2*3600))
	p := domain.Product{
		ID: "p1", Name: "Boots", Brand: "Nordic", Price: 80, Category: "Shoes",
		Color: "Black", Size: "42", Description: "warm",
		SpecialOffer: true, DiscountPercentage: &pct, OfferEndsAt: &ends,
	}

	s := productToSchemaV1(p)
	assert.Equal(t, "p1", s.ID)
	assert.Equal(t, 80.0, s.Price)
	assert.NotNil(t, s.Images)
	require.NotNil(t, s.DiscountPercentage)
	assert.Equal(t, 15, *s.DiscountPercentage)
	require.NotNil(t, s.OfferEndsAt)
	assert.Equal(t, time.UTC, s.OfferEndsAt.Location())
	assert.True(t, ends.Equal(*s.OfferEndsAt))

	pct = 50
	assert.Equal(t, 15, *s.DiscountPercentage, "schema value must not alias the product")
}
