package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedJSON = `{
  "products": [
    {"id": "p1", "name": "Linen Shirt", "brand": "Acme", "price": 10, "category": "Shirts", "images": []}
  ]
}`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()

	seed := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(seedJSON), 0o600))

	var cfg config.Config
	cfg.HTTPServerAddr = "127.0.0.1:0"
	cfg.RequestTimeout = time.Second
	cfg.SeedFile = seed
	cfg.LocalStore.Driver = "leveldb"
	cfg.LocalStore.Path = filepath.Join(dir, "local")
	cfg.LocalStore.Key = "store-storage"
	cfg.Documents.Driver = "file"
	cfg.Documents.Path = filepath.Join(dir, "store.json")
	cfg.Mirror.Timeout = time.Second
	cfg.Mirror.MaxAttempts = 1
	cfg.Catalog.PageSize = 8
	cfg.Countdown.Interval = 10 * time.Millisecond
	return cfg
}

func TestApp(t *testing.T) {
	cfg := testConfig(t)

	t.Run("SeedFallback", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		a := New(ctx, cfg)
		ps := a.store.Products()
		require.Len(t, ps, 1)
		assert.Equal(t, "p1", ps[0].ID)
		assert.Empty(t, a.mirrors)

		a.Run(cancel)
		a.store.DeleteProduct(ctx, "p1")

		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		a.Close(closeCtx)
	})

	t.Run("SnapshotWinsOnRestart", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		a := New(ctx, cfg)
		assert.Empty(t, a.store.Products())

		a.Run(cancel)
		closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
		defer closeCancel()
		a.Close(closeCtx)
	})
}

func TestAppMirrorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Mirror.URL = srv.URL
	cfg.Mirror.Timeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	a := New(ctx, cfg)
	require.Len(t, a.mirrors, 1)
	a.Run(cancel)

	start := time.Now()
	err := a.mirrors[0].MirrorDocument(context.Background(), domain.Document{})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
	defer closeCancel()
	a.Close(closeCtx)
}
