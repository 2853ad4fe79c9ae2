package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/niksmo/storefront/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := config.LoadFile(writeConfig(t, "http_server_addr: \":9090\"\n"))
		require.NoError(t, err)

		assert.Equal(t, ":9090", cfg.HTTPServerAddr)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.Equal(t, "leveldb", cfg.LocalStore.Driver)
		assert.Equal(t, "store-storage", cfg.LocalStore.Key)
		assert.Equal(t, "file", cfg.Documents.Driver)
		assert.Equal(t, 8, cfg.Catalog.PageSize)
		assert.Equal(t, 1, cfg.Mirror.MaxAttempts)
		assert.Equal(t, 5*time.Second, cfg.Mirror.Timeout)
		assert.Equal(t, time.Second, cfg.Countdown.Interval)
		assert.Equal(t, "storefront-products", cfg.Broker.ProductsTopic)
		assert.False(t, cfg.TLS.Enabled())
	})

	t.Run("Values", func(t *testing.T) {
		cfg, err := config.LoadFile(writeConfig(t, `
log_level: debug
mirror:
  url: http://remote/api/save-store
  max_attempts: 3
  batch_delay: 50ms
broker:
  enabled: true
  seed_brokers: [a:9092, b:9092]
  schema_registry_urls: [http://sr:8081]
`))
		require.NoError(t, err)

		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
		assert.Equal(t, "http://remote/api/save-store", cfg.Mirror.URL)
		assert.Equal(t, 3, cfg.Mirror.MaxAttempts)
		assert.Equal(t, 50*time.Millisecond, cfg.Mirror.BatchDelay)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Broker.SeedBrokers)
	})

	t.Run("EnvOverride", func(t *testing.T) {
		t.Setenv("STOREFRONT_CATALOG_PAGE_SIZE", "12")
		cfg, err := config.LoadFile(writeConfig(t, "catalog:\n  page_size: 4\n"))
		require.NoError(t, err)
		assert.Equal(t, 12, cfg.Catalog.PageSize)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		_, err := config.LoadFile(writeConfig(t, "no_such_key: 1\n"))
		assert.Error(t, err)
	})

	t.Run("Invalid", func(t *testing.T) {
		cases := map[string]string{
			"LocalDriver":     "local_store:\n  driver: bolt\n",
			"RedisWithoutURL": "local_store:\n  driver: redis\n",
			"PostgresNoDSN":   "documents:\n  driver: postgres\n",
			"Attempts":        "mirror:\n  max_attempts: 0\n",
			"RetryNoBackoff":  "mirror:\n  max_attempts: 2\n  backoff: 0s\n",
			"MirrorTimeout":   "mirror:\n  timeout: 0s\n",
			"PageSize":        "catalog:\n  page_size: 0\n",
			"BrokerNoSeeds":   "broker:\n  enabled: true\n",
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := config.LoadFile(writeConfig(t, content))
				assert.Error(t, err)
			})
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
