package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "STOREFRONT_CONFIG_FILE"
	envPrefix         = "STOREFRONT"
)

type localStore struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	RedisURL string `mapstructure:"redis_url"`
	Key      string `mapstructure:"key"`
}

type documents struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type mirror struct {
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	BatchDelay  time.Duration `mapstructure:"batch_delay"`
}

type broker struct {
	Enabled            bool     `mapstructure:"enabled"`
	SeedBrokers        []string `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string `mapstructure:"schema_registry_urls"`
	ProductsTopic      string   `mapstructure:"products_topic"`
}

type catalog struct {
	PageSize int `mapstructure:"page_size"`
}

type checkout struct {
	Phone    string `mapstructure:"phone"`
	Currency string `mapstructure:"currency"`
}

type countdown struct {
	Interval time.Duration `mapstructure:"interval"`
}

type tlsFiles struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

func (t tlsFiles) Enabled() bool {
	return t.CA != "" && t.Cert != "" && t.Key != ""
}

type Config struct {
	LogLevel       slog.Level    `mapstructure:"log_level"`
	HTTPServerAddr string        `mapstructure:"http_server_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SeedFile       string        `mapstructure:"seed_file"`
	SQLDB          string        `mapstructure:"sql_db"`
	LocalStore     localStore    `mapstructure:"local_store"`
	Documents      documents     `mapstructure:"documents"`
	Mirror         mirror        `mapstructure:"mirror"`
	Broker         broker        `mapstructure:"broker"`
	Catalog        catalog       `mapstructure:"catalog"`
	Checkout       checkout      `mapstructure:"checkout"`
	Countdown      countdown     `mapstructure:"countdown"`
	TLS            tlsFiles      `mapstructure:"tls"`
}

func Load() Config {
	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFile reads the YAML file at path. STOREFRONT_* environment
// variables override file values, e.g. STOREFRONT_MIRROR_URL.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_server_addr", ":8080")
	v.SetDefault("request_timeout", 5*time.Second)
	v.SetDefault("seed_file", "data/store.json")
	v.SetDefault("sql_db", "")
	v.SetDefault("local_store.driver", "leveldb")
	v.SetDefault("local_store.path", "data/local")
	v.SetDefault("local_store.redis_url", "")
	v.SetDefault("local_store.key", "store-storage")
	v.SetDefault("documents.driver", "file")
	v.SetDefault("documents.path", "data/store.json")
	v.SetDefault("mirror.url", "")
	v.SetDefault("mirror.timeout", 5*time.Second)
	v.SetDefault("mirror.max_attempts", 1)
	v.SetDefault("mirror.backoff", 200*time.Millisecond)
	v.SetDefault("mirror.batch_delay", time.Duration(0))
	v.SetDefault("broker.enabled", false)
	v.SetDefault("broker.seed_brokers", []string{})
	v.SetDefault("broker.schema_registry_urls", []string{})
	v.SetDefault("broker.products_topic", "storefront-products")
	v.SetDefault("catalog.page_size", 8)
	v.SetDefault("checkout.phone", "201024911062")
	v.SetDefault("checkout.currency", "EGP")
	v.SetDefault("countdown.interval", time.Second)
	v.SetDefault("tls.ca", "")
	v.SetDefault("tls.cert", "")
	v.SetDefault("tls.key", "")
}

func (c Config) validate() error {
	var errs []error

	switch c.LocalStore.Driver {
	case "leveldb":
		if c.LocalStore.Path == "" {
			errs = append(errs, errors.New("local_store.path: required for leveldb"))
		}
	case "redis":
		if c.LocalStore.RedisURL == "" {
			errs = append(errs, errors.New("local_store.redis_url: required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("local_store.driver: unknown %q", c.LocalStore.Driver))
	}

	switch c.Documents.Driver {
	case "file":
		if c.Documents.Path == "" {
			errs = append(errs, errors.New("documents.path: required for file"))
		}
	case "postgres":
		if c.SQLDB == "" {
			errs = append(errs, errors.New("sql_db: required for postgres documents"))
		}
	default:
		errs = append(errs, fmt.Errorf("documents.driver: unknown %q", c.Documents.Driver))
	}

	if c.Mirror.MaxAttempts < 1 {
		errs = append(errs, errors.New("mirror.max_attempts: must be at least 1"))
	}
	if c.Mirror.MaxAttempts > 1 && c.Mirror.Backoff <= 0 {
		errs = append(errs, errors.New("mirror.backoff: must be positive when retrying"))
	}
	if c.Mirror.Timeout <= 0 {
		errs = append(errs, errors.New("mirror.timeout: must be positive"))
	}
	if c.Catalog.PageSize < 1 {
		errs = append(errs, errors.New("catalog.page_size: must be at least 1"))
	}
	if c.Broker.Enabled {
		if len(c.Broker.SeedBrokers) == 0 {
			errs = append(errs, errors.New("broker.seed_brokers: required when enabled"))
		}
		if len(c.Broker.SchemaRegistryURLs) == 0 {
			errs = append(errs, errors.New("broker.schema_registry_urls: required when enabled"))
		}
	}

	return errors.Join(errs...)
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	RequestTimeout=%s
	SeedFile=%q
	SQLDB=%q

	LocalStore:
	Driver=%q
	Path=%q
	Key=%q

	Documents:
	Driver=%q
	Path=%q

	Mirror:
	URL=%q
	Timeout=%s
	MaxAttempts=%d
	BatchDelay=%s

	Broker:
	Enabled=%t
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	ProductsTopic=%q

	Catalog:
	PageSize=%d
	Countdown:
	Interval=%s
	TLS=%t

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.RequestTimeout,
		c.SeedFile,
		redactDSN(c.SQLDB),
		c.LocalStore.Driver,
		c.LocalStore.Path,
		c.LocalStore.Key,
		c.Documents.Driver,
		c.Documents.Path,
		c.Mirror.URL,
		c.Mirror.Timeout,
		c.Mirror.MaxAttempts,
		c.Mirror.BatchDelay,
		c.Broker.Enabled,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.ProductsTopic,
		c.Catalog.PageSize,
		c.Countdown.Interval,
		c.TLS.Enabled(),
	)
}

// redactDSN hides the password of a postgres URL.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPass := strings.Cut(userinfo, ":")
	if !hasPass {
		return dsn
	}
	return scheme + "://" + user + ":***@" + host
}
