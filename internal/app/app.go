package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/adapter"
	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/adapter/kafka"
	"github.com/niksmo/storefront/internal/adapter/mirror"
	"github.com/niksmo/storefront/internal/adapter/storage"
	"github.com/niksmo/storefront/internal/core/countdown"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
)

type documentStore interface {
	port.DocumentWriter
	ReadDocument(ctx context.Context) (domain.Document, error)
}

type storages struct {
	kv        storage.KV
	sqldb     *storage.SQLDB
	snapshots port.SnapshotStore
	documents documentStore
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	tlsCfg     *tls.Config
	storages   storages
	mirrors    []port.Mirror
	publisher  port.ProductsPublisher
	syncer     *service.Syncer
	store      *service.Store
	countdown  *countdown.Scheduler
	httpServer httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initTLS()
	app.initStorages()
	app.initMirrors()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initTLS() {
	const op = "App.initTLS"
	files := app.cfg.TLS
	if !files.Enabled() {
		return
	}
	tlsCfg, err := adapter.MakeTLSConfig(files.CA, files.Cert, files.Key)
	if err != nil {
		app.fallDown(op, err)
	}
	app.tlsCfg = tlsCfg
}

func (app *App) initStorages() {
	const op = "App.initStorages"
	ctx := app.ctx
	cfg := app.cfg

	var (
		kv  storage.KV
		err error
	)
	switch cfg.LocalStore.Driver {
	case "redis":
		kv, err = storage.NewRedis(ctx, cfg.LocalStore.RedisURL)
	default:
		kv, err = storage.NewLevelDB(cfg.LocalStore.Path)
	}
	if err != nil {
		app.fallDown(op, err)
	}
	app.storages.kv = kv
	app.storages.snapshots = storage.NewSnapshotRepository(kv, cfg.LocalStore.Key)

	switch cfg.Documents.Driver {
	case "postgres":
		sqldb, err := storage.NewSQLDB(ctx, cfg.SQLDB)
		if err != nil {
			app.fallDown(op, err)
		}
		app.storages.sqldb = &sqldb
		app.storages.documents = storage.NewProductsRepository(sqldb)
	default:
		docs, err := storage.NewFileDocuments(cfg.Documents.Path)
		if err != nil {
			app.fallDown(op, err)
		}
		app.storages.documents = docs
	}
}

func (app *App) initMirrors() {
	const op = "App.initMirrors"
	cfg := app.cfg

	if cfg.Mirror.URL != "" {
		cl := &http.Client{Timeout: cfg.Mirror.Timeout}
		if app.tlsCfg != nil {
			cl.Transport = &http.Transport{TLSClientConfig: app.tlsCfg}
		}
		m, err := mirror.NewHTTPMirror(cfg.Mirror.URL,
			mirror.ClientOpt(cl),
			mirror.RetryOpt(cfg.Mirror.MaxAttempts, cfg.Mirror.Backoff),
		)
		if err != nil {
			app.fallDown(op, err)
		}
		app.mirrors = append(app.mirrors, m)
	}

	if cfg.Broker.Enabled {
		app.publisher = app.newProductsProducer()
		app.mirrors = append(app.mirrors, app.publisher)
	}
}

func (app *App) newProductsProducer() *kafka.ProductsProducer {
	const op = "App.newProductsProducer"
	ctx := app.ctx
	broker := app.cfg.Broker

	srOpts := []sr.ClientOpt{sr.URLs(broker.SchemaRegistryURLs...)}
	if app.tlsCfg != nil {
		srOpts = append(srOpts, sr.HTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: app.tlsCfg},
		}))
	}
	srClient, err := sr.NewClient(srOpts...)
	if err != nil {
		app.fallDown(op, err)
	}

	productSerde, err := schema.NewSerdeProductV1(
		ctx,
		schema.SubjectOpt(broker.ProductsTopic+"-value"),
		schema.SchemaIdentifierOpt(schema.NewSchemaCreater(srClient)),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	productsProducer, err := kafka.NewProductsProducer(
		kafka.ProducerClientOpt(ctx, broker.SeedBrokers, broker.ProductsTopic, app.tlsCfg),
		kafka.ProducerEncoderOpt(productSerde),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	return productsProducer
}

func (app *App) initCoreService() {
	const op = "App.initCoreService"
	ctx := app.ctx
	cfg := app.cfg

	syncerOpts := []service.SyncerOpt{
		service.MirrorTimeoutOpt(cfg.Mirror.Timeout),
		service.BatchDelayOpt(cfg.Mirror.BatchDelay),
	}
	for _, m := range app.mirrors {
		syncerOpts = append(syncerOpts, service.MirrorOpt(m))
	}
	syncer, err := service.NewSyncer(syncerOpts...)
	if err != nil {
		app.fallDown(op, err)
	}
	app.syncer = syncer

	seed, err := app.readSeed()
	if err != nil {
		app.fallDown(op, err)
	}

	store, err := service.NewStore(
		ctx,
		service.SeedOpt(seed.Products),
		service.SnapshotStoreOpt(app.storages.snapshots),
		service.DocumentSchedulerOpt(syncer),
		service.PageSizeOpt(cfg.Catalog.PageSize),
		service.CheckoutOpt(cfg.Checkout.Phone, cfg.Checkout.Currency),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.store = store

	app.countdown = countdown.NewScheduler(
		countdown.IntervalOpt(cfg.Countdown.Interval),
	)
}

// readSeed reads the document store, falling back to the seed file when
// the store holds no products yet.
func (app *App) readSeed() (domain.Document, error) {
	const op = "App.readSeed"
	ctx := app.ctx

	doc, err := app.storages.documents.ReadDocument(ctx)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(doc.Products) != 0 || app.cfg.SeedFile == app.cfg.Documents.Path {
		return doc, nil
	}

	seedFile, err := storage.NewFileDocuments(app.cfg.SeedFile)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", op, err)
	}
	doc, err = seedFile.ReadDocument(ctx)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc, nil
}

func (app *App) initInboundAdapters() {
	cfg := app.cfg
	store := app.store

	api := http.NewServeMux()
	httphandler.RegisterCatalog(api, store, store)
	httphandler.RegisterProducts(api, store, store)
	httphandler.RegisterCart(api, store, store, store)
	httphandler.RegisterStore(api, app.storages.documents)

	router := httphandler.NewRouter(api, cfg.RequestTimeout)
	httphandler.RegisterCountdown(router, store, app.countdown)

	app.httpServer = httphandler.NewHTTPServer(cfg.HTTPServerAddr, router)
}

func (app *App) Run(stopFn context.CancelFunc) {
	go app.syncer.Run(app.ctx)
	go app.countdown.Run(app.ctx)
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.countdown.Close()
	app.httpServer.Close(ctx)
	app.syncer.Close(ctx)
	if app.publisher != nil {
		app.publisher.Close()
	}
	app.storages.kv.Close()
	if app.storages.sqldb != nil {
		app.storages.sqldb.Close()
	}

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
