package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/client"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/memory"
	mongoadapter "github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/mongo"
	natsadapter "github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/nats"
	redisadapter "github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/redis"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/metrics"
	grpcserver "github.com/Abdurahmanit/GroupProject/cart-service/internal/port/grpc"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/port/rest"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/service"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const metricsNamespace = "cart_service"

type App struct {
	cfg         *config.Config
	log         logger.Logger
	httpServer  *rest.Server
	grpcServer  *grpcserver.Server
	carts       *service.CartRegistry
	mongoClient *mongo.Client
	redisClient *redis.Client
	natsConn    *nats.Conn
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	appLogger, err := logger.NewZapLogger(logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
		Service:    "cart-service",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Infof("Configuration loaded: Env=%s, HTTP port: %s, gRPC port: %s, storage: %s",
		cfg.Env, cfg.HTTPServer.Port, cfg.GRPCServer.Port, cfg.Cart.Storage)

	a := &App{cfg: cfg, log: appLogger}

	if cfg.Cart.Storage == config.StorageRedis || cfg.ProductCache.Enabled {
		appLogger.Info("Initializing Redis client...")
		a.redisClient, err = redisadapter.NewClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Errorf("Failed to initialize Redis client: %v", err)
			return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		appLogger.Info("Redis client initialized successfully")
	}

	snapshots, err := a.snapshotRepository(ctx)
	if err != nil {
		a.closeClients(ctx)
		return nil, err
	}

	var productCache repository.ProductDetailCache
	if cfg.ProductCache.Enabled {
		productCache = redisadapter.NewProductDetailCacheRepository(a.redisClient)
	}

	catalogClient, err := client.NewCatalogClient(client.CatalogClientConfig{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
	}, nil)
	if err != nil {
		a.closeClients(ctx)
		return nil, fmt.Errorf("failed to initialize catalog client: %w", err)
	}
	catalogSvc := service.NewCatalogService(catalogClient, productCache, appLogger, service.CatalogServiceConfig{
		ProductCacheTTL: cfg.ProductCache.TTL,
	})

	m := metrics.NewMetricsManager(metricsNamespace)
	observers := []service.Observer{metricsObserver(m)}

	if cfg.NATS.Enabled {
		appLogger.Info("Connecting to NATS...")
		a.natsConn, err = natsadapter.NewConnection(cfg.NATS, appLogger)
		if err != nil {
			a.closeClients(ctx)
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publisher, err := natsadapter.NewNATSPublisher(a.natsConn)
		if err != nil {
			a.closeClients(ctx)
			return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
		}
		observers = append(observers, service.NewEventRelay(publisher, cfg.NATS.Subject, appLogger))
		appLogger.Infof("Cart events will be published to %s", cfg.NATS.Subject)
	}

	a.carts = service.NewCartRegistry(snapshots, appLogger, service.CartRegistryConfig{
		StorageKey:  cfg.Cart.StorageKey,
		SaveTimeout: cfg.Cart.SaveTimeout,
		LoadTimeout: cfg.Cart.LoadTimeout,
		Observers:   observers,
		OnRestore:   restoreRecorder(m),
		OnEvict:     evictionRecorder(m),
	})

	handler := rest.NewCartHandler(a.carts, catalogSvc, appLogger)
	a.httpServer = rest.NewServer(appLogger, cfg.HTTPServer.Port,
		cfg.HTTPServer.ReadTimeout, cfg.HTTPServer.WriteTimeout, rest.NewRouter(handler, m))
	a.grpcServer = grpcserver.NewServer(appLogger, cfg.GRPCServer.Port, cfg.GRPCServer.MaxConnectionIdle)
	appLogger.Info("HTTP and gRPC servers created")

	return a, nil
}

func (a *App) snapshotRepository(ctx context.Context) (repository.SnapshotRepository, error) {
	switch a.cfg.Cart.Storage {
	case config.StorageRedis:
		return redisadapter.NewSnapshotRepository(a.redisClient, a.cfg.Cart.TTL), nil
	case config.StorageMongo:
		a.log.Info("Initializing MongoDB client...")
		mongoClient, err := mongoadapter.NewClient(ctx, a.cfg.MongoDB)
		if err != nil {
			a.log.Errorf("Failed to initialize MongoDB client: %v", err)
			return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
		}
		a.mongoClient = mongoClient
		a.log.Info("MongoDB client initialized successfully")
		return mongoadapter.NewSnapshotRepository(mongoClient, a.cfg.MongoDB), nil
	case config.StorageMemory:
		a.log.Warn("Cart snapshots are kept in memory and will not survive a restart")
		return memory.NewSnapshotRepository(), nil
	default:
		return nil, fmt.Errorf("unknown cart storage backend %q", a.cfg.Cart.Storage)
	}
}

func metricsObserver(m *metrics.MetricsManager) service.Observer {
	return func(e service.Event) {
		m.CartMutationsTotal.WithLabelValues(string(e.Type)).Inc()
		if e.PersistErr != nil {
			m.SnapshotSaveFailuresTotal.Inc()
		}
	}
}

func restoreRecorder(m *metrics.MetricsManager) func(string, service.RestoreResult, int) {
	return func(_ string, result service.RestoreResult, active int) {
		m.SnapshotLoadsTotal.WithLabelValues(string(result)).Inc()
		m.ActiveCarts.Set(float64(active))
	}
}

func evictionRecorder(m *metrics.MetricsManager) func(int, int) {
	return func(_, active int) {
		m.ActiveCarts.Set(float64(active))
	}
}

// Run serves until SIGINT or SIGTERM, then shuts everything down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.httpServer.Start)
	g.Go(a.grpcServer.Start)
	g.Go(func() error {
		return a.carts.RunEviction(gctx, a.cfg.Cart.SweepEvery, a.cfg.Cart.IdleTimeout)
	})
	a.grpcServer.SetServing(true)
	a.log.Info("Cart service started")

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Shutting down application...")
		return a.shutdown()
	})

	err := g.Wait()
	a.log.Info("Application shut down")
	_ = a.log.Sync()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) shutdown() error {
	timeout := max(a.cfg.HTTPServer.TimeoutGraceful, a.cfg.GRPCServer.TimeoutGraceful) + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.grpcServer.SetServing(false)

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.grpcServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("grpc shutdown: %w", err))
	}
	a.closeClients(ctx)
	return errors.Join(errs...)
}

func (a *App) closeClients(ctx context.Context) {
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.log.Errorf("Error draining NATS connection: %v", err)
		}
	}

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed successfully")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}
}
