package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/cache"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/cart"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/catalog"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/config"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/consumer"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/db"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/discovery"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/handlers"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/identity"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/logging"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/messaging"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/notifications"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/orders"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/publisher"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer closeStore()

	catalogService := catalog.NewService(store, logger.Named("catalog"))
	if cfg.SeedCatalog {
		if _, err := catalogService.Seed(ctx, catalog.SeedListings()); err != nil {
			logger.Fatal("Failed to seed catalog", zap.Error(err))
		}
	}

	carts := cart.NewAggregator(store, logger.Named("cart"))
	inbox := notifications.NewInbox(store, logger.Named("notifications"))

	var recorderOpts []orders.Option
	if cfg.RabbitMQEnabled {
		// Connect to RabbitMQ
		rabbitMQ, err := messaging.NewRabbitMQ(cfg.RabbitMQHost, cfg.RabbitMQPort, cfg.RabbitMQUser, cfg.RabbitMQPassword, logger)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbitMQ.Close()

		orderPublisher, err := publisher.NewOrderPublisher(rabbitMQ)
		if err != nil {
			logger.Fatal("Failed to create publisher", zap.Error(err))
		}
		recorderOpts = append(recorderOpts, orders.WithPublisher(orderPublisher))

		// Start event consumer
		messages, err := rabbitMQ.Consume(publisher.OrderCreatedQueue)
		if err != nil {
			logger.Fatal("Failed to consume messages", zap.Error(err))
		}
		salesConsumer := consumer.NewSalesConsumer(inbox, logger.Named("consumer"))
		go salesConsumer.ProcessOrderCreated(ctx, messages)
	} else {
		logger.Warn("⚠️ RabbitMQ disabled, seller notifications are recorded in-process")
		recorderOpts = append(recorderOpts, orders.WithPublisher(inlinePublisher{inbox: inbox}))
	}

	recorder := orders.NewRecorder(catalogService, carts, store, logger.Named("orders"), recorderOpts...)

	auth, err := identity.NewMockIdentity(store, cfg.EmailPattern, logger.Named("identity"))
	if err != nil {
		logger.Fatal("Failed to create identity provider", zap.Error(err))
	}
	sessions := identity.NewSessions(store, cfg.JWTSecret, cfg.SessionTTL, logger.Named("identity"))

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Deps{
		ServiceName: cfg.ServiceName,
		Logger:      logger.Named("http"),
		Catalog:     catalogService,
		Carts:       carts,
		Orders:      recorder,
		Inbox:       inbox,
		Auth:        auth,
		Sessions:    sessions,
		Limiter:     handlers.NewLoginLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst),
	})

	if cfg.ConsulEnabled {
		// Connect to Consul
		consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Consul", zap.Error(err))
		}

		// Register with Consul
		err = consul.Register(discovery.ServiceConfig{
			Name: cfg.ServiceName,
			ID:   cfg.ServiceID,
			Port: cfg.ServicePort,
			Tags: []string{"api", "marketplace"},
		})
		if err != nil {
			logger.Fatal("Failed to register service", zap.Error(err))
		}

		// Deregister on shutdown
		defer func() {
			if err := consul.Deregister(cfg.ServiceID); err != nil {
				logger.Warn("⚠️ Failed to deregister", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 Marketplace API starting", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Graceful shutdown failed", zap.Error(err))
	}
}

// openStore builds the snapshot store for the configured backend and returns
// the function that releases its connections.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		// Connect to Redis
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL, logger)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedisStore(redisCache, cfg.RedisPrefix), func() { redisCache.Close() }, nil

	case config.BackendPostgres:
		// Connect to PostgreSQL
		database, err := db.NewPostgresDB(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}

		var store storage.Store = db.NewSnapshotRepository(database)
		if !cfg.CacheEnabled {
			return store, func() { database.Close() }, nil
		}

		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL, logger)
		if err != nil {
			logger.Warn("⚠️ Redis unavailable, serving snapshots straight from PostgreSQL", zap.Error(err))
			return store, func() { database.Close() }, nil
		}
		// Snapshots may have changed while this process was down.
		if err := redisCache.DeleteByPattern(ctx, "snapshot:*"); err != nil {
			logger.Warn("⚠️ Failed to flush snapshot cache", zap.Error(err))
		}
		cached := db.NewCachedSnapshotRepository(store, redisCache, logger.Named("cache"))
		return cached, func() {
			redisCache.Close()
			database.Close()
		}, nil

	default:
		logger.Warn("⚠️ Using in-memory storage, data is lost on restart")
		return storage.NewMemory(), func() {}, nil
	}
}
