package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/server"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/service"
)

// store is an order repository plus whatever must be closed on shutdown.
type store struct {
	repository.OrderRepository
	close func(ctx context.Context) error
}

func main() {
	cfg := config.Load()
	logging.Configure(cfg.Log.Level, cfg.Log.Format)

	logger := logging.NewLoggerV2("storefront")
	logging.Infof("Starting storefront on port %d", cfg.Server.Port)

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	orders, err := openStore(startupCtx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open order store", logging.Fields{
			"driver": cfg.Database.Driver,
			"error":  err.Error(),
		})
	}

	orderCache, dedup, redisClient := initRedis(startupCtx, cfg, logger)

	var publisher events.Publisher = events.NoopPublisher{}
	var kafkaPublisher *events.KafkaPublisher
	if cfg.Features.EnableOrderEvents {
		kafkaPublisher = events.NewKafkaPublisher(cfg.Kafka, logging.NewLoggerV2("events"))
		publisher = kafkaPublisher
	}

	var notifier clients.Notifier = clients.NoopNotifier{}
	if cfg.Features.EnableEmailNotifications {
		ses, err := clients.NewSESNotifier(startupCtx, cfg.Email, logging.NewLoggerV2("notifier"))
		if err != nil {
			logger.Fatal("Failed to configure email notifier", logging.Fields{"error": err.Error()})
		}
		notifier = ses
	}

	paystack := clients.NewPaystackClient(cfg.Paystack, logging.NewLoggerV2("paystack"))

	orderService := service.NewOrderService(orders, orderCache, publisher, cfg)
	checkoutService := service.NewCheckoutService(paystack, cfg)
	webhookService := service.NewWebhookService(orders, dedup, paystack, publisher, notifier, cfg)

	h := handlers.NewHandlers(orderService, checkoutService, webhookService, orders, cfg)
	auth := middleware.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	srv := server.New(h, auth, cfg)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":             cfg.Server.Port,
			"driver":           cfg.Database.Driver,
			"order_caching":    orderCache != nil,
			"webhook_dedup":    dedup != nil,
			"order_events":     cfg.Features.EnableOrderEvents,
			"email_enabled":    cfg.Features.EnableEmailNotifications,
			"verify_signature": cfg.Features.VerifyWebhookSignature,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	var retryConsumer *events.WebhookRetryConsumer
	if cfg.Features.EnableOrderEvents {
		retryConsumer = events.NewWebhookRetryConsumer(cfg.Kafka, webhookService, logging.NewLoggerV2("webhook-retry"))
		go func() {
			if err := retryConsumer.Start(context.Background()); err != nil {
				logger.Error("Webhook retry consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if retryConsumer != nil {
		retryConsumer.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	// Confirmation emails still in flight.
	webhookService.Wait()

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", logging.Fields{"error": err.Error()})
		}
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if err := orders.close(ctx); err != nil {
		logger.Warn("Failed to close order store", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

func openStore(ctx context.Context, cfg *config.Config, logger *logging.LoggerV2) (*store, error) {
	repoLogger := logging.NewLoggerV2("order-repository")

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := repository.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if cfg.Database.RunMigrations {
			if err := repository.RunMigrations(db); err != nil {
				db.Close()
				return nil, err
			}
			logger.Info("Database migrations applied")
		}
		logging.Info("Database connected", logging.Fields{
			"host": cfg.Database.Host,
			"name": cfg.Database.Name,
		})
		return &store{
			OrderRepository: repository.NewPostgresOrderRepository(db, repoLogger),
			close:           func(context.Context) error { return db.Close() },
		}, nil

	case config.DriverMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoOrderRepository(db, repoLogger)
		if err := repo.CreateIndexes(ctx); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, err
		}
		logging.Info("MongoDB connected", logging.Fields{"database": cfg.Mongo.Database})
		return &store{
			OrderRepository: repo,
			close:           func(ctx context.Context) error { return db.Client().Disconnect(ctx) },
		}, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory order store; orders are lost on restart")
		return &store{
			OrderRepository: repository.NewMemoryOrderRepository(),
			close:           func(context.Context) error { return nil },
		}, nil
	}

	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// initRedis returns nil components for features that are disabled or when
// Redis cannot be reached at startup.
func initRedis(ctx context.Context, cfg *config.Config, logger *logging.LoggerV2) (repository.OrderCache, repository.EventDeduplicator, *redis.Client) {
	if !cfg.Features.EnableOrderCaching && !cfg.Features.EnableWebhookDedup {
		return nil, nil, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable; running without order cache and webhook dedup", logging.Fields{
			"host":  cfg.Redis.Host,
			"error": err.Error(),
		})
		client.Close()
		return nil, nil, nil
	}

	var orderCache repository.OrderCache
	if cfg.Features.EnableOrderCaching {
		orderCache = repository.NewRedisOrderCache(client, cfg.Redis.TTL)
	}
	var dedup repository.EventDeduplicator
	if cfg.Features.EnableWebhookDedup {
		dedup = repository.NewRedisEventDeduplicator(client, cfg.Redis.DedupTTL)
	}
	return orderCache, dedup, client
}
