package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/di"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/handlers"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/config"
	pfirestore "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/firestore"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/idempotency"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/jobs"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/observability"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/secrets"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/services"
	firestoreRepo "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories/firestore"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	if err := run(ctx, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	fetcher, err := secrets.NewFetcher(ctx, secretsProjectID(), secrets.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("initialise secret fetcher: %w", err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
	)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	registry, err := firestoreRepo.NewRegistry(provider)
	if err != nil {
		return fmt.Errorf("initialise repositories: %w", err)
	}

	gateways, err := di.BuildGatewayRegistry(cfg.Payments, logger)
	if err != nil {
		return err
	}

	var events services.OrderEventPublisher
	if cfg.PubSub.OrderEventTopic != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("initialise pubsub client: %w", err)
		}
		topic := client.Topic(cfg.PubSub.OrderEventTopic)
		defer func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				logger.Warn("pubsub client close error", zap.Error(err))
			}
		}()
		events, err = jobs.NewPubSubOrderEventPublisher(topic)
		if err != nil {
			return fmt.Errorf("initialise pubsub publisher: %w", err)
		}
	}

	container, err := di.NewContainer(di.ContainerDeps{
		Config:   cfg,
		Repos:    registry,
		Gateways: gateways,
		Events:   events,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	firestoreClient, err := provider.Client(ctx)
	if err != nil {
		return fmt.Errorf("initialise firestore client: %w", err)
	}
	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(cfg.Firestore.ProjectID),
			observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(registry.Health())),
		handlers.WithCartRoutes(handlers.NewCartHandlers(container.Services.Cart, container.Services.Pricing).Routes),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(container.Services.Orders, container.Services.Cart).Routes),
		handlers.WithCheckoutMiddlewares(idempotency.Middleware(idempotencyStore,
			idempotency.WithHeader(cfg.Idempotency.Header),
			idempotency.WithTTL(cfg.Idempotency.TTL),
			idempotency.WithLogger(observability.NewPrintfAdapter(logger)),
		)),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(container.Services.Orders).Routes),
		handlers.WithPaymentRoutes(handlers.NewPaymentHandlers(gateways).Routes),
		handlers.WithWebhookRoutes(handlers.NewWebhookHandlers(container.Services.Orders).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupIdempotencyRecords(runCtx, logger, idempotencyStore, cfg.Idempotency)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-runCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// cleanupIdempotencyRecords periodically purges expired idempotency records
// so stale checkout reservations do not accumulate.
func cleanupIdempotencyRecords(ctx context.Context, logger *zap.Logger, store *idempotency.FirestoreStore, cfg config.IdempotencyConfig) {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		return
	}
	batch := cfg.CleanupBatchSize
	if batch <= 0 {
		batch = 100
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupExpired(ctx, time.Now().UTC(), batch)
			if err != nil {
				logger.Warn("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency records purged", zap.Int("count", removed))
			}
		}
	}
}

// secretsProjectID picks the GCP project used for Secret Manager lookups.
// Empty means local development with SECRET_* env fallbacks only.
func secretsProjectID() string {
	for _, key := range []string{"API_SECRETS_PROJECT_ID", "API_FIRESTORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"} {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}
