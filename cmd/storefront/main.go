package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloud-wave-best-zizon/storefront/internal/catalog"
	"github.com/cloud-wave-best-zizon/storefront/internal/client"
	"github.com/cloud-wave-best-zizon/storefront/internal/events"
	"github.com/cloud-wave-best-zizon/storefront/internal/handler"
	"github.com/cloud-wave-best-zizon/storefront/internal/repository"
	"github.com/cloud-wave-best-zizon/storefront/internal/service"
	"github.com/cloud-wave-best-zizon/storefront/pkg/config"
	"github.com/cloud-wave-best-zizon/storefront/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	logger.Info("Service configuration",
		zap.String("port", cfg.Port),
		zap.String("order_service_url", cfg.OrderServiceURL),
		zap.String("persistence_backend", cfg.PersistenceBackend),
		zap.String("mutation_policy", cfg.MutationPolicy),
		zap.Bool("kafka_enabled", cfg.KafkaEnabled()))

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open state store", zap.Error(err))
	}
	defer closeStore()

	policy, err := service.ParsePolicy(cfg.MutationPolicy)
	if err != nil {
		logger.Fatal("Invalid mutation policy", zap.Error(err))
	}

	api := client.NewOrderClient(cfg.OrderServiceURL, cfg.RequestTimeout, logger)
	manager := service.NewOrderStateManager(api, catalog.NewFilter(api, logger), store, logger,
		service.WithPolicy(policy))
	defer manager.Close()

	if cfg.KafkaEnabled() {
		snapshots, err := events.NewSnapshotProducer(cfg.KafkaBrokers, cfg.SnapshotTopic, logger)
		if err != nil {
			logger.Fatal("Failed to create Kafka producer", zap.Error(err))
		}
		defer snapshots.Close()
		manager.Subscribe(snapshots)

		completions := events.NewCompletionProducer(cfg.KafkaBrokers, cfg.CompletionTopic, logger)
		defer completions.Close()
		manager.Subscribe(completions)
	}

	startup, cancel := context.WithTimeout(context.Background(), 2*cfg.RequestTimeout)
	if cfg.RestoreOnStart {
		if _, err := manager.Restore(startup); err != nil {
			logger.Warn("Failed to restore order, starting empty", zap.Error(err))
		}
	}
	if _, err := manager.FilterCatalog(startup, ""); err != nil {
		logger.Warn("Failed to load catalog", zap.Error(err))
	}
	cancel()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RequestID())

	v1 := router.Group("/api/v1")
	handler.NewStorefrontHandler(manager, logger).Register(v1)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"service":      "storefront",
			"port":         cfg.Port,
			"order_active": manager.Snapshot().Active(),
			"kafka":        cfg.KafkaEnabled(),
		})
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func openStore(cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.PersistenceBackend {
	case config.BackendDynamoDB:
		dynamoClient, err := repository.NewDynamoDBClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewDynamoStore(dynamoClient, cfg.StateTableName, cfg.SessionScope), func() {}, nil
	case config.BackendMemory:
		return repository.NewMemoryStore(), func() {}, nil
	default:
		s, err := repository.NewSQLiteStore(cfg.SQLitePath, cfg.SessionScope)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}
