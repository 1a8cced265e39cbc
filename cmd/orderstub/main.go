package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"github.com/cloud-wave-best-zizon/storefront/internal/orderstub"
	"github.com/cloud-wave-best-zizon/storefront/pkg/config"
	"github.com/cloud-wave-best-zizon/storefront/pkg/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadStub()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal("Invalid LOG_LEVEL:", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	logger, err := zc.Build()
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	stub := orderstub.New(logger)
	for _, w := range seedWidgets() {
		stub.AddWidget(w)
	}

	router := orderstub.NewRouter(stub, logger, middleware.Logger(logger), middleware.RequestID())
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting order service stub", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Order service stub stopped", zap.Int("orders", stub.OrderCount()))
}

func seedWidgets() []domain.Product {
	ten, three := 10, 3
	return []domain.Product{
		{ID: 1, Name: "Prime Widget", Description: "A small red widget.", Category: "prime",
			Price: domain.MustMoney("10.00"), Features: []string{"Small", "Red"}},
		{ID: 2, Name: "Extreme Widget", Description: "A big blue widget.", Category: "extreme",
			Price: domain.MustMoney("20.00"), Features: []string{"Big", "Blue"}, Stock: &ten},
		{ID: 3, Name: "Fluffy Widget", Description: "A big fluffy widget.", Category: "extreme",
			Price: domain.MustMoney("30.00"), Features: []string{"Big", "Fluffy"}, Stock: &three},
		{ID: 4, Name: "Mega Widget", Description: "Only for the bold.", Category: "mega",
			Price: domain.MustMoney("99.99"), Features: []string{"Huge", "Loud"}},
	}
}
