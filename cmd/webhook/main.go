package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopsync/internal/api"
	"shopsync/internal/config"
	"shopsync/internal/database"
	"shopsync/internal/events"
	"shopsync/internal/logger"
	"shopsync/internal/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v\n%s", err, config.Usage)
	}

	// Initialize logger
	logger := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL, logger, cfg.LogLevel)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	publisher := events.New(cfg.KafkaBrokerList(), cfg.KafkaTopic, logger)
	defer publisher.Close()

	if cfg.WebhookSecret == "" {
		logger.Warn("SHOPIFY_WEBHOOK_SECRET is not set; webhook signatures will not be checked")
	}

	// Initialize server
	server := api.New(cfg, logger, db.DB, publisher, metrics.New())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Failed to start server: %v", err)
		}
	case <-quit:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logger.Error("Server shutdown: %v", err)
		}
	}
}
