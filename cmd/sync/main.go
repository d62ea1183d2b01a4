package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"shopsync/internal/config"
	"shopsync/internal/database"
	"shopsync/internal/events"
	"shopsync/internal/logger"
	"shopsync/internal/reconcile"
	"shopsync/internal/services/shopify"
	"shopsync/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v\n%s", err, config.Usage)
	}

	// Initialize logger
	logger := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = syncOnce(ctx, cfg, logger)
	stop()

	if err != nil {
		logger.Error("Sync failed: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func syncOnce(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := database.New(cfg.DatabaseURL, log, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer db.Close()

	publisher := events.New(cfg.KafkaBrokerList(), cfg.KafkaTopic, log)
	defer publisher.Close()

	st := store.New(db.DB)
	reconciler := reconcile.New(
		reconcile.Config{
			StoreID:  cfg.ShopName,
			PageSize: cfg.SyncPageSize,
			AllPages: cfg.SyncAllPages,
		},
		shopify.NewClientFromConfig(cfg, log, nil),
		st,
		st,
		log,
		reconcile.WithPublisher(publisher),
	)

	_, err = reconciler.Run(ctx)
	return err
}
