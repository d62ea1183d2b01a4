package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopsync/internal/config"
	"shopsync/internal/database"
	"shopsync/internal/events"
	"shopsync/internal/logger"
	"shopsync/internal/metrics"
	"shopsync/internal/reconcile"
	"shopsync/internal/scheduler"
	"shopsync/internal/services/shopify"
	"shopsync/internal/store"
	"shopsync/internal/worker"
)

const shutdownTimeout = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v\n%s", err, config.Usage)
	}

	// Initialize logger
	logger := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	m := metrics.New()
	metricsServer := metrics.NewServer(cfg.MetricsAddr, m)
	if err := metricsServer.Start(); err != nil {
		logger.Fatal("Failed to start metrics server: %v", err)
	}
	logger.Info("Serving metrics on %s/metrics", metricsServer.Addr())
	client := shopify.NewClientFromConfig(cfg, logger, m)
	publisher := events.New(cfg.KafkaBrokerList(), cfg.KafkaTopic, logger)
	defer publisher.Close()

	// each run gets its own store connection, released when it ends
	run := func(ctx context.Context) error {
		db, err := database.New(cfg.DatabaseURL, logger, cfg.LogLevel)
		if err != nil {
			return err
		}
		defer db.Close()

		st := store.New(db.DB)
		_, err = reconcile.New(
			reconcile.Config{
				StoreID:  cfg.ShopName,
				PageSize: cfg.SyncPageSize,
				AllPages: cfg.SyncAllPages,
			},
			client,
			st,
			st,
			logger,
			reconcile.WithPublisher(publisher),
			reconcile.WithMetrics(m),
		).Run(ctx)
		return err
	}

	sched, err := scheduler.New(cfg.SyncSchedule, run, logger, scheduler.WithMetrics(m))
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}
	sched.Start()
	if cfg.SyncOnStart {
		sched.RunNow()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var w *worker.Worker
	if cfg.SyncOnCheckout {
		if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
			w = worker.New(brokers, cfg.KafkaTopic, cfg.KafkaGroupID, worker.SyncOnCheckout(sched.Trigger, logger), logger)
			go w.Start(ctx)
		} else {
			logger.Warn("SYNC_ON_CHECKOUT is set but KAFKA_BROKERS is empty; ignoring")
		}
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler...")
	cancel()
	if w != nil {
		w.Stop()
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := sched.Stop(stopCtx); err != nil {
		logger.Error("Active sync did not finish in %v: %v", shutdownTimeout, err)
	}

	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	if err := metricsServer.Stop(metricsCtx); err != nil {
		logger.Error("Metrics server forced to shutdown: %v", err)
	}
}
