package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"shopsync/internal/config"
	"shopsync/internal/logger"
	"shopsync/internal/seed"
	"shopsync/internal/services/shopify"

	flag "github.com/spf13/pflag"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v\n%s", err, config.Usage)
	}

	flags := flag.NewFlagSet("seed", flag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: seed [flags]\n\nCreates synthetic products, customers and orders in %s.\n\n", cfg.ShopName)
		flags.PrintDefaults()
	}
	products := flags.IntP("products", "p", cfg.SeedProducts, "number of products to create")
	customers := flags.IntP("customers", "c", cfg.SeedCustomers, "number of customers to create")
	orders := flags.IntP("orders", "o", cfg.SeedOrders, "number of orders to create")
	delay := flags.Duration("delay", cfg.SeedDelay, "pause between product and customer requests")
	orderDelay := flags.Duration("order-delay", cfg.SeedOrderDelay, "pause between order requests")
	flags.Parse(os.Args[1:])

	// Initialize logger
	logger := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeder := seed.New(seed.Config{
		Products:   *products,
		Customers:  *customers,
		Orders:     *orders,
		Delay:      *delay,
		OrderDelay: *orderDelay,
	}, shopify.NewClientFromConfig(cfg, logger, nil), logger)

	logger.Info("Seeding shop %s", cfg.ShopName)
	if _, err := seeder.Run(ctx); err != nil {
		logger.Fatal("Seeding interrupted: %v", err)
	}
}
