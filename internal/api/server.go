package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"shopsync/internal/api/handlers"
	"shopsync/internal/api/middleware"
	"shopsync/internal/config"
	"shopsync/internal/events"
	"shopsync/internal/logger"
	"shopsync/internal/metrics"
	"shopsync/internal/models"
	"shopsync/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

// New wires the webhook receiver, the read API, health and metrics onto one
// router. db backs both the event store and the read handlers.
func New(cfg *config.Config, logger *logger.Logger, db *gorm.DB, publisher events.Publisher, m *metrics.Metrics) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger.Named("http"), "/healthz", "/metrics"))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(store.New(db), cfg.ShopName, cfg.WebhookSecret, publisher, m, logger)
	productHandler := handlers.NewProductHandler(db, logger)
	customerHandler := handlers.NewCustomerHandler(db, logger)
	orderHandler := handlers.NewOrderHandler(db, logger)
	eventHandler := handlers.NewEventHandler(db, logger)
	syncRunHandler := handlers.NewSyncRunHandler(db, logger)
	healthHandler := handlers.NewHealthHandler(db)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Webhooks
	webhook := router.Group("/webhook", middleware.WebhookPayload(logger.Named("webhook")))
	{
		webhook.POST("/cart", webhookHandler.Accept(models.EventTypeCartCreated))
		webhook.POST("/checkout", webhookHandler.Accept(models.EventTypeCheckoutCreated))
		webhook.POST("/cart/update", webhookHandler.Accept(models.EventTypeCartUpdated))
		webhook.POST("/checkout/complete", webhookHandler.Accept(models.EventTypeCheckoutCompleted))
	}

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Products
		products := v1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
		}

		// Customers
		customers := v1.Group("/customers")
		{
			customers.GET("", customerHandler.List)
			customers.GET("/:id", customerHandler.Get)
		}

		// Orders
		orders := v1.Group("/orders")
		{
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
		}

		v1.GET("/events", eventHandler.List)

		// Sync runs
		syncRuns := v1.Group("/sync-runs")
		{
			syncRuns.GET("", syncRunHandler.List)
			syncRuns.GET("/latest", syncRunHandler.Latest)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%s", cfg.WebhookHost, cfg.WebhookPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks serving until Stop; a clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("Webhook server running at http://%s/webhook", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
