// Package handler is the serverless entry point: it serves the webhook
// receiver and read API from a single exported http.HandlerFunc.
package handler

import (
	"fmt"
	"net/http"
	"sync"

	"shopsync/internal/api"
	"shopsync/internal/config"
	"shopsync/internal/database"
	"shopsync/internal/events"
	"shopsync/internal/logger"
	"shopsync/internal/metrics"

	"github.com/gin-gonic/gin"
)

var (
	router     http.Handler
	routerLock sync.Mutex
)

// initRouter builds the server once per instance; a failed attempt is
// retried on the next request.
func initRouter() (http.Handler, error) {
	routerLock.Lock()
	defer routerLock.Unlock()

	if router != nil {
		return router, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithFormat(cfg.LogLevel, "json")

	db, err := database.New(cfg.DatabaseURL, log, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	// Kafka writers do not survive between invocations; publishing stays off here.
	server := api.New(cfg, log, db.DB, events.NopPublisher{}, metrics.New())
	router = server.Router()
	return router, nil
}

// Handler is the main entry point for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	h, err := initRouter()
	if err != nil {
		http.Error(w, fmt.Sprintf("Initialization failed: %v", err), http.StatusInternalServerError)
		return
	}
	h.ServeHTTP(w, r)
}
