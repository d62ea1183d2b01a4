// Package worker consumes the shop event topic and hands each message to a
// handler.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"shopsync/internal/events"
	"shopsync/internal/logger"
	"shopsync/internal/models"

	"github.com/segmentio/kafka-go"
)

// Envelope is an events.Message as read back, with Data left raw.
type Envelope struct {
	Type      string          `json:"type"`
	StoreID   string          `json:"store_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

type HandlerFunc func(ctx context.Context, env Envelope) error

type Worker struct {
	reader  *kafka.Reader
	handler HandlerFunc
	logger  *logger.Logger
}

func New(brokers []string, topic, groupID string, handler HandlerFunc, logger *logger.Logger) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})

	return &Worker{
		reader:  reader,
		handler: handler,
		logger:  logger,
	}
}

// Start reads until ctx is done or the reader is closed.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started, listening for events on %s...", w.reader.Config().Topic)

	for {
		message, err := w.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		if err := w.dispatch(ctx, message.Value); err != nil {
			w.logger.Error("Failed to process event at offset %d: %v", message.Offset, err)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, value []byte) error {
	w.logger.Debug("Received message: %s", string(value))

	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}
	return w.handler(ctx, env)
}

func (w *Worker) Stop() error {
	w.logger.Info("Stopping worker...")
	return w.reader.Close()
}

// SyncOnCheckout returns a handler calling trigger for every stored
// checkout_completed webhook; other messages are ignored.
func SyncOnCheckout(trigger func() bool, logger *logger.Logger) HandlerFunc {
	return func(ctx context.Context, env Envelope) error {
		if env.Type != events.TypeWebhookReceived {
			return nil
		}
		var event models.Event
		if err := json.Unmarshal(env.Data, &event); err != nil {
			return err
		}
		if event.Type != models.EventTypeCheckoutCompleted {
			return nil
		}
		logger.Info("Checkout %s completed, requesting sync", event.ID)
		if !trigger() {
			logger.Debug("Sync already running, checkout %s will be picked up by it or the next run", event.ID)
		}
		return nil
	}
}
