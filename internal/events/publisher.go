package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopsync/internal/logger"

	"github.com/segmentio/kafka-go"
)

// Message types put on the topic.
const (
	TypeWebhookReceived = "webhook.received"
	TypeSyncCompleted   = "sync.completed"
	TypeSyncFailed      = "sync.failed"
)

// Message is the envelope every published record uses.
type Message struct {
	Type      string      `json:"type"`
	StoreID   string      `json:"store_id"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, msg Message) error
	Close() error
}

// NopPublisher drops everything; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, key string, msg Message) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}

type KafkaPublisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// New picks the Kafka publisher when brokers are set and a no-op otherwise.
func New(brokers []string, topic string, logger *logger.Logger) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	logger.Info("Publishing events to kafka topic %s on %v", topic, brokers)
	return NewKafkaPublisher(brokers, topic, logger)
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msg.Type, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(msg.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s message: %w", msg.Type, err)
	}

	p.logger.Debug("Published %s message for %s", msg.Type, key)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
