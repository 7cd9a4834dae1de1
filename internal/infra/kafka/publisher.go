package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// EventPublisher writes order events keyed by order id, so every event of
// one order lands on the same partition.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
	Close() error
}

type Publisher struct {
	writer *kafkago.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Publisher) PublishEvent(ctx context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(_ context.Context, key string, _ any) error {
	slog.Debug("event stream disabled, dropping event", "key", key)
	return nil
}

func (NopPublisher) Close() error { return nil }

var (
	_ EventPublisher = (*Publisher)(nil)
	_ EventPublisher = NopPublisher{}
)
