package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends transaction events to a Kafka topic keyed by user id, so one user's events
// stay ordered on a single partition.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a Publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// PublishTransactionEvent writes event as JSON.
func (p *Publisher) PublishTransactionEvent(ctx context.Context, event domain.TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode transaction event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish transaction event %s: %w", event.Reference, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
