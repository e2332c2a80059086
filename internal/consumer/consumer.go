// Package consumer reads reconcile requests from Kafka.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/afikmenashe/notification-inbox/internal/events"
	kafkautil "github.com/afikmenashe/notification-inbox/pkg/kafka"
)

// messageReader is the subset of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer wraps a Kafka reader for the reconcile request topic.
type Consumer struct {
	reader messageReader
	topic  string
}

// NewConsumer creates a consumer with at-least-once semantics: offsets are only
// committed through CommitMessage.
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if err := kafkautil.ValidateConsumerParams(brokers, topic, groupID); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)
	slog.Info("Initializing Kafka consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)

	cfg := kafkautil.NewReaderConfig(brokerList, topic, groupID)
	reader := kafka.NewReader(cfg)
	kafkautil.LogReaderConfig(cfg)

	return &Consumer{reader: reader, topic: topic}, nil
}

// ReadMessage fetches the next request. The raw message is returned even when decoding
// fails so the caller can commit past it.
func (c *Consumer) ReadMessage(ctx context.Context) (*events.ReconcileRequested, *kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read message from Kafka: %w", err)
	}

	enc := events.EncodingJSON
	for _, h := range msg.Headers {
		if h.Key == events.ContentTypeHeader {
			if parsed, err := events.ParseEncoding(string(h.Value)); err == nil {
				enc = parsed
			}
		}
	}

	var req events.ReconcileRequested
	if err := events.Unmarshal(msg.Value, enc, &req); err != nil {
		return nil, &msg, fmt.Errorf("failed to decode reconcile request: %w", err)
	}
	return &req, &msg, nil
}

// CommitMessage commits the offset of msg.
func (c *Consumer) CommitMessage(ctx context.Context, msg *kafka.Message) error {
	return c.reader.CommitMessages(ctx, *msg)
}

// Close closes the Kafka reader.
func (c *Consumer) Close() error {
	slog.Info("Closing Kafka consumer", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		slog.Error("Error closing Kafka consumer", "error", err)
		return err
	}
	return nil
}
