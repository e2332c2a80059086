// Package producer publishes inbox events to Kafka.
package producer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/afikmenashe/notification-inbox/internal/events"
	kafkautil "github.com/afikmenashe/notification-inbox/pkg/kafka"
	"github.com/afikmenashe/notification-inbox/pkg/retry"
)

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps a Kafka writer for one topic.
type Producer struct {
	writer   messageWriter
	topic    string
	encoding events.Encoding
	retry    retry.Config
}

// NewProducer creates a producer with synchronous, key-hashed writes.
func NewProducer(brokers, topic string, encoding events.Encoding) (*Producer, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}
	if encoding == "" {
		encoding = events.EncodingJSON
	}

	brokerList := kafkautil.ParseBrokers(brokers)
	slog.Info("Initializing Kafka producer",
		"brokers", brokerList,
		"topic", topic,
		"encoding", encoding,
	)

	return &Producer{
		writer:   kafkautil.NewWriter(brokerList, topic),
		topic:    topic,
		encoding: encoding,
		retry:    retry.DefaultConfig(),
	}, nil
}

// PublishInboxChanged publishes an inbox.changed event keyed by tenant.
func (p *Producer) PublishInboxChanged(ctx context.Context, evt *events.InboxChanged) error {
	if err := p.publish(ctx, evt.Key(), evt, evt.SchemaVersion, evt.OccurredAt.Unix()); err != nil {
		return err
	}
	slog.Info("Published inbox changed event",
		"event_id", evt.EventID,
		"tenant_id", evt.TenantID,
		"topic", evt.Topic,
		"reason", evt.Reason,
	)
	return nil
}

// PublishReconcileRequested publishes a reconcile request.
func (p *Producer) PublishReconcileRequested(ctx context.Context, evt *events.ReconcileRequested) error {
	if err := p.publish(ctx, evt.Key(), evt, evt.SchemaVersion, evt.RequestedAt.Unix()); err != nil {
		return err
	}
	slog.Info("Published reconcile request",
		"event_id", evt.EventID,
		"tenant_id", evt.TenantID,
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, key string, evt any, schemaVersion int, unixTS int64) error {
	payload, err := events.Marshal(evt, p.encoding)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "schema_version", Value: []byte(strconv.Itoa(schemaVersion))},
			{Key: events.ContentTypeHeader, Value: []byte(p.encoding)},
		},
	}
	if unixTS > 0 {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "event_ts", Value: []byte(strconv.FormatInt(unixTS, 10))})
	}

	err = retry.WithRetry(ctx, p.retry, "kafka write "+p.topic, func() error {
		return p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		slog.Error("Failed to write message to Kafka",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

// Close closes the Kafka writer.
func (p *Producer) Close() error {
	slog.Info("Closing Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing Kafka producer", "error", err)
		return err
	}
	return nil
}
