package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/pkg/metrics"
	"github.com/Iqvpi1024/dirsoul/pkg/tracing"
	"github.com/segmentio/kafka-go"
)

// Producer handles Kafka lifecycle event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// LifecycleEvent announces a pipeline state change: an event appended, a view
// created or transitioned, a concept created or deprecated.
type LifecycleEvent struct {
	EventType  string          `json:"event_type"`
	UserID     string          `json:"user_id"`
	ResourceID string          `json:"resource_id"`
	Resource   string          `json:"resource"` // event, view, concept
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// PublishLifecycleEvent publishes a lifecycle event to Kafka. Messages are
// keyed by user id so a consumer sees one user's transitions in order.
func (p *Producer) PublishLifecycleEvent(ctx context.Context, event *LifecycleEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishLifecycleEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.UserID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "resource", Value: []byte(event.Resource)},
			{Key: "user_id", Value: []byte(event.UserID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.RecordKafkaPublish(event.EventType, "error")
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish lifecycle event")
		return err
	}

	metrics.RecordKafkaPublish(event.EventType, "ok")
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":  event.EventType,
		"resource":    event.Resource,
		"resource_id": event.ResourceID,
	}).Debug("Published lifecycle event")

	return nil
}

// PublishLifecycleEvents publishes multiple lifecycle events in a batch
func (p *Producer) PublishLifecycleEvents(ctx context.Context, events []*LifecycleEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishLifecycleEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		data, err := json.Marshal(event)
		if err != nil {
			return err
		}

		messages[i] = kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.UserID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "resource", Value: []byte(event.Resource)},
				{Key: "user_id", Value: []byte(event.UserID)},
			},
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(events),
		}).Error("Failed to publish lifecycle events batch")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(events),
	}).Debug("Published lifecycle events batch")

	return nil
}
