// Package tradefeed publishes executed trades to Kafka for downstream
// consumers (price charts, Discord bots). The feed is best effort: a publish
// failure never unwinds a settled trade.
package tradefeed

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	eventv1 "github.com/Laincy/reconnected-se/internal/domain/event/v1"
	"github.com/Laincy/reconnected-se/pkg/config"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
)

// Publisher emits stock events after they are committed.
type Publisher interface {
	Publish(ctx context.Context, events []*eventv1.StockEvent) error
	Close() error
}

// KafkaPublisher writes stock events to a Kafka topic, keyed by ticker so one
// instrument's trades stay ordered within a partition.
type KafkaPublisher struct {
	kafkaWriter *kafka.Writer
	logger      logger.Interface
}

// NewKafkaPublisher creates a publisher from the trade feed configuration.
func NewKafkaPublisher(cfg config.TradeFeedConfig, log logger.Interface) *KafkaPublisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &KafkaPublisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// Publish writes the events as one batch of JSON messages.
func (p *KafkaPublisher) Publish(ctx context.Context, events []*eventv1.StockEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return errs.NewTracer("failed to encode stock event")
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.Ticker),
			Value: payload,
		})
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msgs...); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.Field{Key: "events", Value: len(events)},
		)
		return errs.NewTracer("failed to publish stock events")
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.kafkaWriter.Close()
}

// NopPublisher discards events. Used when the trade feed is disabled.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, []*eventv1.StockEvent) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }
