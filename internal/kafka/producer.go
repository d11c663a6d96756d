package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// Producer publishes portfolio lifecycle events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishTradesAdjusted publishes a split-adjustment event with the number
// of trades rescaled in the pass
func (p *Producer) PublishTradesAdjusted(ctx context.Context, count int) error {
	event := models.TradeEvent{
		EventType: models.EventTradesAdjusted,
		Count:     count,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, models.EventTradesAdjusted, event)
}

// PublishEnrichmentCompleted publishes an enrichment completion event
func (p *Producer) PublishEnrichmentCompleted(ctx context.Context) error {
	event := models.TradeEvent{
		EventType: models.EventEnrichmentDone,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, models.EventEnrichmentDone, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.TradeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close closes the underlying writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
