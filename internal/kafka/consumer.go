package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// TradeRepository defines the ledger operations the consumer needs
type TradeRepository interface {
	CreateTrade(t *models.Trade) error
}

// Consumer ingests executed-trade events from Kafka into the trade ledger.
// The ledger is append-only from the consumer's point of view; split
// adjustment happens later in the enrichment pass.
type Consumer struct {
	reader *kafka.Reader
	repo   TradeRepository
}

// NewConsumer creates a new Kafka consumer for trade events
func NewConsumer(brokers []string, topic, groupID string, repo TradeRepository) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		repo:   repo,
	}
}

// Start begins consuming messages until the context is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("starting kafka consumer", slog.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			slog.Info("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				slog.Error("error reading message", slog.String("err", err.Error()))
				continue
			}

			if err := c.processMessage(msg); err != nil {
				slog.Error("error processing message", slog.String("err", err.Error()))
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(msg kafka.Message) error {
	var event models.TradeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade event: %w", err)
	}

	if event.EventType != models.EventTradeExecuted {
		slog.Debug("ignoring event type", slog.String("eventType", event.EventType))
		return nil
	}
	if event.Trade == nil {
		return fmt.Errorf("trade event without trade payload for %s", event.Symbol)
	}
	if event.Trade.Symbol == "" || event.Trade.ExecutedAt.IsZero() {
		return fmt.Errorf("trade event missing symbol or execution time")
	}

	if err := c.repo.CreateTrade(event.Trade); err != nil {
		return fmt.Errorf("failed to store trade for %s: %w", event.Trade.Symbol, err)
	}

	slog.Info("ingested trade",
		slog.String("symbol", event.Trade.Symbol),
		slog.String("side", event.Trade.Side()),
		slog.String("quantity", event.Trade.Quantity.String()))
	return nil
}
