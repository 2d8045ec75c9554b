package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"fraud-trade-lab/internal/domain"
)

// messageWriter is the subset of *kafka.Writer used by KafkaSink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers       []string
	TradesTopic   string
	HoldingsTopic string
	BatchSize     int // messages per WriteMessages call
}

// KafkaSink publishes trades and holdings as JSON messages keyed by their id.
type KafkaSink struct {
	w             messageWriter
	tradesTopic   string
	holdingsTopic string
	batchSize     int
}

// NewKafkaSink creates a sink backed by a kafka.Writer. The writer has no
// default topic; every message names its own.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink: no brokers: %w", domain.ErrConfiguration)
	}
	if cfg.TradesTopic == "" || cfg.HoldingsTopic == "" {
		return nil, fmt.Errorf("kafka sink: topics required: %w", domain.ErrConfiguration)
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaSink(w, cfg), nil
}

func newKafkaSink(w messageWriter, cfg KafkaConfig) *KafkaSink {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 1000
	}
	return &KafkaSink{w: w, tradesTopic: cfg.TradesTopic, holdingsTopic: cfg.HoldingsTopic, batchSize: batch}
}

// WriteTrades publishes trades in stream order.
func (s *KafkaSink) WriteTrades(ctx context.Context, trades []domain.Trade) error {
	sorted := sortedTrades(trades)
	return s.publish(ctx, s.tradesTopic, len(sorted), func(i int) (string, any) {
		return sorted[i].TradeID, &sorted[i]
	})
}

// WriteHoldings publishes holdings ordered by (account_id, symbol).
func (s *KafkaSink) WriteHoldings(ctx context.Context, holdings []domain.Holding) error {
	sorted := sortedHoldings(holdings)
	return s.publish(ctx, s.holdingsTopic, len(sorted), func(i int) (string, any) {
		return sorted[i].HoldingID, &sorted[i]
	})
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.w.Close()
}

func (s *KafkaSink) publish(ctx context.Context, topic string, n int, item func(int) (string, any)) error {
	msgs := make([]kafka.Message, 0, min(n, s.batchSize))
	for i := 0; i < n; i++ {
		key, v := item(i)
		value, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s message %s: %w", topic, key, err)
		}
		msgs = append(msgs, kafka.Message{Topic: topic, Key: []byte(key), Value: value})

		if len(msgs) == s.batchSize || i == n-1 {
			if err := s.w.WriteMessages(ctx, msgs...); err != nil {
				return fmt.Errorf("publish to %s: %w", topic, err)
			}
			msgs = msgs[:0]
		}
	}
	return nil
}
