package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modular-banking-backend/internal/config"
	"github.com/segmentio/kafka-go"
)

// TransferEventProducer publishes completed transfer events for downstream
// consumers (notifications, reporting). Writes are synchronous with full acks
// because the outbox relay only marks a row processed after a confirmed write.
type TransferEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates a new transfer event producer and ensures the topic exists
func NewTransferEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TransferEventProducer, error) {
	if cfg.TransferEventsTopic == "" {
		return nil, fmt.Errorf("kafka transfer events topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for transfer event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.TransferEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists for transfer event producer: %w", cfg.TransferEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.TransferEventsTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write transfer events", "topic", cfg.TransferEventsTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote transfer events", "topic", cfg.TransferEventsTopic, "count", len(messages))
			}
		},
	}

	return &TransferEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.TransferEventsTopic,
	}, nil
}

// Publish writes a single event keyed by the sender account number, so events
// for one account land on one partition in order.
func (p *TransferEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal event value for transfer event producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish transfer event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish transfer event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published transfer event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *TransferEventProducer) Close() error {
	p.logger.Info("Closing transfer event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
