package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"supportdesk/internal/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes unknown-message records to the notification topic. A nil
// Producer is a no-op, so the bot engine never needs to know whether the
// side-channel is configured.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a new Kafka producer for the unknown-message topic.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// PublishUnknownMessage sends the record to the unknown-message topic, keyed
// by user so a trainer's view of one user stays ordered.
func (p *Producer) PublishUnknownMessage(ctx context.Context, record models.UnknownMessage) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal unknown message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(record.UserID),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish unknown message: %w", err)
	}

	p.logger.Debug("Published unknown message", zap.String("user_id", record.UserID))
	return nil
}

// Close closes the Kafka writer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
