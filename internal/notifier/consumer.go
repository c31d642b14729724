package notifier

import (
	"context"
	"encoding/json"
	"errors"

	"supportdesk/internal/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TrainerNotifier is the downstream channel the consumer forwards unknown
// messages to; the Telegram shim implements it.
type TrainerNotifier interface {
	NotifyTrainer(record models.UnknownMessage) error
}

// Consumer reads unknown-message records from the notification topic and
// forwards each to the trainer channel.
type Consumer struct {
	reader   *kafka.Reader
	notifier TrainerNotifier
	logger   *zap.Logger
}

// NewConsumer creates a new Kafka consumer for the unknown-message topic.
func NewConsumer(brokers []string, topic, group string, notifier TrainerNotifier, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: group,
		}),
		notifier: notifier,
		logger:   logger,
	}
}

// Run consumes records until the context is cancelled. Malformed records and
// delivery failures are logged and skipped; the log is the source of truth,
// the notification is best-effort.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("Trainer notification consumer started.")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Trainer notification consumer stopped.")
				return
			}
			c.logger.Error("Failed to read notification message", zap.Error(err))
			continue
		}

		var record models.UnknownMessage
		if err := json.Unmarshal(msg.Value, &record); err != nil {
			c.logger.Error("Failed to decode notification message", zap.Error(err))
			continue
		}

		if err := c.notifier.NotifyTrainer(record); err != nil {
			c.logger.Error("Failed to notify trainer",
				zap.String("user_id", record.UserID),
				zap.Error(err))
		}
	}
}

// Close closes the Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
