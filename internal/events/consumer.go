package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

const defaultMaxAttempts = 3

// ChargeEventProcessor turns a verified gateway event into an order.
type ChargeEventProcessor interface {
	ProcessChargeEvent(ctx context.Context, event *models.WebhookEvent) (models.WebhookResult, error)
}

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WebhookRetryConsumer replays gateway events that failed to persist on
// first delivery.
type WebhookRetryConsumer struct {
	reader      MessageReader
	processor   ChargeEventProcessor
	logger      *logging.LoggerV2
	maxAttempts int
	backoff     time.Duration
	stopCh      chan struct{}
}

// NewWebhookRetryConsumer creates a consumer on the webhook retry topic.
func NewWebhookRetryConsumer(cfg config.KafkaConfig, processor ChargeEventProcessor, logger *logging.LoggerV2) *WebhookRetryConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.WebhookRetryTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return NewWebhookRetryConsumerWithReader(reader, processor, logger)
}

func NewWebhookRetryConsumerWithReader(reader MessageReader, processor ChargeEventProcessor, logger *logging.LoggerV2) *WebhookRetryConsumer {
	return &WebhookRetryConsumer{
		reader:      reader,
		processor:   processor,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoff:     time.Second,
		stopCh:      make(chan struct{}),
	}
}

// Start consumes until ctx is cancelled or Stop is called.
func (c *WebhookRetryConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting webhook retry consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Webhook retry consumer stopped")
			return nil
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-c.stopCh:
				return nil
			default:
			}
			c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
			continue
		}

		c.handleMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message", logging.Fields{
				"offset": msg.Offset,
				"error":  err.Error(),
			})
		}
	}
}

// Stop stops the consumer.
func (c *WebhookRetryConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

func (c *WebhookRetryConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	fields := logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
		"reference": string(msg.Key),
	}
	for _, h := range msg.Headers {
		if h.Key == "request_id" && len(h.Value) > 0 {
			ctx = logging.ContextWithRequestID(ctx, string(h.Value))
		}
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		fields["error"] = err.Error()
		c.logger.Error("Dropping undecodable webhook payload", fields)
		return
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.processor.ProcessChargeEvent(ctx, &event)
		if err == nil {
			fields["result"] = string(result)
			c.logger.Info("Webhook retry processed", fields)
			return
		}
		if _, ok := errors.AsValidationError(err); ok {
			fields["error"] = err.Error()
			c.logger.Error("Dropping invalid webhook payload", fields)
			return
		}

		fields["attempt"] = attempt
		fields["error"] = err.Error()
		c.logger.Warn("Webhook retry failed", fields)

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-time.After(c.backoff * time.Duration(1<<(attempt-1))):
			}
		}
	}

	c.logger.Error("Giving up on webhook retry", fields)
}
