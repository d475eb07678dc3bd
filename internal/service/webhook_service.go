package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

const notifyTimeout = 30 * time.Second

// WebhookService turns confirmed payments into orders.
type WebhookService struct {
	orderRepo      repository.OrderRepository
	dedup          repository.EventDeduplicator
	gateway        clients.PaymentGateway
	eventPublisher events.Publisher
	notifier       clients.Notifier
	config         *config.Config
	pending        sync.WaitGroup
	logger         *logging.LoggerV2
}

var _ events.ChargeEventProcessor = (*WebhookService)(nil)

// NewWebhookService creates a webhook service. dedup may be nil.
func NewWebhookService(
	orderRepo repository.OrderRepository,
	dedup repository.EventDeduplicator,
	gateway clients.PaymentGateway,
	eventPublisher events.Publisher,
	notifier clients.Notifier,
	cfg *config.Config,
) *WebhookService {
	return &WebhookService{
		orderRepo:      orderRepo,
		dedup:          dedup,
		gateway:        gateway,
		eventPublisher: eventPublisher,
		notifier:       notifier,
		config:         cfg,
		logger:         logging.NewLoggerV2("webhook-service"),
	}
}

// HandleWebhook verifies and processes one gateway delivery.
func (s *WebhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) (models.WebhookResult, error) {
	logger := s.logger.WithContext(ctx)

	if s.config.Features.VerifyWebhookSignature && !s.gateway.VerifySignature(payload, signature) {
		metrics.WebhookEvents.WithLabelValues("bad_signature").Inc()
		logger.Warn("Rejected webhook with invalid signature")
		return "", errors.NewValidationError("signature", "invalid webhook signature")
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		return "", errors.NewValidationError("body", "malformed webhook payload")
	}

	result, err := s.ProcessChargeEvent(ctx, &event)
	if err != nil {
		if _, invalid := errors.AsValidationError(err); !invalid {
			if pubErr := s.eventPublisher.PublishWebhookRetry(ctx, event.Data.Reference, payload); pubErr != nil {
				logger.Error("Failed to queue webhook for retry", logging.Fields{
					"reference": event.Data.Reference,
					"error":     pubErr.Error(),
				})
			}
		}
		return "", err
	}
	return result, nil
}

// ProcessChargeEvent creates the order for a verified charge event. It is
// safe to call more than once for the same payment reference.
func (s *WebhookService) ProcessChargeEvent(ctx context.Context, event *models.WebhookEvent) (models.WebhookResult, error) {
	logger := s.logger.WithContext(ctx)

	if event.Event != models.EventChargeSuccess {
		metrics.WebhookEvents.WithLabelValues(string(models.WebhookIgnored)).Inc()
		logger.Debug("Ignoring webhook event", logging.Fields{"event": event.Event})
		return models.WebhookIgnored, nil
	}

	if err := ValidateChargeEvent(event); err != nil {
		metrics.WebhookEvents.WithLabelValues("invalid").Inc()
		return "", err
	}

	reference := event.Data.Reference
	fields := logging.Fields{"reference": reference, "user_id": event.Data.Metadata.UserID}

	claimed := false
	if s.config.Features.EnableWebhookDedup && s.dedup != nil {
		ok, err := s.dedup.Claim(ctx, reference)
		switch {
		case err != nil:
			// The unique payment reference index still rejects a second order.
			logger.Warn("Webhook dedup unavailable", logging.Fields{"reference": reference, "error": err.Error()})
		case !ok:
			// A claim can outlive a failed create. Only a stored order makes
			// this a duplicate.
			logger.Info("Webhook reference already claimed", fields)
		default:
			claimed = true
		}
	}

	release := func() {
		if !claimed {
			return
		}
		if err := s.dedup.Release(ctx, reference); err != nil {
			logger.Error("Failed to release webhook claim", logging.Fields{"reference": reference, "error": err.Error()})
		}
	}

	if _, err := s.orderRepo.GetByPaymentReference(ctx, reference); err == nil {
		metrics.WebhookEvents.WithLabelValues(string(models.WebhookDuplicate)).Inc()
		logger.Info("Order already exists for payment", fields)
		return models.WebhookDuplicate, nil
	} else if !errors.IsNotFound(err) {
		release()
		return "", err
	}

	order, err := s.orderRepo.Create(ctx, OrderFromCharge(&event.Data))
	if errors.IsDuplicate(err) {
		metrics.WebhookEvents.WithLabelValues(string(models.WebhookDuplicate)).Inc()
		logger.Info("Duplicate webhook delivery", fields)
		return models.WebhookDuplicate, nil
	}
	if err != nil {
		release()
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		fields["error"] = err.Error()
		logger.Error("Failed to persist order from webhook", fields)
		return "", err
	}

	metrics.OrdersCreated.Inc()
	metrics.WebhookEvents.WithLabelValues(string(models.WebhookOrderCreated)).Inc()

	if err := s.eventPublisher.PublishOrderCreated(ctx, order); err != nil {
		logger.Error("Failed to publish order created event", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}

	if s.config.Features.EnableEmailNotifications && event.Data.Customer.Email != "" {
		s.notifyAsync(ctx, event.Data.Customer.Email, order)
	}

	fields["order_id"] = order.ID
	logger.Info("Order created from payment", fields)
	return models.WebhookOrderCreated, nil
}

func (s *WebhookService) notifyAsync(ctx context.Context, recipient string, order *models.Order) {
	requestID := logging.RequestIDFromContext(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		nctx, cancel := context.WithTimeout(logging.ContextWithRequestID(context.Background(), requestID), notifyTimeout)
		defer cancel()

		if err := s.notifier.SendOrderConfirmation(nctx, recipient, order); err != nil {
			s.logger.WithContext(nctx).Error("Failed to send order confirmation", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}()
}

// Wait blocks until in-flight confirmation emails finish.
func (s *WebhookService) Wait() {
	s.pending.Wait()
}
