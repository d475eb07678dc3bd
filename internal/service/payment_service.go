package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// CheckoutService starts hosted payments for shopper carts.
type CheckoutService struct {
	gateway clients.PaymentGateway
	config  *config.Config
	logger  *logging.LoggerV2
}

func NewCheckoutService(gateway clients.PaymentGateway, cfg *config.Config) *CheckoutService {
	return &CheckoutService{
		gateway: gateway,
		config:  cfg,
		logger:  logging.NewLoggerV2("checkout-service"),
	}
}

// CreateCheckoutSession validates the cart and asks the gateway for a
// payment page. The cart travels in transaction metadata so the webhook
// can rebuild the order.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, user models.CheckoutUser, req *models.CheckoutRequest) (*models.CheckoutSession, error) {
	logger := s.logger.WithContext(ctx)

	if err := ValidateCheckoutRequest(user, req); err != nil {
		metrics.CheckoutSessions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	lineItems, amount := BuildLineItems(req.Items)

	resp, err := s.gateway.InitializeTransaction(ctx, &models.InitializeTransactionRequest{
		Email:       user.Email,
		Amount:      amount,
		CallbackURL: s.config.CheckoutCallbackURL(),
		Metadata: models.CheckoutMetadata{
			ShippingInfo: req.ShippingInfo,
			LineItems:    lineItems,
			UserID:       user.ID,
		},
	})
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues("gateway_error").Inc()
		logger.Error("Failed to create checkout session", logging.Fields{
			"user_id": user.ID,
			"amount":  amount,
			"error":   err.Error(),
		})
		return nil, err
	}

	metrics.CheckoutSessions.WithLabelValues("created").Inc()
	logger.Info("Checkout session created", logging.Fields{
		"user_id":   user.ID,
		"amount":    amount,
		"items":     len(lineItems),
		"reference": resp.Data.Reference,
	})

	return &models.CheckoutSession{
		URL:        resp.Data.AuthorizationURL,
		Reference:  resp.Data.Reference,
		AccessCode: resp.Data.AccessCode,
		Amount:     amount,
	}, nil
}
