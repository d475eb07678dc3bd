package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

const maxWebhookBody = 1 << 20

// CreateCheckoutSession handles POST /api/orders/checkout_session
func (h *Handlers) CreateCheckoutSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		handleError(c, errors.ErrUnauthorized)
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithContext(c.Request.Context()).Warn("Failed to bind checkout request", logging.Fields{"error": err.Error()})
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.checkoutService.CreateCheckoutSession(
		c.Request.Context(),
		models.CheckoutUser{ID: user.ID, Email: user.Email},
		&req,
	)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": session.URL})
}

// PaymentWebhook handles POST /api/orders/webhook. The gateway only looks
// at the status code, so every failure is reported as 400.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	logger := h.logger.WithContext(c.Request.Context())

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.Warn("Failed to read webhook body", logging.Fields{"error": err.Error()})
		errorResponse(c, http.StatusBadRequest, "Unable to read request body")
		return
	}

	result, err := h.webhookService.HandleWebhook(c.Request.Context(), payload, c.GetHeader(clients.SignatureHeader))
	if err != nil {
		logger.Warn("Webhook processing failed", logging.Fields{"error": err.Error()})
		message := "Webhook processing failed"
		if validationErr, ok := errors.AsValidationError(err); ok {
			message = validationErr.Message
		}
		errorResponse(c, http.StatusBadRequest, message)
		return
	}

	status := http.StatusOK
	if result == models.WebhookOrderCreated {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success": true,
		"result":  result,
	})
}
