package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers for the storefront service.
type Handlers struct {
	orderService    *service.OrderService
	checkoutService *service.CheckoutService
	webhookService  *service.WebhookService
	store           Pinger
	config          *config.Config
	logger          *logging.LoggerV2
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	orderService *service.OrderService,
	checkoutService *service.CheckoutService,
	webhookService *service.WebhookService,
	store Pinger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		orderService:    orderService,
		checkoutService: checkoutService,
		webhookService:  webhookService,
		store:           store,
		config:          cfg,
		logger:          logging.NewLoggerV2("handlers"),
	}
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

func handleError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.IsNotFound(err):
		errorResponse(c, http.StatusNotFound, "Order not found")
		return
	case errors.IsDuplicate(err):
		errorResponse(c, http.StatusConflict, "Duplicate record")
		return
	case errors.IsUnauthorized(err):
		errorResponse(c, http.StatusUnauthorized, "Login first to access this resource")
		return
	case errors.IsForbidden(err):
		errorResponse(c, http.StatusForbidden, "Not allowed to access this resource")
		return
	}

	if validationErr, ok := errors.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": validationErr.Message,
			"details": validationErr.Details,
		})
		return
	}

	if upstreamErr, ok := errors.AsUpstreamError(err); ok {
		errorResponse(c, http.StatusBadGateway, upstreamErr.Message)
		return
	}

	logging.NewLoggerV2("handlers").WithContext(c.Request.Context()).Error("Unhandled error", logging.Fields{
		"path":  c.FullPath(),
		"error": err.Error(),
	})
	errorResponse(c, http.StatusInternalServerError, "Internal server error")
}
