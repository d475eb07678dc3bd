package service

import (
	"fmt"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// ValidateCheckoutRequest validates a cart before it is sent to the gateway.
func ValidateCheckoutRequest(user models.CheckoutUser, req *models.CheckoutRequest) error {
	if user.ID == "" {
		return errors.NewValidationError("user", "user is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return errors.NewValidationError("email", "an email address is required to pay")
	}
	if req == nil || len(req.Items) == 0 {
		return errors.NewValidationError("items", "at least one item is required")
	}
	if strings.TrimSpace(req.ShippingInfo) == "" {
		return errors.NewValidationError("shippingInfo", "shipping info is required")
	}

	for i := range req.Items {
		if err := validateCartItem(&req.Items[i], i); err != nil {
			return err
		}
	}
	return nil
}

func validateCartItem(item *models.CartItem, index int) error {
	field := fmt.Sprintf("items[%d]", index)

	if item.Product == "" {
		return errors.NewValidationError(field, "product ID is required for item")
	}
	if item.Quantity <= 0 {
		return errors.NewValidationError(field, "quantity must be positive")
	}
	if item.Price.IsNegative() {
		return errors.NewValidationError(field, "price cannot be negative")
	}
	return nil
}

// ValidateChargeEvent checks a charge event carries what is needed to
// rebuild an order.
func ValidateChargeEvent(event *models.WebhookEvent) error {
	data := &event.Data
	if data.Reference == "" {
		return errors.NewValidationError("reference", "payment reference is required")
	}
	if data.Metadata.UserID == "" {
		return errors.NewValidationError("metadata.user_id", "user id is required")
	}
	if len(data.Metadata.LineItems) == 0 {
		return errors.NewValidationError("metadata.line_items", "at least one line item is required")
	}
	for i, li := range data.Metadata.LineItems {
		field := fmt.Sprintf("metadata.line_items[%d]", i)
		if li.Metadata.ProductID == "" {
			return errors.NewValidationError(field, "product ID is required")
		}
		if li.Quantity <= 0 {
			return errors.NewValidationError(field, "quantity must be positive")
		}
		if li.Price < 0 {
			return errors.NewValidationError(field, "price cannot be negative")
		}
	}
	return nil
}
