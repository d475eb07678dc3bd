package models

// EventChargeSuccess is the only webhook event that creates an order.
const EventChargeSuccess = "charge.success"

// LineItemMetadata ties a gateway line item back to the catalogue.
type LineItemMetadata struct {
	ProductID string `json:"productId"`
}

// GatewayLineItem is a cart line as embedded in transaction metadata.
// Price is in minor units.
type GatewayLineItem struct {
	Name     string           `json:"name"`
	Quantity int              `json:"quantity"`
	Price    int64            `json:"price"`
	Metadata LineItemMetadata `json:"metadata"`
	Images   []string         `json:"images"`
}

// CheckoutMetadata travels through the gateway and comes back on the
// webhook so the order can be rebuilt.
type CheckoutMetadata struct {
	ShippingInfo string            `json:"shippingInfo"`
	LineItems    []GatewayLineItem `json:"line_items"`
	UserID       string            `json:"user_id"`
}

// InitializeTransactionRequest is the Paystack transaction/initialize body.
type InitializeTransactionRequest struct {
	Email       string           `json:"email"`
	Amount      int64            `json:"amount"`
	CallbackURL string           `json:"callback_url,omitempty"`
	Reference   string           `json:"reference,omitempty"`
	Metadata    CheckoutMetadata `json:"metadata"`
}

// InitializeTransactionResponse is the Paystack transaction/initialize reply.
type InitializeTransactionResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// ChargeCustomer is the payer on a charge event.
type ChargeCustomer struct {
	Email string `json:"email"`
}

// ChargeData is the data object of a charge webhook event.
type ChargeData struct {
	Reference string           `json:"reference"`
	Status    string           `json:"status"`
	Amount    int64            `json:"amount"`
	Currency  string           `json:"currency"`
	Customer  ChargeCustomer   `json:"customer"`
	Metadata  CheckoutMetadata `json:"metadata"`
}

// WebhookEvent is an asynchronous notification from the payment gateway.
type WebhookEvent struct {
	Event string     `json:"event"`
	Data  ChargeData `json:"data"`
}

// WebhookResult is the outcome of processing a gateway event.
type WebhookResult string

const (
	WebhookIgnored      WebhookResult = "ignored"
	WebhookDuplicate    WebhookResult = "duplicate"
	WebhookOrderCreated WebhookResult = "order_created"
)
