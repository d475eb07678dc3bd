package models

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount (e.g. naira) to minor units
// (kobo), rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts a minor-unit amount back to major units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// CartItem is one line of the shopper's cart at checkout.
type CartItem struct {
	Product  string          `json:"product"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image"`
}

// CheckoutRequest is the body of POST /api/orders/checkout_session.
type CheckoutRequest struct {
	Items        []CartItem `json:"items"`
	ShippingInfo string     `json:"shippingInfo"`
}

// CheckoutSession is the gateway-hosted payment page for a cart.
type CheckoutSession struct {
	URL        string `json:"url"`
	Reference  string `json:"reference"`
	AccessCode string `json:"accessCode"`
	Amount     int64  `json:"amount"`
}

// CheckoutUser identifies the shopper starting a checkout.
type CheckoutUser struct {
	ID    string
	Email string
}
