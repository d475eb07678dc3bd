package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Storefront clients expect amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus matches s against the known statuses, ignoring case.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	s = strings.TrimSpace(s)
	for _, status := range orderStatuses {
		if strings.EqualFold(string(status), s) {
			return status, true
		}
	}
	return "", false
}

// CanTransitionTo reports whether an order in status s may move to next.
// Setting the current status again is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}

	validTransitions := map[OrderStatus][]OrderStatus{
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {},
		OrderStatusCancelled:  {},
	}

	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem is one purchased product line.
type OrderItem struct {
	Product  string            `json:"product"`
	Name     string            `json:"name"`
	Price    decimal.Decimal   `json:"price"`
	Quantity int               `json:"quantity"`
	Image    string            `json:"image"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Subtotal is price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PaymentInfo records the gateway transaction that paid for an order.
type PaymentInfo struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	TaxPaid    decimal.Decimal `json:"taxPaid"`
}

// Order is a completed or pending purchase.
type Order struct {
	ID           string      `json:"_id"`
	User         string      `json:"user"`
	ShippingInfo string      `json:"shippingInfo"`
	OrderItems   []OrderItem `json:"orderItems"`
	PaymentInfo  PaymentInfo `json:"paymentInfo"`
	OrderStatus  OrderStatus `json:"orderStatus"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// ItemsTotal sums the subtotals of every order item.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.OrderItems {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ContainsProduct reports whether any order item references productID.
func (o *Order) ContainsProduct(productID string) bool {
	for _, item := range o.OrderItems {
		if item.Product == productID {
			return true
		}
	}
	return false
}

// DefaultResPerPage is the page size of every order listing.
const DefaultResPerPage = 10

// OrderListFilter selects a page of orders, optionally for one user.
type OrderListFilter struct {
	User    string
	Status  *OrderStatus
	Page    int
	PerPage int
}

// Offset is the number of orders skipped before this page.
func (f *OrderListFilter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.PerPage
}

// OrderPage is the paginated listing envelope. Field names match what
// existing storefront clients read.
type OrderPage struct {
	OrdersCount int      `json:"ordersCount"`
	ResPerPage  int      `json:"resPerPage"`
	Orders      []*Order `json:"orders"`
}

// UpdateOrderStatusRequest is the admin status-change body.
type UpdateOrderStatusRequest struct {
	OrderStatus string `json:"orderStatus"`
}
