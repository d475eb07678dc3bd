package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   OrderStatus
		wantOK bool
	}{
		{"Processing", OrderStatusProcessing, true},
		{"shipped", OrderStatusShipped, true},
		{" DELIVERED ", OrderStatusDelivered, true},
		{"Cancelled", OrderStatusCancelled, true},
		{"Refunded", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseOrderStatus(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusDelivered, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusProcessing, false},
		{OrderStatusCancelled, OrderStatusShipped, false},
		{OrderStatusDelivered, OrderStatusDelivered, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrder_ItemsTotalAndContainsProduct(t *testing.T) {
	order := &Order{
		OrderItems: []OrderItem{
			{Product: "p1", Price: decimal.RequireFromString("19.99"), Quantity: 2},
			{Product: "p2", Price: decimal.RequireFromString("5.01"), Quantity: 1},
		},
	}

	assert.True(t, order.ItemsTotal().Equal(decimal.RequireFromString("44.99")))
	assert.True(t, order.ContainsProduct("p2"))
	assert.False(t, order.ContainsProduct("p3"))
}

func TestOrderListFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, (&OrderListFilter{Page: 0, PerPage: 10}).Offset())
	assert.Equal(t, 0, (&OrderListFilter{Page: 1, PerPage: 10}).Offset())
	assert.Equal(t, 20, (&OrderListFilter{Page: 3, PerPage: 10}).Offset())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1000), ToMinorUnits(decimal.NewFromInt(10)))
	assert.Equal(t, int64(3), ToMinorUnits(decimal.RequireFromString("0.025")))

	assert.True(t, FromMinorUnits(1999).Equal(decimal.RequireFromString("19.99")))
	assert.True(t, FromMinorUnits(0).IsZero())
}

func TestOrder_JSONUsesNumericAmounts(t *testing.T) {
	order := &Order{
		ID:          "o1",
		OrderStatus: OrderStatusProcessing,
		OrderItems:  []OrderItem{{Product: "p1", Price: decimal.RequireFromString("12.5"), Quantity: 1}},
		PaymentInfo: PaymentInfo{ID: "ref", Status: "success", AmountPaid: decimal.RequireFromString("12.5")},
	}

	data, err := json.Marshal(order)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "o1", raw["_id"])
	items := raw["orderItems"].([]interface{})
	assert.Equal(t, 12.5, items[0].(map[string]interface{})["price"])
	assert.Equal(t, 12.5, raw["paymentInfo"].(map[string]interface{})["amountPaid"])
}

func TestWebhookEvent_Decode(t *testing.T) {
	payload := `{
		"event": "charge.success",
		"data": {
			"reference": "ref_1",
			"status": "success",
			"amount": 250000,
			"customer": {"email": "a@b.c"},
			"metadata": {
				"shippingInfo": "addr_1",
				"user_id": "u1",
				"line_items": [
					{"name": "Lamp", "quantity": 1, "price": 250000, "metadata": {"productId": "p1"}, "images": ["http://img/1"]}
				]
			}
		}
	}`

	var event WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &event))

	assert.Equal(t, EventChargeSuccess, event.Event)
	assert.Equal(t, int64(250000), event.Data.Amount)
	assert.Equal(t, "u1", event.Data.Metadata.UserID)
	require.Len(t, event.Data.Metadata.LineItems, 1)
	assert.Equal(t, "p1", event.Data.Metadata.LineItems[0].Metadata.ProductID)
}
