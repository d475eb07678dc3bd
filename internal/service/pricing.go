package service

import (
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// BuildLineItems converts cart lines into gateway line items priced in
// minor units and returns the cart total in minor units.
func BuildLineItems(items []models.CartItem) ([]models.GatewayLineItem, int64) {
	lineItems := make([]models.GatewayLineItem, 0, len(items))
	var amount int64

	for _, item := range items {
		minor := models.ToMinorUnits(item.Price)
		images := []string{}
		if item.Image != "" {
			images = append(images, item.Image)
		}

		lineItems = append(lineItems, models.GatewayLineItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    minor,
			Metadata: models.LineItemMetadata{ProductID: item.Product},
			Images:   images,
		})
		amount += minor * int64(item.Quantity)
	}

	return lineItems, amount
}

// OrderFromCharge rebuilds the purchased order from a successful charge.
func OrderFromCharge(data *models.ChargeData) *models.Order {
	items := make([]models.OrderItem, 0, len(data.Metadata.LineItems))
	for _, li := range data.Metadata.LineItems {
		image := ""
		if len(li.Images) > 0 {
			image = li.Images[0]
		}
		items = append(items, models.OrderItem{
			Product:  li.Metadata.ProductID,
			Name:     li.Name,
			Price:    models.FromMinorUnits(li.Price),
			Quantity: li.Quantity,
			Image:    image,
			Metadata: map[string]string{"productId": li.Metadata.ProductID},
		})
	}

	return &models.Order{
		User:         data.Metadata.UserID,
		ShippingInfo: data.Metadata.ShippingInfo,
		OrderItems:   items,
		PaymentInfo: models.PaymentInfo{
			ID:         data.Reference,
			Status:     data.Status,
			AmountPaid: models.FromMinorUnits(data.Amount),
			TaxPaid:    decimal.Zero,
		},
		OrderStatus: models.OrderStatusProcessing,
	}
}
