package request

import (
	"strings"

	"marketplace/internal/usecase/commands"

	"github.com/google/uuid"
)

type CheckoutItemRequest struct {
	ProductID      uuid.UUID  `json:"product_id" binding:"required"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	ProductName    string     `json:"product_name" binding:"required"`
	Quantity       int32      `json:"quantity" binding:"required,gt=0"`
	UnitPriceCents int64      `json:"unit_price_cents" binding:"required,gte=0"`
}

type CreateOrderRequest struct {
	Items             []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddressID uuid.UUID             `json:"shipping_address_id" binding:"required"`
	CardToken         string                `json:"card_token" binding:"required"`
	Currency          string                `json:"currency" binding:"required,len=3"`
}

func (r CreateOrderRequest) ToParams() commands.CreateOrderParams {
	items := make([]commands.CartItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = commands.CartItem{
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			ProductName:    strings.TrimSpace(it.ProductName),
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		}
	}
	return commands.CreateOrderParams{
		Items:             items,
		ShippingAddressID: r.ShippingAddressID,
		CardToken:         r.CardToken,
		Currency:          strings.ToUpper(r.Currency),
	}
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}
