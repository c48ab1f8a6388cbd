package request

import (
	"marketplace/internal/usecase/commands"

	"github.com/google/uuid"
)

type StockItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int32      `json:"quantity" binding:"required,gt=0"`
}

type CheckStockRequest struct {
	Items []StockItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (r CheckStockRequest) ToItems() []commands.StockItem {
	items := make([]commands.StockItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = commands.StockItem{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity}
	}
	return items
}

type UpsertStockRequest struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Available int32      `json:"available_quantity" binding:"gte=0"`
}

func (r UpsertStockRequest) ToParams() commands.UpsertStockParams {
	return commands.UpsertStockParams{
		Item:      commands.StockItem{ProductID: r.ProductID, VariantID: r.VariantID},
		Available: r.Available,
	}
}
