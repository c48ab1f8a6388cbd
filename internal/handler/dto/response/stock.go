package response

import (
	"time"

	"marketplace/internal/usecase/commands"

	"github.com/google/uuid"
)

type ItemAvailabilityResponse struct {
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	RequestedQuantity int32      `json:"requested_quantity"`
	SellableQuantity  int32      `json:"sellable_quantity"`
	IsAvailable       bool       `json:"is_available"`
}

type CheckStockResponse struct {
	AllAvailable bool                       `json:"all_available"`
	Items        []ItemAvailabilityResponse `json:"items"`
}

func FromCheckStockResult(result *commands.CheckStockResult) *CheckStockResponse {
	items := make([]ItemAvailabilityResponse, 0, len(result.Items))
	for _, it := range result.Items {
		items = append(items, ItemAvailabilityResponse{
			ProductID:         it.ProductID,
			VariantID:         it.VariantID,
			RequestedQuantity: it.RequestedQuantity,
			SellableQuantity:  it.SellableQuantity,
			IsAvailable:       it.IsAvailable,
		})
	}
	return &CheckStockResponse{AllAvailable: result.AllAvailable, Items: items}
}

type ReserveResponse struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	AlreadyActive bool      `json:"already_active"`
}

func FromReserveResult(result *commands.ReserveResult) *ReserveResponse {
	return &ReserveResponse{
		ReservationID: result.ReservationID,
		ExpiresAt:     result.ExpiresAt,
		AlreadyActive: result.AlreadyActive,
	}
}
