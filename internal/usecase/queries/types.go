package queries

import (
	"time"

	"github.com/google/uuid"
)

type OrderItemView struct {
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	ProductName    string     `json:"product_name"`
	Quantity       int32      `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
}

type OrderView struct {
	ID                uuid.UUID       `json:"id"`
	OrderNumber       string          `json:"order_number"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	ShippingAddressID uuid.UUID       `json:"shipping_address_id"`
	ReservationID     uuid.UUID       `json:"reservation_id"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"payment_status"`
	Items             []OrderItemView `json:"items"`
	TotalCents        int64           `json:"total_cents"`
	Currency          string          `json:"currency"`
	RestockedAt       *time.Time      `json:"restocked_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type OrderListView struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	TotalCents  int64     `json:"total_cents"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

type ReconciliationFlagView struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	Reason        string    `json:"reason"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
