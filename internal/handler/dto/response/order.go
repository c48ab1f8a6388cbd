package response

import (
	"time"

	"marketplace/internal/domain/order"
	"marketplace/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type OrderItemResponse struct {
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	ProductName    string     `json:"product_name"`
	Quantity       int32      `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
}

type OrderResponse struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       string              `json:"order_number"`
	CustomerID        uuid.UUID           `json:"customer_id"`
	ShippingAddressID uuid.UUID           `json:"shipping_address_id"`
	ReservationID     uuid.UUID           `json:"reservation_id"`
	Status            string              `json:"status"`
	PaymentStatus     string              `json:"payment_status"`
	Items             []OrderItemResponse `json:"items"`
	TotalCents        int64               `json:"total_cents"`
	Currency          string              `json:"currency"`
	RestockedAt       *time.Time          `json:"restocked_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

type OrderListResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	TotalCents  int64     `json:"total_cents"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromOrderView maps the read-model view onto the response shape; the two
// are kept field-compatible so the copy stays mechanical.
func FromOrderView(view *queries.OrderView) (*OrderResponse, error) {
	resp := &OrderResponse{}
	if err := copier.Copy(resp, view); err != nil {
		return nil, err
	}
	return resp, nil
}

func FromOrderListViews(views []*queries.OrderListView) ([]*OrderListResponse, error) {
	out := make([]*OrderListResponse, 0, len(views))
	for _, v := range views {
		resp := &OrderListResponse{}
		if err := copier.Copy(resp, v); err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// FromOrderEntity renders a write-path result without a second read.
func FromOrderEntity(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items()))
	for _, it := range o.Items() {
		items = append(items, OrderItemResponse{
			ProductID:      it.Key.ProductID,
			VariantID:      it.Key.VariantID,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return &OrderResponse{
		ID:                o.ID(),
		OrderNumber:       o.OrderNumber(),
		CustomerID:        o.CustomerID(),
		ShippingAddressID: o.ShippingAddressID(),
		ReservationID:     o.ReservationID(),
		Status:            o.Status().String(),
		PaymentStatus:     o.PaymentStatus().String(),
		Items:             items,
		TotalCents:        o.TotalCents(),
		Currency:          o.Currency(),
		RestockedAt:       o.RestockedAt(),
		CreatedAt:         o.CreatedAt(),
		UpdatedAt:         o.UpdatedAt(),
	}
}

type ReconciliationFlagResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	Reason        string    `json:"reason"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

func FromReconciliationFlagViews(views []*queries.ReconciliationFlagView) ([]*ReconciliationFlagResponse, error) {
	out := make([]*ReconciliationFlagResponse, 0, len(views))
	for _, v := range views {
		resp := &ReconciliationFlagResponse{}
		if err := copier.Copy(resp, v); err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}
