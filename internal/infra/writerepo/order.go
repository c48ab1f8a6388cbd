package writerepo

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/domain/order"
	"marketplace/internal/infra"
	"marketplace/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderRepository struct {
	db db.DBTX
}

func NewOrderRepository(dbtx db.DBTX) *OrderRepository {
	return &OrderRepository{db: dbtx}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, customer_id, shipping_address_id, reservation_id,
			status, payment_status, total_cents, currency, restocked_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID(), o.OrderNumber(), o.CustomerID(), o.ShippingAddressID(), o.ReservationID(),
		o.Status().String(), o.PaymentStatus().String(), o.TotalCents(), o.Currency(),
		o.RestockedAt(), o.CreatedAt(), o.UpdatedAt())
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapRepoErr("order already exists", err, infra.KindDuplicate)
		}
		return infra.WrapRepoErr("failed to create order", err)
	}

	for i, item := range o.Items() {
		_, err := r.db.Exec(ctx, `
			INSERT INTO order_items (order_id, line_no, product_id, variant_id, product_name, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID(), i, item.Key.ProductID, variantKey(item.Key), item.ProductName, item.Quantity, item.UnitPriceCents)
		if err != nil {
			return infra.WrapRepoErr("failed to create order item", err)
		}
	}
	return nil
}

func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	row := r.db.QueryRow(ctx, `
		SELECT order_number, customer_id, shipping_address_id, reservation_id,
		       status, payment_status, total_cents, currency, restocked_at, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE`, id)

	var (
		orderNumber                               string
		customerID, shippingAddressID, reservedID uuid.UUID
		status, paymentStatus, currency           string
		totalCents                                int64
		restockedAt                               *time.Time
		createdAt, updatedAt                      time.Time
	)
	err := row.Scan(&orderNumber, &customerID, &shippingAddressID, &reservedID,
		&status, &paymentStatus, &totalCents, &currency, &restockedAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("order not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find order", err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}

	return order.Reconstruct(
		id, orderNumber, customerID, shippingAddressID, reservedID,
		order.Status(status), order.PaymentStatus(paymentStatus),
		items, totalCents, currency, restockedAt, createdAt, updatedAt,
	), nil
}

// Save persists the mutable order fields; items are immutable snapshots and
// never rewritten.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3, restocked_at = $4, updated_at = $5
		WHERE id = $1`,
		o.ID(), o.Status().String(), o.PaymentStatus().String(), o.RestockedAt(), o.UpdatedAt())
	if err != nil {
		return infra.WrapRepoErr("failed to save order", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	return nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]order.Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT product_id, variant_id, product_name, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY line_no`, orderID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load order items", err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var (
			productID, variantID uuid.UUID
			name                 string
			qty                  int32
			unitPrice            int64
		)
		if err := rows.Scan(&productID, &variantID, &name, &qty, &unitPrice); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order item", err)
		}
		key := inventory.ItemKey{ProductID: productID}
		if variantID != uuid.Nil {
			v := variantID
			key.VariantID = &v
		}
		items = append(items, order.Item{Key: key, ProductName: name, Quantity: qty, UnitPriceCents: unitPrice})
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order items", err)
	}
	return items, nil
}
