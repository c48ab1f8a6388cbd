package readstore

import (
	"context"

	"marketplace/internal/infra"
	"marketplace/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderReadStore serves order queries straight from the pool, outside any
// unit of work. Reads are advisory and never lock rows.
type OrderReadStore struct {
	pool *pgxpool.Pool
}

func NewOrderReadStore(pool *pgxpool.Pool) *OrderReadStore {
	return &OrderReadStore{pool: pool}
}

func (r *OrderReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT order_number, customer_id, shipping_address_id, reservation_id,
		       status, payment_status, total_cents, currency, restocked_at, created_at, updated_at
		FROM orders
		WHERE id = $1`, id)

	view := &queries.OrderView{ID: id}
	err := row.Scan(&view.OrderNumber, &view.CustomerID, &view.ShippingAddressID, &view.ReservationID,
		&view.Status, &view.PaymentStatus, &view.TotalCents, &view.Currency,
		&view.RestockedAt, &view.CreatedAt, &view.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, infra.WrapRepoErr("order not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find order", err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	view.Items = items
	return view, nil
}

func (r *OrderReadStore) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*queries.OrderListView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_number, status, total_cents, currency, created_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list orders", err)
	}
	defer rows.Close()

	views := []*queries.OrderListView{}
	for rows.Next() {
		v := &queries.OrderListView{}
		if err := rows.Scan(&v.ID, &v.OrderNumber, &v.Status, &v.TotalCents, &v.Currency, &v.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order row", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order rows", err)
	}
	return views, nil
}

func (r *OrderReadStore) ListReconciliationFlags(ctx context.Context, limit int) ([]*queries.ReconciliationFlagView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, reservation_id, reason, detail, created_at
		FROM reconciliation_flags
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list reconciliation flags", err)
	}
	defer rows.Close()

	views := []*queries.ReconciliationFlagView{}
	for rows.Next() {
		v := &queries.ReconciliationFlagView{}
		if err := rows.Scan(&v.ID, &v.OrderID, &v.ReservationID, &v.Reason, &v.Detail, &v.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan reconciliation flag", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reconciliation flags", err)
	}
	return views, nil
}

func (r *OrderReadStore) loadItems(ctx context.Context, orderID uuid.UUID) ([]queries.OrderItemView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, variant_id, product_name, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY line_no`, orderID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load order items", err)
	}
	defer rows.Close()

	var items []queries.OrderItemView
	for rows.Next() {
		var (
			item      queries.OrderItemView
			variantID uuid.UUID
		)
		if err := rows.Scan(&item.ProductID, &variantID, &item.ProductName, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order item", err)
		}
		if variantID != uuid.Nil {
			v := variantID
			item.VariantID = &v
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order items", err)
	}
	return items, nil
}

var _ queries.OrderReadStore = (*OrderReadStore)(nil)
