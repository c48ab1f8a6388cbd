package shared

import (
	"context"
	"time"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/domain/order"

	"github.com/google/uuid"
)

// UnitOfWork runs fn inside one storage transaction. Everything touched
// through tx commits or rolls back together; this is what makes multi-item
// reserves all-or-nothing and keeps the ledger linearized per record.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Inventory() InventoryRepository
	Reservations() ReservationRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Reconciliation() ReconciliationRepository
}

// InventoryRepository mutates ledger rows with atomic conditional updates.
// Reserve-side checks happen in the store (WHERE available - reserved >= qty)
// so two concurrent holds on the last unit cannot both win.
type InventoryRepository interface {
	// ReserveQuantity increments reserved iff sellable capacity suffices.
	// Returns a CONFLICT-kind error when the condition fails and a
	// NOT_FOUND-kind error for an unknown record.
	ReserveQuantity(ctx context.Context, key inventory.ItemKey, qty int32) error
	// ReleaseQuantity decrements reserved.
	ReleaseQuantity(ctx context.Context, key inventory.ItemKey, qty int32) error
	// ConfirmQuantity decrements both available and reserved.
	ConfirmQuantity(ctx context.Context, key inventory.ItemKey, qty int32) error
	// RestockQuantity increments available after an explicit restock decision.
	RestockQuantity(ctx context.Context, key inventory.ItemKey, qty int32) error
	// Upsert creates or replaces a ledger record (vendor stock management).
	Upsert(ctx context.Context, rec *inventory.Record) error
	// FindByKey loads one record without locking it.
	FindByKey(ctx context.Context, key inventory.ItemKey) (*inventory.Record, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, res *inventory.Reservation) error
	// FindByIDForUpdate locks the reservation row for the rest of the
	// transaction so confirm, release and the sweeper serialize per
	// reservation.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Reservation, error)
	// UpdateStatus persists a status transition guarded by the previous
	// status; returns false when the row was no longer in `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to inventory.Status) (bool, error)
	// ListExpiredForUpdate locks and returns up to limit ACTIVE reservations
	// whose expiry is in the past, skipping rows locked by concurrent
	// confirms.
	ListExpiredForUpdate(ctx context.Context, now time.Time, limit int) ([]*inventory.Reservation, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *order.Order) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error)
	Save(ctx context.Context, o *order.Order) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *order.Payment) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*order.Payment, error)
	Save(ctx context.Context, p *order.Payment) error
}

// ReconciliationRepository records fatal inconsistencies (payment captured but
// stock confirmation failed) for the ops tooling to work through manually.
type ReconciliationRepository interface {
	CreateFlag(ctx context.Context, flag ReconciliationFlag) error
}

type ReconciliationFlag struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	ReservationID uuid.UUID
	Reason        string
	Detail        string
	CreatedAt     time.Time
}
