package order

import (
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain/inventory"

	"github.com/google/uuid"
)

var (
	ErrEmptyOrder           = errors.New("order needs at least one item")
	ErrNegativeAmount       = errors.New("amount cannot be negative")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrOrderTerminal        = errors.New("order is in a terminal state")
	ErrAlreadyRestocked     = errors.New("order has already been restocked")
	ErrOrderNotCancelled    = errors.New("order is not cancelled")
)

// Item is a snapshot of one cart line at purchase time. Prices are frozen
// here; later catalog edits never change an existing order.
type Item struct {
	Key            inventory.ItemKey
	ProductName    string
	Quantity       int32
	UnitPriceCents int64
}

func (i Item) SubtotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// Order is the durable record of one successful checkout saga run.
// reservationID links back to the stock hold that produced it.
type Order struct {
	id                uuid.UUID
	orderNumber       string
	customerID        uuid.UUID
	shippingAddressID uuid.UUID
	reservationID     uuid.UUID
	status            Status
	paymentStatus     PaymentStatus
	items             []Item
	totalCents        int64
	currency          string
	restockedAt       *time.Time
	createdAt         time.Time
	updatedAt         time.Time
}

// NewConfirmed builds an order that has already passed payment. The saga never
// persists an order in pending_payment: externally the first visible state is
// confirmed.
func NewConfirmed(
	customerID, shippingAddressID, reservationID uuid.UUID,
	items []Item,
	currency string,
	now time.Time,
) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	var total int64
	for _, it := range items {
		if it.Quantity <= 0 || it.UnitPriceCents < 0 {
			return nil, ErrNegativeAmount
		}
		total += it.SubtotalCents()
	}

	id := uuid.New()
	return &Order{
		id:                id,
		orderNumber:       generateOrderNumber(id, now),
		customerID:        customerID,
		shippingAddressID: shippingAddressID,
		reservationID:     reservationID,
		status:            StatusConfirmed,
		paymentStatus:     PaymentStatusPaid,
		items:             items,
		totalCents:        total,
		currency:          currency,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

func Reconstruct(
	id uuid.UUID,
	orderNumber string,
	customerID, shippingAddressID, reservationID uuid.UUID,
	status Status,
	paymentStatus PaymentStatus,
	items []Item,
	totalCents int64,
	currency string,
	restockedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Order {
	return &Order{
		id:                id,
		orderNumber:       orderNumber,
		customerID:        customerID,
		shippingAddressID: shippingAddressID,
		reservationID:     reservationID,
		status:            status,
		paymentStatus:     paymentStatus,
		items:             items,
		totalCents:        totalCents,
		currency:          currency,
		restockedAt:       restockedAt,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (o *Order) ID() uuid.UUID                { return o.id }
func (o *Order) OrderNumber() string          { return o.orderNumber }
func (o *Order) CustomerID() uuid.UUID        { return o.customerID }
func (o *Order) ShippingAddressID() uuid.UUID { return o.shippingAddressID }
func (o *Order) ReservationID() uuid.UUID     { return o.reservationID }
func (o *Order) Status() Status               { return o.status }
func (o *Order) PaymentStatus() PaymentStatus { return o.paymentStatus }
func (o *Order) TotalCents() int64            { return o.totalCents }
func (o *Order) Currency() string             { return o.currency }
func (o *Order) RestockedAt() *time.Time      { return o.restockedAt }
func (o *Order) CreatedAt() time.Time         { return o.createdAt }
func (o *Order) UpdatedAt() time.Time         { return o.updatedAt }

func (o *Order) Items() []Item {
	out := make([]Item, len(o.items))
	copy(out, o.items)
	return out
}

// Advance moves the order one step forward (confirmed -> processing ->
// shipped -> delivered). It returns the previous status for the emitted event.
func (o *Order) Advance(target Status, now time.Time) (Status, error) {
	prev := o.status
	if prev.IsTerminal() {
		return prev, ErrOrderTerminal
	}
	if !prev.CanAdvanceTo(target) {
		return prev, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, target)
	}
	o.status = target
	o.updatedAt = now
	return prev, nil
}

// Cancel moves any non-terminal order to cancelled. needsRefund reports
// whether a compensating refund instruction must be produced for the charge.
func (o *Order) Cancel(now time.Time) (prev Status, needsRefund bool, err error) {
	prev = o.status
	if prev.IsTerminal() {
		return prev, false, ErrOrderTerminal
	}
	needsRefund = o.paymentStatus == PaymentStatusPaid
	o.status = StatusCancelled
	if needsRefund {
		o.paymentStatus = PaymentStatusRefunded
	}
	o.updatedAt = now
	return prev, needsRefund, nil
}

// MarkRestocked records the explicit restocking decision for a cancelled
// order. Restocking is never an implicit side effect of cancellation.
func (o *Order) MarkRestocked(now time.Time) error {
	if o.status != StatusCancelled {
		return ErrOrderNotCancelled
	}
	if o.restockedAt != nil {
		return ErrAlreadyRestocked
	}
	t := now
	o.restockedAt = &t
	o.updatedAt = now
	return nil
}

// Order numbers only need to be unique; the date prefix keeps them
// human-scannable in vendor dashboards.
func generateOrderNumber(id uuid.UUID, now time.Time) string {
	return fmt.Sprintf("ORD-%s-%08X", now.UTC().Format("20060102"), id.ID())
}
