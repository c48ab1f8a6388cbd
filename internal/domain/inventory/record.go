package inventory

import (
	"errors"
	"time"
)

var (
	ErrNegativeQuantity    = errors.New("quantity must be positive")
	ErrInsufficientStock   = errors.New("insufficient sellable stock")
	ErrReservedExceedsHeld = errors.New("reserved quantity exceeds available quantity")
)

// Record is one row of the inventory ledger. Invariant: 0 <= reserved <= available.
// Records are mutated only through the reservation coordinator's transactions.
type Record struct {
	key       ItemKey
	available int32
	reserved  int32
	updatedAt time.Time
}

func NewRecord(key ItemKey, available int32) (*Record, error) {
	if available < 0 {
		return nil, ErrNegativeQuantity
	}
	return &Record{key: key, available: available}, nil
}

func ReconstructRecord(key ItemKey, available, reserved int32, updatedAt time.Time) *Record {
	return &Record{
		key:       key,
		available: available,
		reserved:  reserved,
		updatedAt: updatedAt,
	}
}

func (r *Record) Key() ItemKey         { return r.key }
func (r *Record) Available() int32     { return r.available }
func (r *Record) Reserved() int32      { return r.reserved }
func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

// Sellable is what a new reservation may still claim.
func (r *Record) Sellable() int32 {
	return r.available - r.reserved
}

func (r *Record) CanReserve(qty int32) bool {
	return qty > 0 && r.Sellable() >= qty
}

// Reserve places a hold. The ledger invariant is re-checked so a corrupted
// row can never go further negative.
func (r *Record) Reserve(qty int32) error {
	if qty <= 0 {
		return ErrNegativeQuantity
	}
	if r.Sellable() < qty {
		return ErrInsufficientStock
	}
	r.reserved += qty
	return nil
}

// ReleaseHold returns a previously reserved quantity to the sellable pool.
func (r *Record) ReleaseHold(qty int32) error {
	if qty <= 0 {
		return ErrNegativeQuantity
	}
	if r.reserved < qty {
		return ErrReservedExceedsHeld
	}
	r.reserved -= qty
	return nil
}

// ConfirmHold converts a hold into a permanent deduction.
func (r *Record) ConfirmHold(qty int32) error {
	if qty <= 0 {
		return ErrNegativeQuantity
	}
	if r.reserved < qty {
		return ErrReservedExceedsHeld
	}
	r.reserved -= qty
	r.available -= qty
	return nil
}

// Restock adds quantity back after an explicit restocking decision.
func (r *Record) Restock(qty int32) error {
	if qty <= 0 {
		return ErrNegativeQuantity
	}
	r.available += qty
	return nil
}
