package commands

import (
	"context"
	"time"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/pkg/errs"

	"github.com/google/uuid"
)

// Business sentinels surfaced to callers with stable codes. Transient infra
// failures are marked with ErrServiceUnavailable and retried only for
// idempotent operations.
var (
	ErrInsufficientStock      = errs.New("insufficient stock")
	ErrReservationNotFound    = errs.New("reservation not found")
	ErrReservationExpired     = errs.New("reservation expired")
	ErrReservationNotReusable = errs.New("reservation id was already consumed")
	ErrPaymentDeclined        = errs.New("payment declined")
	ErrServiceUnavailable     = errs.New("service unavailable")
	ErrOrderNotFound          = errs.New("order not found")
	ErrInvalidTransition      = errs.New("invalid order status transition")
	ErrNothingToRestock       = errs.New("reservation stock was never deducted")
	ErrInternalInconsistency  = errs.New("internal inconsistency")
	ErrEmptyCart              = errs.New("cart has no items")
)

type StockItem struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int32
}

func (i StockItem) Key() inventory.ItemKey {
	return inventory.ItemKey{ProductID: i.ProductID, VariantID: i.VariantID}
}

type ItemAvailability struct {
	ProductID         uuid.UUID
	VariantID         *uuid.UUID
	RequestedQuantity int32
	SellableQuantity  int32
	IsAvailable       bool
}

type CheckStockResult struct {
	AllAvailable bool
	Items        []ItemAvailability
}

type ReserveResult struct {
	ReservationID uuid.UUID
	ExpiresAt     time.Time
	// AlreadyActive marks an idempotent replay of an earlier Reserve call.
	AlreadyActive bool
}

// StockCommands is the stock reservation coordinator. Every operation takes a
// caller-supplied reservation id where applicable and is safe to retry.
type StockCommands interface {
	CheckStock(ctx context.Context, items []StockItem) (*CheckStockResult, error)
	Reserve(ctx context.Context, reservationID uuid.UUID, items []StockItem, ttl time.Duration) (*ReserveResult, error)
	Release(ctx context.Context, reservationID uuid.UUID) error
	ConfirmDeduction(ctx context.Context, reservationID uuid.UUID) error
	// ExpireDue releases all ACTIVE reservations past their TTL, up to limit,
	// and reports what expired. Called by the sweeper.
	ExpireDue(ctx context.Context, limit int) ([]inventory.ReservationExpiredEvent, error)
}

// SellableQuantity is the read-side answer for one ledger record. Found is
// false for records the catalog has never stocked.
type SellableQuantity struct {
	Key      inventory.ItemKey
	Sellable int32
	Found    bool
}

// StockReads serves CheckStock without touching the write path. A short-TTL
// cache may sit in front of it; Reserve and ConfirmDeduction never consult it.
type StockReads interface {
	Sellable(ctx context.Context, keys []inventory.ItemKey) ([]SellableQuantity, error)
}

type ChargeRequest struct {
	AmountCents    int64
	Currency       string
	CardToken      string
	IdempotencyKey uuid.UUID
}

type ChargeResult struct {
	ProcessorRef  string
	FailureReason string
}

// PaymentAuthorizer is the external payment processor capability. Charge is
// not assumed idempotent by this module; the idempotency key is forwarded so
// a gateway that supports one can dedupe, but the saga never blindly retries
// a charge.
type PaymentAuthorizer interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, processorRef string, amountCents int64, currency string) error
}

// EventPublisher is the fire-and-forget sink for domain events. The saga
// logs publish failures and moves on; delivery is someone else's contract.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}
