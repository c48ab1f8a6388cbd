package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrPaymentNotCaptured = errors.New("payment is not captured")

type PaymentState string

const (
	PaymentAuthorized PaymentState = "authorized"
	PaymentCaptured   PaymentState = "captured"
	PaymentFailed     PaymentState = "failed"
	PaymentRefunded   PaymentState = "refunded"
)

// Payment records one authorization/capture attempt against an order.
// cardReference is the processor's opaque token; raw card data never enters
// this system.
type Payment struct {
	id            uuid.UUID
	orderID       uuid.UUID
	processorRef  string
	cardReference string
	state         PaymentState
	amountCents   int64
	currency      string
	createdAt     time.Time
}

func NewCapturedPayment(orderID uuid.UUID, processorRef, cardReference string, amountCents int64, currency string, now time.Time) (*Payment, error) {
	if amountCents < 0 {
		return nil, ErrNegativeAmount
	}
	return &Payment{
		id:            uuid.New(),
		orderID:       orderID,
		processorRef:  processorRef,
		cardReference: cardReference,
		state:         PaymentCaptured,
		amountCents:   amountCents,
		currency:      currency,
		createdAt:     now,
	}, nil
}

func ReconstructPayment(id, orderID uuid.UUID, processorRef, cardReference string, state PaymentState, amountCents int64, currency string, createdAt time.Time) *Payment {
	return &Payment{
		id:            id,
		orderID:       orderID,
		processorRef:  processorRef,
		cardReference: cardReference,
		state:         state,
		amountCents:   amountCents,
		currency:      currency,
		createdAt:     createdAt,
	}
}

func (p *Payment) ID() uuid.UUID        { return p.id }
func (p *Payment) OrderID() uuid.UUID   { return p.orderID }
func (p *Payment) ProcessorRef() string { return p.processorRef }
func (p *Payment) CardReference() string { return p.cardReference }
func (p *Payment) State() PaymentState  { return p.state }
func (p *Payment) AmountCents() int64   { return p.amountCents }
func (p *Payment) Currency() string     { return p.currency }
func (p *Payment) CreatedAt() time.Time { return p.createdAt }

// MarkRefunded flips a captured payment to refunded as part of cancellation
// compensation.
func (p *Payment) MarkRefunded() error {
	if p.state != PaymentCaptured {
		return ErrPaymentNotCaptured
	}
	p.state = PaymentRefunded
	return nil
}
