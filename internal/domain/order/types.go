package order

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// next maps each state to its single forward successor. Cancellation is
// handled separately because it is reachable from every non-terminal state.
var next = map[Status]Status{
	StatusPendingPayment: StatusConfirmed,
	StatusConfirmed:      StatusProcessing,
	StatusProcessing:     StatusShipped,
	StatusShipped:        StatusDelivered,
}

// CanAdvanceTo reports whether target is the immediate forward successor of s.
func (s Status) CanAdvanceTo(target Status) bool {
	succ, ok := next[s]
	return ok && succ == target
}

type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) String() string {
	return string(s)
}
