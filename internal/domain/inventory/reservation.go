package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyReservation      = errors.New("reservation needs at least one line")
	ErrInvalidTTL            = errors.New("reservation ttl must be positive")
	ErrReservationNotActive  = errors.New("reservation is not active")
	ErrReservationExpired    = errors.New("reservation has expired")
	ErrReservationNotExpired = errors.New("reservation has not expired yet")
	ErrDuplicateLine         = errors.New("duplicate line for the same inventory record")
)

// Reservation is a time-bounded hold on one or more inventory records. Its ID
// doubles as the caller's idempotency key: repeated operations with the same
// ID must observe the first call's outcome.
type Reservation struct {
	id        uuid.UUID
	lines     []Line
	status    Status
	createdAt time.Time
	expiresAt time.Time
}

func NewReservation(id uuid.UUID, lines []Line, now time.Time, ttl time.Duration) (*Reservation, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyReservation
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, ErrNegativeQuantity
		}
		for _, prev := range lines[:i] {
			if l.Key.Equals(prev.Key) {
				return nil, ErrDuplicateLine
			}
		}
	}

	return &Reservation{
		id:        id,
		lines:     lines,
		status:    StatusActive,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}, nil
}

func ReconstructReservation(id uuid.UUID, lines []Line, status Status, createdAt, expiresAt time.Time) *Reservation {
	return &Reservation{
		id:        id,
		lines:     lines,
		status:    status,
		createdAt: createdAt,
		expiresAt: expiresAt,
	}
}

func (r *Reservation) ID() uuid.UUID        { return r.id }
func (r *Reservation) Status() Status       { return r.status }
func (r *Reservation) CreatedAt() time.Time { return r.createdAt }
func (r *Reservation) ExpiresAt() time.Time { return r.expiresAt }

// Lines returns a copy so callers cannot mutate the hold.
func (r *Reservation) Lines() []Line {
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

func (r *Reservation) IsActive() bool {
	return r.status == StatusActive
}

func (r *Reservation) HasExpired(now time.Time) bool {
	return now.After(r.expiresAt)
}

// Confirm makes the hold a permanent deduction. Only an unexpired ACTIVE
// reservation may confirm; an expired one must go through Expire instead so
// the held quantity returns to the pool.
func (r *Reservation) Confirm(now time.Time) error {
	if r.status != StatusActive {
		return ErrReservationNotActive
	}
	if r.HasExpired(now) {
		return ErrReservationExpired
	}
	r.status = StatusConfirmed
	return nil
}

// Release returns the hold to the pool by explicit caller decision.
func (r *Reservation) Release() error {
	if r.status != StatusActive {
		return ErrReservationNotActive
	}
	r.status = StatusReleased
	return nil
}

// Expire is the sweeper's transition; same ledger effect as Release.
func (r *Reservation) Expire(now time.Time) error {
	if r.status != StatusActive {
		return ErrReservationNotActive
	}
	if !r.HasExpired(now) {
		return ErrReservationNotExpired
	}
	r.status = StatusExpired
	return nil
}
