package inventory

import (
	"time"

	"github.com/google/uuid"
)

const EventReservationExpired = "reservation.expired"

type ReservationExpiredEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ExpiredAt     time.Time `json:"expired_at"`
	LineCount     int       `json:"line_count"`
}
