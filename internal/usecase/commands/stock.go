package commands

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/infra"
	"marketplace/internal/pkg/clock"
	"marketplace/internal/pkg/errs"
	"marketplace/internal/usecase/shared"

	"github.com/google/uuid"
)

type stockUseCaseImpl struct {
	uow   shared.UnitOfWork
	reads StockReads
	clock clock.Clock
}

func NewStockUseCase(uow shared.UnitOfWork, reads StockReads, clk clock.Clock) StockCommands {
	return &stockUseCaseImpl{
		uow:   uow,
		reads: reads,
		clock: clk,
	}
}

// CheckStock is advisory: it never mutates the ledger and only fails on
// transport problems, not for business reasons.
func (s *stockUseCaseImpl) CheckStock(ctx context.Context, items []StockItem) (*CheckStockResult, error) {
	if len(items) == 0 {
		return &CheckStockResult{AllAvailable: true}, nil
	}

	keys := make([]inventory.ItemKey, len(items))
	for i, it := range items {
		keys[i] = it.Key()
	}

	quantities, err := s.reads.Sellable(ctx, keys)
	if err != nil {
		return nil, errs.Mark(err, ErrServiceUnavailable)
	}

	result := &CheckStockResult{AllAvailable: true, Items: make([]ItemAvailability, len(items))}
	for i, it := range items {
		sellable, found := lookupSellable(quantities, it.Key())
		avail := ItemAvailability{
			ProductID:         it.ProductID,
			VariantID:         it.VariantID,
			RequestedQuantity: it.Quantity,
		}
		if found {
			avail.SellableQuantity = sellable
			avail.IsAvailable = sellable >= it.Quantity && it.Quantity > 0
		}
		if !avail.IsAvailable {
			result.AllAvailable = false
		}
		result.Items[i] = avail
	}
	return result, nil
}

// errReserveRaced marks a duplicate-key insert from two concurrent Reserve
// calls with the same id. FOR UPDATE cannot lock a row that does not exist
// yet, so both callers can pass the not-found check; the loser's transaction
// is already aborted and the replay has to start over.
var errReserveRaced = errs.New("reservation insert raced with a concurrent call")

// Reserve places an all-or-nothing hold across the item set. A replay with an
// id that is still ACTIVE returns the original outcome unchanged; an id that
// already reached a terminal state cannot be reused.
func (s *stockUseCaseImpl) Reserve(ctx context.Context, reservationID uuid.UUID, items []StockItem, ttl time.Duration) (*ReserveResult, error) {
	if len(items) == 0 {
		return nil, inventory.ErrEmptyReservation
	}

	result, err := s.reserveOnce(ctx, reservationID, items, ttl)
	if err != nil && errors.Is(err, errReserveRaced) {
		// The winner's row is visible now, so the retry resolves through the
		// idempotent-replay branch.
		result, err = s.reserveOnce(ctx, reservationID, items, ttl)
		if err != nil && errors.Is(err, errReserveRaced) {
			err = errs.Mark(err, ErrServiceUnavailable)
		}
	}
	return result, err
}

func (s *stockUseCaseImpl) reserveOnce(ctx context.Context, reservationID uuid.UUID, items []StockItem, ttl time.Duration) (*ReserveResult, error) {
	var result *ReserveResult
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		existing, err := tx.Reservations().FindByIDForUpdate(ctx, reservationID)
		switch {
		case err == nil:
			if existing.IsActive() {
				result = &ReserveResult{
					ReservationID: reservationID,
					ExpiresAt:     existing.ExpiresAt(),
					AlreadyActive: true,
				}
				return nil
			}
			return ErrReservationNotReusable
		case !infra.IsKind(err, infra.KindNotFound):
			return err
		}

		lines := make([]inventory.Line, len(items))
		for i, it := range items {
			lines[i] = inventory.Line{Key: it.Key(), Quantity: it.Quantity}
		}

		res, err := inventory.NewReservation(reservationID, lines, s.clock.Now(), ttl)
		if err != nil {
			return err
		}

		// Conditional increments: any failed line aborts the transaction, so
		// no partial hold survives.
		for _, line := range res.Lines() {
			if err := tx.Inventory().ReserveQuantity(ctx, line.Key, line.Quantity); err != nil {
				if infra.IsKind(err, infra.KindConflict) || infra.IsKind(err, infra.KindNotFound) {
					return errs.Mark(errs.Wrapf(err, "item %s", line.Key), ErrInsufficientStock)
				}
				return err
			}
		}

		if err := tx.Reservations().Create(ctx, res); err != nil {
			if infra.IsKind(err, infra.KindDuplicate) {
				return errs.Mark(err, errReserveRaced)
			}
			return err
		}

		result = &ReserveResult{ReservationID: reservationID, ExpiresAt: res.ExpiresAt()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Release is an idempotent no-op for missing or already-terminal
// reservations.
func (s *stockUseCaseImpl) Release(ctx context.Context, reservationID uuid.UUID) error {
	return s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		res, err := tx.Reservations().FindByIDForUpdate(ctx, reservationID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil
			}
			return err
		}
		if !res.IsActive() {
			return nil
		}
		if err := res.Release(); err != nil {
			return err
		}
		return s.settleHold(ctx, tx, res, inventory.StatusReleased, false)
	})
}

// ConfirmDeduction permanently consumes the held stock. Confirming an
// already-CONFIRMED reservation is a no-op; confirming after expiry fails
// with ErrReservationExpired and releases the hold the same way the sweeper
// would have.
func (s *stockUseCaseImpl) ConfirmDeduction(ctx context.Context, reservationID uuid.UUID) error {
	// The lapsed-hold transition must commit, so the closure reports it as an
	// outcome rather than an error; an error return would roll the release
	// back along with the transaction.
	var lapsed bool
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		res, err := tx.Reservations().FindByIDForUpdate(ctx, reservationID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		switch res.Status() {
		case inventory.StatusConfirmed:
			return nil
		case inventory.StatusExpired, inventory.StatusReleased:
			lapsed = true
			return nil
		}

		now := s.clock.Now()
		if res.HasExpired(now) {
			// Whoever observes the expiry first transitions the row; here the
			// confirmer lost the race against the clock, not the sweeper.
			if err := res.Expire(now); err != nil {
				return err
			}
			if err := s.settleHold(ctx, tx, res, inventory.StatusExpired, false); err != nil {
				return err
			}
			lapsed = true
			return nil
		}

		if err := res.Confirm(now); err != nil {
			return err
		}
		return s.settleHold(ctx, tx, res, inventory.StatusConfirmed, true)
	})
	if err != nil {
		return err
	}
	if lapsed {
		return ErrReservationExpired
	}
	return nil
}

func (s *stockUseCaseImpl) ExpireDue(ctx context.Context, limit int) ([]inventory.ReservationExpiredEvent, error) {
	var events []inventory.ReservationExpiredEvent
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := s.clock.Now()
		due, err := tx.Reservations().ListExpiredForUpdate(ctx, now, limit)
		if err != nil {
			return err
		}
		for _, res := range due {
			if err := res.Expire(now); err != nil {
				// Raced with a concurrent confirm/release; the row is no
				// longer ours to touch.
				continue
			}
			if err := s.settleHold(ctx, tx, res, inventory.StatusExpired, false); err != nil {
				return err
			}
			events = append(events, inventory.ReservationExpiredEvent{
				ReservationID: res.ID(),
				ExpiredAt:     now,
				LineCount:     len(res.Lines()),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// settleHold applies a reservation's terminal transition to the ledger and
// persists the guarded status flip. confirm=true consumes stock permanently;
// otherwise the hold returns to the sellable pool.
func (s *stockUseCaseImpl) settleHold(ctx context.Context, tx shared.Tx, res *inventory.Reservation, to inventory.Status, confirm bool) error {
	for _, line := range res.Lines() {
		var err error
		if confirm {
			err = tx.Inventory().ConfirmQuantity(ctx, line.Key, line.Quantity)
		} else {
			err = tx.Inventory().ReleaseQuantity(ctx, line.Key, line.Quantity)
		}
		if err != nil {
			return err
		}
	}

	ok, err := tx.Reservations().UpdateStatus(ctx, res.ID(), inventory.StatusActive, to)
	if err != nil {
		return err
	}
	if !ok {
		// The row was locked FOR UPDATE, so a lost guard means corrupted
		// state rather than an ordinary race.
		return errs.Mark(errs.New("reservation status changed under lock"), ErrInternalInconsistency)
	}
	return nil
}

func lookupSellable(quantities []SellableQuantity, key inventory.ItemKey) (int32, bool) {
	for _, q := range quantities {
		if q.Key.Equals(key) {
			return q.Sellable, q.Found
		}
	}
	return 0, false
}
