package commands

import (
	"context"
	"errors"
	"log/slog"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/domain/order"
	"marketplace/internal/infra"
	"marketplace/internal/pkg/clock"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/errs"
	"marketplace/internal/pkg/retry"
	"marketplace/internal/usecase/shared"

	"github.com/google/uuid"
)

type CartItem struct {
	ProductID      uuid.UUID
	VariantID      *uuid.UUID
	ProductName    string
	Quantity       int32
	UnitPriceCents int64
}

type CreateOrderParams struct {
	Items             []CartItem
	ShippingAddressID uuid.UUID
	CardToken         string
	Currency          string
}

// CheckoutCommands drives the order fulfillment saga and the explicit
// lifecycle operations around it.
type CheckoutCommands interface {
	CreateOrder(ctx context.Context, actor shared.Actor, params CreateOrderParams) (*order.Order, error)
	CancelOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID, reason string) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, actor shared.Actor, orderID uuid.UUID, target order.Status, reason string) (*order.Order, error)
	// RestockCancelledOrder is the deliberate follow-up to cancellation;
	// restocking never happens implicitly.
	RestockCancelledOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) error
}

type checkoutUseCaseImpl struct {
	uow       shared.UnitOfWork
	stock     StockCommands
	payments  PaymentAuthorizer
	publisher EventPublisher
	clock     clock.Clock
	cfg       config.SagaConfig
	logger    *slog.Logger
}

func NewCheckoutUseCase(
	uow shared.UnitOfWork,
	stock StockCommands,
	payments PaymentAuthorizer,
	publisher EventPublisher,
	clk clock.Clock,
	cfg config.SagaConfig,
	logger *slog.Logger,
) CheckoutCommands {
	return &checkoutUseCaseImpl{
		uow:       uow,
		stock:     stock,
		payments:  payments,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreateOrder runs the saga: reserve stock, authorize payment, persist the
// order, confirm the deduction, publish the event. Every failure before the
// charge aborts cleanly; a payment failure compensates with an idempotent
// Release; a confirm failure after a captured payment is surfaced as a fatal
// inconsistency, never rolled back silently.
func (c *checkoutUseCaseImpl) CreateOrder(ctx context.Context, actor shared.Actor, params CreateOrderParams) (*order.Order, error) {
	if err := shared.Authorize(actor, shared.CapCheckout); err != nil {
		return nil, err
	}
	if len(params.Items) == 0 {
		return nil, ErrEmptyCart
	}

	reservationID := uuid.New()
	stockItems := make([]StockItem, len(params.Items))
	for i, it := range params.Items {
		stockItems[i] = StockItem{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity}
	}

	// Step 1: reserve. A timeout leaves the outcome unknown, so the retry
	// reuses the same reservation id until a definitive answer arrives.
	var reserved *ReserveResult
	err := c.stockRetry().Do(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, c.cfg.StockOpTimeout)
		defer cancel()
		res, err := c.stock.Reserve(opCtx, reservationID, stockItems, c.cfg.ReservationTTL)
		if err != nil {
			return err
		}
		reserved = res
		return nil
	}, isTransient)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return nil, err
		}
		return nil, errs.Mark(err, ErrServiceUnavailable)
	}

	// Guard: never charge against a hold that has already lapsed.
	if c.clock.Now().After(reserved.ExpiresAt) {
		c.compensateRelease(ctx, reservationID)
		return nil, ErrReservationExpired
	}

	// Step 2: charge. Payment authorization is not retried here; the
	// processor may not be idempotent even though we forward a key.
	var total int64
	for _, it := range params.Items {
		total += int64(it.Quantity) * it.UnitPriceCents
	}
	charge, err := c.payments.Charge(ctx, ChargeRequest{
		AmountCents:    total,
		Currency:       params.Currency,
		CardToken:      params.CardToken,
		IdempotencyKey: reservationID,
	})
	if err != nil {
		c.compensateRelease(ctx, reservationID)
		if errors.Is(err, ErrPaymentDeclined) {
			return nil, err
		}
		return nil, errs.Mark(err, ErrServiceUnavailable)
	}

	// Step 3: persist the order and its payment record in one transaction.
	now := c.clock.Now()
	items := make([]order.Item, len(params.Items))
	for i, it := range params.Items {
		items[i] = order.Item{
			Key:            StockItem{ProductID: it.ProductID, VariantID: it.VariantID}.Key(),
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		}
	}
	ord, err := order.NewConfirmed(actor.ID, params.ShippingAddressID, reservationID, items, params.Currency, now)
	if err != nil {
		c.compensateRelease(ctx, reservationID)
		return nil, err
	}
	payment, err := order.NewCapturedPayment(ord.ID(), charge.ProcessorRef, params.CardToken, total, params.Currency, now)
	if err != nil {
		c.compensateRelease(ctx, reservationID)
		return nil, err
	}

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Orders().Create(ctx, ord); err != nil {
			return err
		}
		return tx.Payments().Create(ctx, payment)
	})
	if err != nil {
		// The charge is already captured; losing the order row is the same
		// class of fault as a failed confirm and goes to reconciliation.
		c.recordInconsistency(ctx, ord.ID(), reservationID, "order_persist_failed", err)
		return nil, errs.Mark(err, ErrInternalInconsistency)
	}

	// Step 4: confirm the deduction. Expiry here means a captured payment
	// without deducted stock, which is fatal and must be loud.
	err = c.stockRetry().Do(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, c.cfg.StockOpTimeout)
		defer cancel()
		return c.stock.ConfirmDeduction(opCtx, reservationID)
	}, isTransient)
	if err != nil {
		c.recordInconsistency(ctx, ord.ID(), reservationID, "confirm_deduction_failed", err)
	}

	// Step 5: notify downstream. Fire-and-forget.
	c.publish(ctx, order.EventOrderCreated, ord.ID().String(), order.CreatedEvent{
		OrderID:       ord.ID(),
		OrderNumber:   ord.OrderNumber(),
		CustomerID:    ord.CustomerID(),
		ReservationID: reservationID,
		TotalCents:    ord.TotalCents(),
		Currency:      ord.Currency(),
		CreatedAt:     ord.CreatedAt(),
	})

	return ord, nil
}

func (c *checkoutUseCaseImpl) CancelOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID, reason string) (*order.Order, error) {
	if err := shared.Authorize(actor, shared.CapCancelOwn); err != nil {
		return nil, err
	}

	var (
		ord     *order.Order
		prev    order.Status
		payment *order.Payment
		refund  bool
	)
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		ord, err = tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderRepoErr(err)
		}
		if actor.Role != shared.RoleAdmin && ord.CustomerID() != actor.ID {
			return shared.ErrForbidden
		}

		prev, refund, err = ord.Cancel(c.clock.Now())
		if err != nil {
			return errs.Mark(err, ErrInvalidTransition)
		}

		if refund {
			payment, err = tx.Payments().FindByOrderID(ctx, orderID)
			if err != nil {
				return mapOrderRepoErr(err)
			}
			if err := payment.MarkRefunded(); err != nil {
				return err
			}
			if err := tx.Payments().Save(ctx, payment); err != nil {
				return err
			}
		}

		return tx.Orders().Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}

	// The refund instruction goes out after the cancellation committed; if
	// the processor call fails, ops picks it up from the reconciliation
	// queue instead of the customer retrying the cancel.
	if refund {
		if err := c.payments.Refund(ctx, payment.ProcessorRef(), payment.AmountCents(), payment.Currency()); err != nil {
			c.recordInconsistency(ctx, orderID, ord.ReservationID(), "refund_failed", err)
		}
	}

	c.publish(ctx, order.EventOrderCancelled, orderID.String(), order.StatusChangedEvent{
		OrderID:        orderID,
		PreviousStatus: prev,
		NewStatus:      order.StatusCancelled,
		Reason:         reason,
		OccurredAt:     c.clock.Now(),
	})
	return ord, nil
}

func (c *checkoutUseCaseImpl) UpdateOrderStatus(ctx context.Context, actor shared.Actor, orderID uuid.UUID, target order.Status, reason string) (*order.Order, error) {
	if err := shared.Authorize(actor, shared.CapUpdateStatus); err != nil {
		return nil, err
	}

	var (
		ord  *order.Order
		prev order.Status
	)
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		ord, err = tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderRepoErr(err)
		}
		prev, err = ord.Advance(target, c.clock.Now())
		if err != nil {
			return errs.Mark(err, ErrInvalidTransition)
		}
		return tx.Orders().Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, order.EventOrderStatusChanged, orderID.String(), order.StatusChangedEvent{
		OrderID:        orderID,
		PreviousStatus: prev,
		NewStatus:      target,
		Reason:         reason,
		OccurredAt:     c.clock.Now(),
	})
	return ord, nil
}

func (c *checkoutUseCaseImpl) RestockCancelledOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) error {
	if err := shared.Authorize(actor, shared.CapManageStock); err != nil {
		return err
	}

	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		ord, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderRepoErr(err)
		}
		if err := ord.MarkRestocked(c.clock.Now()); err != nil {
			return err
		}

		// Only confirmed-deducted stock can come back; a released or expired
		// hold already returned to the pool on its own.
		res, err := tx.Reservations().FindByIDForUpdate(ctx, ord.ReservationID())
		if err != nil {
			return mapOrderRepoErr(err)
		}
		if res.Status() != inventory.StatusConfirmed {
			return ErrNothingToRestock
		}

		for _, item := range ord.Items() {
			if err := tx.Inventory().RestockQuantity(ctx, item.Key, item.Quantity); err != nil {
				return err
			}
		}
		return tx.Orders().Save(ctx, ord)
	})
}

func (c *checkoutUseCaseImpl) stockRetry() retry.Policy {
	return retry.Policy{
		Attempts:    c.cfg.StockRetries,
		BackoffBase: c.cfg.RetryBackoffBase,
	}
}

// compensateRelease undoes a hold after a failed forward step. Release is
// idempotent, so a generous retry is safe; if the budget still runs out, the
// sweeper reclaims the hold at TTL.
func (c *checkoutUseCaseImpl) compensateRelease(ctx context.Context, reservationID uuid.UUID) {
	err := c.stockRetry().Do(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, c.cfg.StockOpTimeout)
		defer cancel()
		return c.stock.Release(opCtx, reservationID)
	}, isTransient)
	if err != nil {
		c.logger.Warn("compensating release failed; expiry sweeper will reclaim the hold",
			"reservation_id", reservationID.String(),
			"error", err.Error())
	}
}

func (c *checkoutUseCaseImpl) recordInconsistency(ctx context.Context, orderID, reservationID uuid.UUID, reason string, cause error) {
	c.logger.Error("INTERNAL_INCONSISTENCY: payment captured but fulfillment state diverged",
		"inconsistency", reason,
		"order_id", orderID.String(),
		"reservation_id", reservationID.String(),
		"error", cause.Error())

	flag := shared.ReconciliationFlag{
		ID:            uuid.New(),
		OrderID:       orderID,
		ReservationID: reservationID,
		Reason:        reason,
		Detail:        cause.Error(),
		CreatedAt:     c.clock.Now(),
	}
	if err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Reconciliation().CreateFlag(ctx, flag)
	}); err != nil {
		// Last resort is the log line above; reconciliation tooling also
		// tails it.
		c.logger.Error("failed to persist reconciliation flag",
			"order_id", orderID.String(), "error", err.Error())
	}
}

func (c *checkoutUseCaseImpl) publish(ctx context.Context, eventType, key string, payload any) {
	if err := c.publisher.Publish(ctx, eventType, key, payload); err != nil {
		c.logger.Warn("event publish failed", "event_type", eventType, "key", key, "error", err.Error())
	}
}

func mapOrderRepoErr(err error) error {
	if infra.IsKind(err, infra.KindNotFound) {
		return ErrOrderNotFound
	}
	return err
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrReservationExpired),
		errors.Is(err, ErrReservationNotFound),
		errors.Is(err, ErrReservationNotReusable),
		errors.Is(err, ErrPaymentDeclined),
		errors.Is(err, ErrInternalInconsistency):
		return false
	}
	return true
}
