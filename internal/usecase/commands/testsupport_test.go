//go:build unit

package commands_test

import (
	"context"
	"sync"
	"time"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/domain/order"
	"marketplace/internal/infra"
	"marketplace/internal/usecase/commands"
	"marketplace/internal/usecase/shared"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the Postgres persistence layer. Each
// Within call runs under one mutex, mirroring the serialization the real
// store gets from row locks, and rolls the state back when fn fails.
type memStore struct {
	mu sync.Mutex

	inventory    map[string]invRow
	reservations map[uuid.UUID]resRow
	orders       map[uuid.UUID]*order.Order
	payments     map[uuid.UUID]*order.Payment
	flags        []shared.ReconciliationFlag

	// fail injects one error per repository operation name; failOnce entries
	// are consumed by the first operation that hits them.
	fail     map[string]error
	failOnce map[string]error

	// afterRollback runs once after a failed transaction is rolled back,
	// standing in for state another connection committed meanwhile.
	afterRollback func(*memStore)
}

type invRow struct {
	key       inventory.ItemKey
	available int32
	reserved  int32
}

type resRow struct {
	lines     []inventory.Line
	status    inventory.Status
	createdAt time.Time
	expiresAt time.Time
}

func newMemStore() *memStore {
	return &memStore{
		inventory:    map[string]invRow{},
		reservations: map[uuid.UUID]resRow{},
		orders:       map[uuid.UUID]*order.Order{},
		payments:     map[uuid.UUID]*order.Payment{},
		fail:         map[string]error{},
		failOnce:     map[string]error{},
	}
}

func (s *memStore) takeFail(op string) error {
	if err := s.fail[op]; err != nil {
		return err
	}
	if err, ok := s.failOnce[op]; ok {
		delete(s.failOnce, op)
		return err
	}
	return nil
}

func (s *memStore) seed(key inventory.ItemKey, available, reserved int32) {
	s.inventory[key.String()] = invRow{key: key, available: available, reserved: reserved}
}

func (s *memStore) sellable(key inventory.ItemKey) int32 {
	row := s.inventory[key.String()]
	return row.available - row.reserved
}

func (s *memStore) reservationStatus(id uuid.UUID) (inventory.Status, bool) {
	row, ok := s.reservations[id]
	return row.status, ok
}

func (s *memStore) snapshot() *memStore {
	snap := newMemStore()
	for k, v := range s.inventory {
		snap.inventory[k] = v
	}
	for k, v := range s.reservations {
		lines := make([]inventory.Line, len(v.lines))
		copy(lines, v.lines)
		v.lines = lines
		snap.reservations[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = cloneOrder(v)
	}
	for k, v := range s.payments {
		snap.payments[k] = clonePayment(v)
	}
	snap.flags = append([]shared.ReconciliationFlag(nil), s.flags...)
	return snap
}

func (s *memStore) restore(snap *memStore) {
	s.inventory = snap.inventory
	s.reservations = snap.reservations
	s.orders = snap.orders
	s.payments = snap.payments
	s.flags = snap.flags
}

func (s *memStore) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx, memTx{s}); err != nil {
		s.restore(snap)
		if s.afterRollback != nil {
			hook := s.afterRollback
			s.afterRollback = nil
			hook(s)
		}
		return err
	}
	return nil
}

type memTx struct{ s *memStore }

func (t memTx) Inventory() shared.InventoryRepository           { return memInventoryRepo{t.s} }
func (t memTx) Reservations() shared.ReservationRepository      { return memReservationRepo{t.s} }
func (t memTx) Orders() shared.OrderRepository                  { return memOrderRepo{t.s} }
func (t memTx) Payments() shared.PaymentRepository              { return memPaymentRepo{t.s} }
func (t memTx) Reconciliation() shared.ReconciliationRepository { return memReconciliationRepo{t.s} }

type memInventoryRepo struct{ s *memStore }

func (r memInventoryRepo) ReserveQuantity(_ context.Context, key inventory.ItemKey, qty int32) error {
	if err := r.s.takeFail("inventory.reserve"); err != nil {
		return err
	}
	row, ok := r.s.inventory[key.String()]
	if !ok {
		return infra.WrapRepoErr("inventory record not found", nil, infra.KindNotFound)
	}
	if row.available-row.reserved < qty {
		return infra.WrapRepoErr("insufficient sellable stock", nil, infra.KindConflict)
	}
	row.reserved += qty
	r.s.inventory[key.String()] = row
	return nil
}

func (r memInventoryRepo) ReleaseQuantity(_ context.Context, key inventory.ItemKey, qty int32) error {
	row, ok := r.s.inventory[key.String()]
	if !ok || row.reserved < qty {
		return infra.WrapRepoErr("release guard failed", nil, infra.KindConflict)
	}
	row.reserved -= qty
	r.s.inventory[key.String()] = row
	return nil
}

func (r memInventoryRepo) ConfirmQuantity(_ context.Context, key inventory.ItemKey, qty int32) error {
	row, ok := r.s.inventory[key.String()]
	if !ok || row.reserved < qty {
		return infra.WrapRepoErr("confirm guard failed", nil, infra.KindConflict)
	}
	row.reserved -= qty
	row.available -= qty
	r.s.inventory[key.String()] = row
	return nil
}

func (r memInventoryRepo) RestockQuantity(_ context.Context, key inventory.ItemKey, qty int32) error {
	row, ok := r.s.inventory[key.String()]
	if !ok {
		return infra.WrapRepoErr("inventory record not found", nil, infra.KindNotFound)
	}
	row.available += qty
	r.s.inventory[key.String()] = row
	return nil
}

func (r memInventoryRepo) Upsert(_ context.Context, rec *inventory.Record) error {
	row, ok := r.s.inventory[rec.Key().String()]
	if !ok {
		row = invRow{key: rec.Key()}
	}
	row.available = rec.Available()
	r.s.inventory[rec.Key().String()] = row
	return nil
}

func (r memInventoryRepo) FindByKey(_ context.Context, key inventory.ItemKey) (*inventory.Record, error) {
	row, ok := r.s.inventory[key.String()]
	if !ok {
		return nil, infra.WrapRepoErr("inventory record not found", nil, infra.KindNotFound)
	}
	return inventory.ReconstructRecord(key, row.available, row.reserved, time.Time{}), nil
}

type memReservationRepo struct{ s *memStore }

func (r memReservationRepo) Create(_ context.Context, res *inventory.Reservation) error {
	if err := r.s.takeFail("reservations.create"); err != nil {
		return err
	}
	if _, exists := r.s.reservations[res.ID()]; exists {
		return infra.WrapRepoErr("reservation already exists", nil, infra.KindDuplicate)
	}
	r.s.reservations[res.ID()] = resRow{
		lines:     res.Lines(),
		status:    res.Status(),
		createdAt: res.CreatedAt(),
		expiresAt: res.ExpiresAt(),
	}
	return nil
}

func (r memReservationRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*inventory.Reservation, error) {
	row, ok := r.s.reservations[id]
	if !ok {
		return nil, infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	return inventory.ReconstructReservation(id, row.lines, row.status, row.createdAt, row.expiresAt), nil
}

func (r memReservationRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to inventory.Status) (bool, error) {
	if err := r.s.takeFail("reservations.updateStatus"); err != nil {
		return false, err
	}
	row, ok := r.s.reservations[id]
	if !ok || row.status != from {
		return false, nil
	}
	row.status = to
	r.s.reservations[id] = row
	return true, nil
}

func (r memReservationRepo) ListExpiredForUpdate(_ context.Context, now time.Time, limit int) ([]*inventory.Reservation, error) {
	var due []*inventory.Reservation
	for id, row := range r.s.reservations {
		if row.status == inventory.StatusActive && row.expiresAt.Before(now) {
			due = append(due, inventory.ReconstructReservation(id, row.lines, row.status, row.createdAt, row.expiresAt))
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

type memOrderRepo struct{ s *memStore }

func (r memOrderRepo) Create(_ context.Context, o *order.Order) error {
	if err := r.s.takeFail("orders.create"); err != nil {
		return err
	}
	if _, exists := r.s.orders[o.ID()]; exists {
		return infra.WrapRepoErr("order already exists", nil, infra.KindDuplicate)
	}
	r.s.orders[o.ID()] = cloneOrder(o)
	return nil
}

func (r memOrderRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	return cloneOrder(o), nil
}

func (r memOrderRepo) Save(_ context.Context, o *order.Order) error {
	if _, ok := r.s.orders[o.ID()]; !ok {
		return infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	r.s.orders[o.ID()] = cloneOrder(o)
	return nil
}

type memPaymentRepo struct{ s *memStore }

func (r memPaymentRepo) Create(_ context.Context, p *order.Payment) error {
	if err := r.s.takeFail("payments.create"); err != nil {
		return err
	}
	if _, exists := r.s.payments[p.OrderID()]; exists {
		return infra.WrapRepoErr("payment already exists", nil, infra.KindDuplicate)
	}
	r.s.payments[p.OrderID()] = clonePayment(p)
	return nil
}

func (r memPaymentRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*order.Payment, error) {
	p, ok := r.s.payments[orderID]
	if !ok {
		return nil, infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}
	return clonePayment(p), nil
}

func (r memPaymentRepo) Save(_ context.Context, p *order.Payment) error {
	if _, ok := r.s.payments[p.OrderID()]; !ok {
		return infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}
	r.s.payments[p.OrderID()] = clonePayment(p)
	return nil
}

type memReconciliationRepo struct{ s *memStore }

func (r memReconciliationRepo) CreateFlag(_ context.Context, flag shared.ReconciliationFlag) error {
	if err := r.s.takeFail("reconciliation.createFlag"); err != nil {
		return err
	}
	r.s.flags = append(r.s.flags, flag)
	return nil
}

func cloneOrder(o *order.Order) *order.Order {
	return order.Reconstruct(
		o.ID(), o.OrderNumber(), o.CustomerID(), o.ShippingAddressID(), o.ReservationID(),
		o.Status(), o.PaymentStatus(), o.Items(), o.TotalCents(), o.Currency(),
		o.RestockedAt(), o.CreatedAt(), o.UpdatedAt(),
	)
}

func clonePayment(p *order.Payment) *order.Payment {
	return order.ReconstructPayment(
		p.ID(), p.OrderID(), p.ProcessorRef(), p.CardReference(),
		p.State(), p.AmountCents(), p.Currency(), p.CreatedAt(),
	)
}

// ledgerReads serves StockReads straight from the fake store.
type ledgerReads struct{ s *memStore }

func (r ledgerReads) Sellable(_ context.Context, keys []inventory.ItemKey) ([]commands.SellableQuantity, error) {
	if err := r.s.takeFail("reads.sellable"); err != nil {
		return nil, err
	}
	out := make([]commands.SellableQuantity, 0, len(keys))
	for _, key := range keys {
		row, ok := r.s.inventory[key.String()]
		if !ok {
			out = append(out, commands.SellableQuantity{Key: key, Found: false})
			continue
		}
		out = append(out, commands.SellableQuantity{Key: key, Sellable: row.available - row.reserved, Found: true})
	}
	return out, nil
}

// stubAuthorizer scripts payment outcomes for the saga tests.
type stubAuthorizer struct {
	mu         sync.Mutex
	chargeErr  error
	refundErr  error
	charges    []commands.ChargeRequest
	refundRefs []string
}

func (a *stubAuthorizer) Charge(_ context.Context, req commands.ChargeRequest) (*commands.ChargeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.charges = append(a.charges, req)
	if a.chargeErr != nil {
		return nil, a.chargeErr
	}
	return &commands.ChargeResult{ProcessorRef: "proc-" + req.IdempotencyKey.String()[:8]}, nil
}

func (a *stubAuthorizer) Refund(_ context.Context, processorRef string, _ int64, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refundRefs = append(a.refundRefs, processorRef)
	return a.refundErr
}

// capturePublisher records everything published.
type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

type publishedEvent struct {
	eventType string
	key       string
	payload   any
}

func (p *capturePublisher) Publish(_ context.Context, eventType, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{eventType: eventType, key: key, payload: payload})
	return nil
}

func (p *capturePublisher) byType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, ev := range p.events {
		if ev.eventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}
