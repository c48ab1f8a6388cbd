//go:build unit

package queries_test

import (
	"context"
	"testing"
	"time"

	"marketplace/internal/infra"
	"marketplace/internal/usecase/queries"
	"marketplace/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReadStore struct {
	views map[uuid.UUID]*queries.OrderView
	lists map[uuid.UUID][]*queries.OrderListView
	flags []*queries.ReconciliationFlagView

	lastFlagLimit int
}

func (f *fakeReadStore) FindByID(_ context.Context, id uuid.UUID) (*queries.OrderView, error) {
	view, ok := f.views[id]
	if !ok {
		return nil, infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	return view, nil
}

func (f *fakeReadStore) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]*queries.OrderListView, error) {
	return f.lists[customerID], nil
}

func (f *fakeReadStore) ListReconciliationFlags(_ context.Context, limit int) ([]*queries.ReconciliationFlagView, error) {
	f.lastFlagLimit = limit
	return f.flags, nil
}

func orderViewFor(customerID uuid.UUID) *queries.OrderView {
	return &queries.OrderView{
		ID:          uuid.New(),
		OrderNumber: "ORD-20250601-ABC123",
		CustomerID:  customerID,
		Status:      "CONFIRMED",
		TotalCents:  12000,
		Currency:    "USD",
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	view := orderViewFor(ownerID)
	store := &fakeReadStore{views: map[uuid.UUID]*queries.OrderView{view.ID: view}}
	q := queries.NewOrderQueries(store)

	t.Run("owner reads own order", func(t *testing.T) {
		got, err := q.GetOrder(ctx, shared.Actor{ID: ownerID, Role: shared.RoleCustomer}, view.ID)
		require.NoError(t, err)
		assert.Equal(t, view.OrderNumber, got.OrderNumber)
	})

	t.Run("another customer gets not found, not forbidden", func(t *testing.T) {
		_, err := q.GetOrder(ctx, shared.Actor{ID: uuid.New(), Role: shared.RoleCustomer}, view.ID)
		assert.ErrorIs(t, err, queries.ErrOrderNotFound)
	})

	t.Run("vendor and admin see any order", func(t *testing.T) {
		for _, role := range []shared.Role{shared.RoleVendor, shared.RoleAdmin} {
			_, err := q.GetOrder(ctx, shared.Actor{ID: uuid.New(), Role: role}, view.ID)
			assert.NoError(t, err)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := q.GetOrder(ctx, shared.Actor{ID: ownerID, Role: shared.RoleCustomer}, uuid.New())
		assert.ErrorIs(t, err, queries.ErrOrderNotFound)
	})
}

func TestListCustomerOrders(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	store := &fakeReadStore{lists: map[uuid.UUID][]*queries.OrderListView{
		customerID: {{ID: uuid.New(), OrderNumber: "ORD-20250601-ABC123", Status: "CONFIRMED"}},
	}}
	q := queries.NewOrderQueries(store)

	t.Run("returns only the actor's orders", func(t *testing.T) {
		views, err := q.ListCustomerOrders(ctx, shared.Actor{ID: customerID, Role: shared.RoleCustomer})
		require.NoError(t, err)
		assert.Len(t, views, 1)
	})

	t.Run("empty history", func(t *testing.T) {
		views, err := q.ListCustomerOrders(ctx, shared.Actor{ID: uuid.New(), Role: shared.RoleCustomer})
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

func TestListReconciliationFlags(t *testing.T) {
	ctx := context.Background()
	store := &fakeReadStore{flags: []*queries.ReconciliationFlagView{
		{ID: uuid.New(), OrderID: uuid.New(), Reason: "refund_failed"},
	}}
	q := queries.NewOrderQueries(store)

	t.Run("admin only", func(t *testing.T) {
		flags, err := q.ListReconciliationFlags(ctx, shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin}, 50)
		require.NoError(t, err)
		assert.Len(t, flags, 1)
		assert.Equal(t, 50, store.lastFlagLimit)
	})

	t.Run("customer and vendor are refused", func(t *testing.T) {
		for _, role := range []shared.Role{shared.RoleCustomer, shared.RoleVendor} {
			_, err := q.ListReconciliationFlags(ctx, shared.Actor{ID: uuid.New(), Role: role}, 50)
			assert.ErrorIs(t, err, shared.ErrForbidden)
		}
	})
}
