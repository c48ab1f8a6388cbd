package queries

import (
	"context"

	"marketplace/internal/infra"
	"marketplace/internal/pkg/errs"
	"marketplace/internal/usecase/shared"

	"github.com/google/uuid"
)

var ErrOrderNotFound = errs.New("order not found")

type OrderReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OrderView, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*OrderListView, error)
	ListReconciliationFlags(ctx context.Context, limit int) ([]*ReconciliationFlagView, error)
}

type OrderQueries interface {
	GetOrder(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OrderView, error)
	ListCustomerOrders(ctx context.Context, actor shared.Actor) ([]*OrderListView, error)
	ListReconciliationFlags(ctx context.Context, actor shared.Actor, limit int) ([]*ReconciliationFlagView, error)
}

type orderQueriesImpl struct {
	store OrderReadStore
}

func NewOrderQueries(store OrderReadStore) OrderQueries {
	return &orderQueriesImpl{store: store}
}

func (q *orderQueriesImpl) GetOrder(ctx context.Context, actor shared.Actor, id uuid.UUID) (*OrderView, error) {
	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errs.Wrap(err, "failed to find order")
	}

	// Customers only see their own orders; vendors and admins see all.
	if actor.Role == shared.RoleCustomer && view.CustomerID != actor.ID {
		return nil, ErrOrderNotFound
	}
	return view, nil
}

func (q *orderQueriesImpl) ListCustomerOrders(ctx context.Context, actor shared.Actor) ([]*OrderListView, error) {
	views, err := q.store.ListByCustomer(ctx, actor.ID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list customer orders")
	}
	return views, nil
}

func (q *orderQueriesImpl) ListReconciliationFlags(ctx context.Context, actor shared.Actor, limit int) ([]*ReconciliationFlagView, error) {
	if err := shared.Authorize(actor, shared.CapReconcile); err != nil {
		return nil, err
	}
	flags, err := q.store.ListReconciliationFlags(ctx, limit)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list reconciliation flags")
	}
	return flags, nil
}
