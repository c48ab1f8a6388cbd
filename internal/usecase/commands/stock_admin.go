package commands

import (
	"context"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/pkg/clock"
	"marketplace/internal/usecase/shared"
)

type UpsertStockParams struct {
	Item      StockItem
	Available int32
}

// StockAdminCommands is the vendor-facing stock management surface. It sits
// outside the coordinator contract: vendors set absolute quantities, the
// coordinator owns every relative mutation.
type StockAdminCommands interface {
	UpsertInventory(ctx context.Context, actor shared.Actor, params UpsertStockParams) error
}

type stockAdminUseCaseImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewStockAdminUseCase(uow shared.UnitOfWork, clk clock.Clock) StockAdminCommands {
	return &stockAdminUseCaseImpl{uow: uow, clock: clk}
}

func (s *stockAdminUseCaseImpl) UpsertInventory(ctx context.Context, actor shared.Actor, params UpsertStockParams) error {
	if err := shared.Authorize(actor, shared.CapManageStock); err != nil {
		return err
	}

	rec, err := inventory.NewRecord(params.Item.Key(), params.Available)
	if err != nil {
		return err
	}

	return s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Inventory().Upsert(ctx, rec)
	})
}
