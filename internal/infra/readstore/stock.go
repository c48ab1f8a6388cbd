package readstore

import (
	"context"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/infra"
	"marketplace/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockReadStore answers availability checks from the ledger without
// locking. The answer is advisory; reserve-time conditional updates are
// what actually prevent overselling.
type StockReadStore struct {
	pool *pgxpool.Pool
}

func NewStockReadStore(pool *pgxpool.Pool) *StockReadStore {
	return &StockReadStore{pool: pool}
}

func (r *StockReadStore) Sellable(ctx context.Context, keys []inventory.ItemKey) ([]commands.SellableQuantity, error) {
	out := make([]commands.SellableQuantity, 0, len(keys))
	for _, key := range keys {
		variant := uuid.Nil
		if key.VariantID != nil {
			variant = *key.VariantID
		}

		var available, reserved int32
		row := r.pool.QueryRow(ctx, `
			SELECT available_quantity, reserved_quantity
			FROM inventory_records
			WHERE product_id = $1 AND variant_id = $2`, key.ProductID, variant)
		switch err := row.Scan(&available, &reserved); {
		case err == nil:
			out = append(out, commands.SellableQuantity{Key: key, Sellable: available - reserved, Found: true})
		case isNoRows(err):
			out = append(out, commands.SellableQuantity{Key: key, Found: false})
		default:
			return nil, infra.WrapRepoErr("failed to read sellable quantity", err)
		}
	}
	return out, nil
}

var _ commands.StockReads = (*StockReadStore)(nil)
