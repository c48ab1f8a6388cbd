package writerepo

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/infra"
	"marketplace/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// variantKey normalizes the optional variant to a storable value; the ledger
// table keys on (product_id, variant_id) with uuid.Nil meaning "no variant".
func variantKey(key inventory.ItemKey) uuid.UUID {
	if key.VariantID == nil {
		return uuid.Nil
	}
	return *key.VariantID
}

type inventoryRow struct {
	Available int32
	Reserved  int32
	UpdatedAt time.Time
}

type InventoryRepository struct {
	db db.DBTX
}

func NewInventoryRepository(dbtx db.DBTX) *InventoryRepository {
	return &InventoryRepository{db: dbtx}
}

// ReserveQuantity is the linearization point for oversell protection: the
// sellable check and the increment are one conditional UPDATE, so concurrent
// reserves on the same record serialize on the row.
func (r *InventoryRepository) ReserveQuantity(ctx context.Context, key inventory.ItemKey, qty int32) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inventory_records
		SET reserved_quantity = reserved_quantity + $3, updated_at = now()
		WHERE product_id = $1 AND variant_id = $2
		  AND available_quantity - reserved_quantity >= $3`,
		key.ProductID, variantKey(key), qty)
	if err != nil {
		return infra.WrapRepoErr("failed to reserve quantity", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMiss(ctx, key, "reserve rejected")
	}
	return nil
}

func (r *InventoryRepository) ReleaseQuantity(ctx context.Context, key inventory.ItemKey, qty int32) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inventory_records
		SET reserved_quantity = reserved_quantity - $3, updated_at = now()
		WHERE product_id = $1 AND variant_id = $2 AND reserved_quantity >= $3`,
		key.ProductID, variantKey(key), qty)
	if err != nil {
		return infra.WrapRepoErr("failed to release quantity", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMiss(ctx, key, "release rejected")
	}
	return nil
}

func (r *InventoryRepository) ConfirmQuantity(ctx context.Context, key inventory.ItemKey, qty int32) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inventory_records
		SET available_quantity = available_quantity - $3,
		    reserved_quantity = reserved_quantity - $3,
		    updated_at = now()
		WHERE product_id = $1 AND variant_id = $2 AND reserved_quantity >= $3`,
		key.ProductID, variantKey(key), qty)
	if err != nil {
		return infra.WrapRepoErr("failed to confirm quantity", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMiss(ctx, key, "confirm rejected")
	}
	return nil
}

func (r *InventoryRepository) RestockQuantity(ctx context.Context, key inventory.ItemKey, qty int32) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inventory_records
		SET available_quantity = available_quantity + $3, updated_at = now()
		WHERE product_id = $1 AND variant_id = $2`,
		key.ProductID, variantKey(key), qty)
	if err != nil {
		return infra.WrapRepoErr("failed to restock quantity", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("inventory record not found", nil, infra.KindNotFound)
	}
	return nil
}

// Upsert sets the absolute available quantity. reserved_quantity is
// preserved on conflict so active holds survive a vendor stock update.
func (r *InventoryRepository) Upsert(ctx context.Context, rec *inventory.Record) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO inventory_records (product_id, variant_id, available_quantity, reserved_quantity, updated_at)
		VALUES ($1, $2, $3, 0, now())
		ON CONFLICT (product_id, variant_id)
		DO UPDATE SET available_quantity = EXCLUDED.available_quantity, updated_at = now()`,
		rec.Key().ProductID, variantKey(rec.Key()), rec.Available())
	if err != nil {
		return infra.WrapRepoErr("failed to upsert inventory record", err)
	}
	return nil
}

func (r *InventoryRepository) FindByKey(ctx context.Context, key inventory.ItemKey) (*inventory.Record, error) {
	row := r.db.QueryRow(ctx, `
		SELECT available_quantity, reserved_quantity, updated_at
		FROM inventory_records
		WHERE product_id = $1 AND variant_id = $2`,
		key.ProductID, variantKey(key))

	var rec inventoryRow
	if err := row.Scan(&rec.Available, &rec.Reserved, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("inventory record not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find inventory record", err)
	}
	return inventory.ReconstructRecord(key, rec.Available, rec.Reserved, rec.UpdatedAt), nil
}

// classifyMiss separates "record does not exist" from "condition failed" so
// the coordinator can report insufficient stock precisely.
func (r *InventoryRepository) classifyMiss(ctx context.Context, key inventory.ItemKey, msg string) error {
	var one int
	err := r.db.QueryRow(ctx, `
		SELECT 1 FROM inventory_records WHERE product_id = $1 AND variant_id = $2`,
		key.ProductID, variantKey(key)).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return infra.WrapRepoErr("inventory record not found", nil, infra.KindNotFound)
	}
	if err != nil {
		return infra.WrapRepoErr("failed to classify inventory update miss", err)
	}
	return infra.WrapRepoErr(msg, nil, infra.KindConflict)
}
