package writerepo

import (
	"context"

	"marketplace/internal/infra"
	"marketplace/internal/infra/db"
	"marketplace/internal/usecase/shared"
)

type ReconciliationRepository struct {
	db db.DBTX
}

func NewReconciliationRepository(dbtx db.DBTX) *ReconciliationRepository {
	return &ReconciliationRepository{db: dbtx}
}

func (r *ReconciliationRepository) CreateFlag(ctx context.Context, flag shared.ReconciliationFlag) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reconciliation_flags (id, order_id, reservation_id, reason, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		flag.ID, flag.OrderID, flag.ReservationID, flag.Reason, flag.Detail, flag.CreatedAt)
	if err != nil {
		return infra.WrapRepoErr("failed to create reconciliation flag", err)
	}
	return nil
}
