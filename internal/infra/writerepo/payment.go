package writerepo

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/domain/order"
	"marketplace/internal/infra"
	"marketplace/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository struct {
	db db.DBTX
}

func NewPaymentRepository(dbtx db.DBTX) *PaymentRepository {
	return &PaymentRepository{db: dbtx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *order.Payment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (id, order_id, processor_ref, card_reference, state, amount_cents, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID(), p.OrderID(), p.ProcessorRef(), p.CardReference(), string(p.State()), p.AmountCents(), p.Currency(), p.CreatedAt())
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapRepoErr("payment already exists", err, infra.KindDuplicate)
		}
		return infra.WrapRepoErr("failed to create payment", err)
	}
	return nil
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*order.Payment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, processor_ref, card_reference, state, amount_cents, currency, created_at
		FROM payments
		WHERE order_id = $1`, orderID)

	var (
		id                               uuid.UUID
		processorRef, cardRef, state, cu string
		amountCents                      int64
		createdAt                        time.Time
	)
	if err := row.Scan(&id, &processorRef, &cardRef, &state, &amountCents, &cu, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("payment not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find payment", err)
	}

	return order.ReconstructPayment(id, orderID, processorRef, cardRef, order.PaymentState(state), amountCents, cu, createdAt), nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *order.Payment) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE payments SET state = $2 WHERE id = $1`,
		p.ID(), string(p.State()))
	if err != nil {
		return infra.WrapRepoErr("failed to save payment", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}
	return nil
}
