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
	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrCodeUniqueViolation = "23505"

type ReservationRepository struct {
	db db.DBTX
}

func NewReservationRepository(dbtx db.DBTX) *ReservationRepository {
	return &ReservationRepository{db: dbtx}
}

func (r *ReservationRepository) Create(ctx context.Context, res *inventory.Reservation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reservations (id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		res.ID(), res.Status().String(), res.CreatedAt(), res.ExpiresAt())
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapRepoErr("reservation id already exists", err, infra.KindDuplicate)
		}
		return infra.WrapRepoErr("failed to create reservation", err)
	}

	for i, line := range res.Lines() {
		_, err := r.db.Exec(ctx, `
			INSERT INTO reservation_lines (reservation_id, line_no, product_id, variant_id, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			res.ID(), i, line.Key.ProductID, variantKey(line.Key), line.Quantity)
		if err != nil {
			return infra.WrapRepoErr("failed to create reservation line", err)
		}
	}
	return nil
}

func (r *ReservationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Reservation, error) {
	row := r.db.QueryRow(ctx, `
		SELECT status, created_at, expires_at
		FROM reservations
		WHERE id = $1
		FOR UPDATE`, id)

	var (
		status               string
		createdAt, expiresAt time.Time
	)
	if err := row.Scan(&status, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation", err)
	}

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return inventory.ReconstructReservation(id, lines, inventory.Status(status), createdAt, expiresAt), nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to inventory.Status) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE reservations SET status = $3 WHERE id = $1 AND status = $2`,
		id, from.String(), to.String())
	if err != nil {
		return false, infra.WrapRepoErr("failed to update reservation status", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListExpiredForUpdate claims due reservations for this sweep. SKIP LOCKED
// keeps the sweeper out of the way of checkouts that are confirming the same
// reservation right now.
func (r *ReservationRepository) ListExpiredForUpdate(ctx context.Context, now time.Time, limit int) ([]*inventory.Reservation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, status, created_at, expires_at
		FROM reservations
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`,
		inventory.StatusActive.String(), now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list expired reservations", err)
	}
	defer rows.Close()

	type header struct {
		id                   uuid.UUID
		status               string
		createdAt, expiresAt time.Time
	}
	var headers []header
	for rows.Next() {
		var h header
		if err := rows.Scan(&h.id, &h.status, &h.createdAt, &h.expiresAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan expired reservation", err)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate expired reservations", err)
	}

	result := make([]*inventory.Reservation, 0, len(headers))
	for _, h := range headers {
		lines, err := r.loadLines(ctx, h.id)
		if err != nil {
			return nil, err
		}
		result = append(result, inventory.ReconstructReservation(h.id, lines, inventory.Status(h.status), h.createdAt, h.expiresAt))
	}
	return result, nil
}

func (r *ReservationRepository) loadLines(ctx context.Context, id uuid.UUID) ([]inventory.Line, error) {
	rows, err := r.db.Query(ctx, `
		SELECT product_id, variant_id, quantity
		FROM reservation_lines
		WHERE reservation_id = $1
		ORDER BY line_no`, id)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load reservation lines", err)
	}
	defer rows.Close()

	var lines []inventory.Line
	for rows.Next() {
		var (
			productID, variantID uuid.UUID
			qty                  int32
		)
		if err := rows.Scan(&productID, &variantID, &qty); err != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation line", err)
		}
		key := inventory.ItemKey{ProductID: productID}
		if variantID != uuid.Nil {
			v := variantID
			key.VariantID = &v
		}
		lines = append(lines, inventory.Line{Key: key, Quantity: qty})
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reservation lines", err)
	}
	return lines, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrCodeUniqueViolation
}
