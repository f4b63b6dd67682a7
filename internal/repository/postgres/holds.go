package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatflow/internal/domain"
)

type HoldRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *HoldRepo) With(db DB) *HoldRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *HoldRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const holdColumns = `uuid, session_id, company_id, created_by, attendees, created_at, expires_at,
	status, COALESCE(confirmation_number, ''), amount_cents, finalized_at`

func scanHold(row pgx.Row) (*domain.CheckoutHold, error) {
	var (
		h         domain.CheckoutHold
		attendees []byte
		status    string
	)

	if err := row.Scan(
		&h.UUID, &h.SessionID, &h.CompanyID, &h.CreatedBy, &attendees, &h.CreatedAt, &h.ExpiresAt,
		&status, &h.ConfirmationNumber, &h.AmountCents, &h.FinalizedAt,
	); err != nil {
		return nil, err
	}

	h.Status = domain.HoldStatus(status)
	if err := json.Unmarshal(attendees, &h.Attendees); err != nil {
		return nil, fmt.Errorf("decode attendees: %w", err)
	}

	return &h, nil
}

// Create inserts a new hold.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - h: the hold to store; UUID, timestamps and status must be set.
//
// Returns:
//   - error: repository.ErrConflict if a hold with the same UUID exists.
func (r *HoldRepo) Create(ctx context.Context, h *domain.CheckoutHold) error {
	const op = "postgres.HoldRepo.Create"

	attendees, err := json.Marshal(h.Attendees)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if _, err := r.handle().Exec(ctx,
		`INSERT INTO checkout_holds
		   (uuid, session_id, company_id, created_by, attendees, seat_count, status, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		h.UUID, h.SessionID, h.CompanyID, h.CreatedBy, attendees, h.SeatCount(),
		string(h.Status), h.CreatedAt, h.ExpiresAt,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *HoldRepo) Get(ctx context.Context, id uuid.UUID) (*domain.CheckoutHold, error) {
	const op = "postgres.HoldRepo.Get"

	h, err := scanHold(r.handle().QueryRow(ctx,
		`SELECT `+holdColumns+` FROM checkout_holds WHERE uuid = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return h, nil
}

func (r *HoldRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.CheckoutHold, error) {
	const op = "postgres.HoldRepo.GetForUpdate"

	h, err := scanHold(r.handle().QueryRow(ctx,
		`SELECT `+holdColumns+` FROM checkout_holds WHERE uuid = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return h, nil
}

func (r *HoldRepo) UpdateAttendees(ctx context.Context, id uuid.UUID, attendees []domain.Attendee) error {
	const op = "postgres.HoldRepo.UpdateAttendees"

	b, err := json.Marshal(attendees)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return r.execOne(ctx, op,
		`UPDATE checkout_holds SET attendees = $2, seat_count = $3 WHERE uuid = $1`,
		id, b, domain.CountSelected(attendees),
	)
}

func (r *HoldRepo) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	const op = "postgres.HoldRepo.UpdateExpiry"

	return r.execOne(ctx, op,
		`UPDATE checkout_holds SET expires_at = $2 WHERE uuid = $1`,
		id, expiresAt,
	)
}

// Transition changes the status only when the hold is still in the from
// state, so concurrent sweeps and cancellations apply at most once.
func (r *HoldRepo) Transition(ctx context.Context, id uuid.UUID, from, to domain.HoldStatus) (bool, error) {
	const op = "postgres.HoldRepo.Transition"

	tag, err := r.handle().Exec(ctx,
		`UPDATE checkout_holds SET status = $3 WHERE uuid = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected() == 1, nil
}

func (r *HoldRepo) Finalize(
	ctx context.Context,
	id uuid.UUID,
	confirmation string,
	amountCents int64,
	at time.Time,
) (bool, error) {
	const op = "postgres.HoldRepo.Finalize"

	tag, err := r.handle().Exec(ctx,
		`UPDATE checkout_holds
		    SET status = 'CONSUMED', confirmation_number = $2, amount_cents = $3, finalized_at = $4
		  WHERE uuid = $1 AND status = 'ACTIVE'`,
		id, confirmation, amountCents, at,
	)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected() == 1, nil
}

// ListStale returns ACTIVE holds whose expiry is at or before now, oldest first.
func (r *HoldRepo) ListStale(ctx context.Context, now time.Time, limit int) ([]domain.CheckoutHold, error) {
	const op = "postgres.HoldRepo.ListStale"

	if limit <= 0 {
		limit = 500
	}

	rows, err := r.handle().Query(ctx,
		`SELECT `+holdColumns+`
		   FROM checkout_holds
		  WHERE status = 'ACTIVE' AND expires_at <= $1
		  ORDER BY expires_at, uuid
		  LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.CheckoutHold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *HoldRepo) ConfirmationExists(ctx context.Context, confirmation string) (bool, error) {
	const op = "postgres.HoldRepo.ConfirmationExists"

	var exists bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM checkout_holds WHERE confirmation_number = $1)`,
		confirmation,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return exists, nil
}

func (r *HoldRepo) execOne(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.handle().Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}
