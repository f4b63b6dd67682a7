package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
)

// WaitlistRepo stores waitlist entries. Positions are unique per session but
// the constraint is deferred to commit, so bulk shifts may pass through
// transient duplicates.
type WaitlistRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *WaitlistRepo) With(db DB) *WaitlistRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *WaitlistRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const waitlistColumns = `id, session_id, first_name, last_name, email, employee_ref, special_requests,
	position, seat_price_cents, waitlisted_at`

func scanWaitlistEntry(row pgx.Row) (*domain.WaitlistEntry, error) {
	var w domain.WaitlistEntry
	if err := row.Scan(
		&w.ID, &w.SessionID, &w.FirstName, &w.LastName, &w.Email, &w.EmployeeRef, &w.SpecialRequests,
		&w.Position, &w.SeatPriceCents, &w.WaitlistedAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}

// Append inserts the entry at position max+1. The caller holds the session
// lock, so the max cannot move underneath.
func (r *WaitlistRepo) Append(ctx context.Context, e *domain.WaitlistEntry) error {
	const op = "postgres.WaitlistRepo.Append"

	if err := r.handle().QueryRow(ctx,
		`INSERT INTO waitlist_entries
		   (session_id, first_name, last_name, email, employee_ref, special_requests,
		    position, seat_price_cents, waitlisted_at)
		 SELECT $1, $2, $3, $4, $5, $6,
		        COALESCE(MAX(position), 0) + 1, $7, $8
		   FROM waitlist_entries
		  WHERE session_id = $1
		 RETURNING id, position`,
		e.SessionID, e.FirstName, e.LastName, e.Email, e.EmployeeRef, e.SpecialRequests,
		e.SeatPriceCents, e.WaitlistedAt,
	).Scan(&e.ID, &e.Position); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *WaitlistRepo) Get(ctx context.Context, id int64) (*domain.WaitlistEntry, error) {
	const op = "postgres.WaitlistRepo.Get"

	w, err := scanWaitlistEntry(r.handle().QueryRow(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return w, nil
}

func (r *WaitlistRepo) Head(ctx context.Context, sessionID int64) (*domain.WaitlistEntry, error) {
	const op = "postgres.WaitlistRepo.Head"

	w, err := scanWaitlistEntry(r.handle().QueryRow(ctx,
		`SELECT `+waitlistColumns+`
		   FROM waitlist_entries
		  WHERE session_id = $1
		  ORDER BY position, id
		  LIMIT 1`,
		sessionID,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return w, nil
}

func (r *WaitlistRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.WaitlistRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Shift moves every entry in positions [from, to] by delta in one statement.
func (r *WaitlistRepo) Shift(ctx context.Context, sessionID int64, from, to, delta int) error {
	const op = "postgres.WaitlistRepo.Shift"

	if from > to || delta == 0 {
		return nil
	}

	if _, err := r.handle().Exec(ctx,
		`UPDATE waitlist_entries
		    SET position = position + $4
		  WHERE session_id = $1 AND position BETWEEN $2 AND $3`,
		sessionID, from, to, delta,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *WaitlistRepo) SetPosition(ctx context.Context, id int64, position int) error {
	const op = "postgres.WaitlistRepo.SetPosition"

	tag, err := r.handle().Exec(ctx,
		`UPDATE waitlist_entries SET position = $2 WHERE id = $1`,
		id, position,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *WaitlistRepo) Count(ctx context.Context, sessionID int64) (int, error) {
	const op = "postgres.WaitlistRepo.Count"

	var n int
	if err := r.handle().QueryRow(ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE session_id = $1`, sessionID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return n, nil
}

func (r *WaitlistRepo) List(ctx context.Context, sessionID int64) ([]domain.WaitlistEntry, error) {
	const op = "postgres.WaitlistRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist_entries WHERE session_id = $1 ORDER BY position, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.WaitlistEntry
	for rows.Next() {
		w, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *WaitlistRepo) Stats(ctx context.Context, sessionID int64) (repository.PositionStats, error) {
	const op = "postgres.WaitlistRepo.Stats"

	var s repository.PositionStats
	if err := r.handle().QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT position), COALESCE(MIN(position), 0), COALESCE(MAX(position), 0)
		   FROM waitlist_entries
		  WHERE session_id = $1`,
		sessionID,
	).Scan(&s.Count, &s.Distinct, &s.Min, &s.Max); err != nil {
		return repository.PositionStats{}, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return s, nil
}

func (r *WaitlistRepo) EmailExists(ctx context.Context, sessionID int64, email string) (bool, error) {
	const op = "postgres.WaitlistRepo.EmailExists"

	var exists bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM waitlist_entries WHERE session_id = $1 AND lower(email) = lower(trim($2))
		 )`,
		sessionID, email,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return exists, nil
}
