package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatflow/internal/domain"
)

type SessionRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SessionRepo) With(db DB) *SessionRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SessionRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const sessionColumns = `id, name, max_enrollments, seat_price_cents, start_date, timezone`

func (r *SessionRepo) Create(ctx context.Context, s *domain.EventSession) error {
	const op = "postgres.SessionRepo.Create"

	if err := r.handle().QueryRow(ctx,
		`INSERT INTO event_sessions (name, max_enrollments, seat_price_cents, start_date, timezone)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		s.Name, s.MaxEnrollments, s.SeatPriceCents, s.StartDate, s.Timezone,
	).Scan(&s.ID); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id int64) (*domain.EventSession, error) {
	const op = "postgres.SessionRepo.Get"

	s, err := r.get(ctx, `SELECT `+sessionColumns+` FROM event_sessions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return s, nil
}

// GetForUpdate reads the session and takes its row lock. Every mutation of
// a session's seats, holds or waitlist goes through this lock first.
func (r *SessionRepo) GetForUpdate(ctx context.Context, id int64) (*domain.EventSession, error) {
	const op = "postgres.SessionRepo.GetForUpdate"

	s, err := r.get(ctx, `SELECT `+sessionColumns+` FROM event_sessions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return s, nil
}

func (r *SessionRepo) get(ctx context.Context, sql string, id int64) (*domain.EventSession, error) {
	var s domain.EventSession
	if err := r.handle().QueryRow(ctx, sql, id).Scan(
		&s.ID, &s.Name, &s.MaxEnrollments, &s.SeatPriceCents, &s.StartDate, &s.Timezone,
	); err != nil {
		return nil, translateDBErr(err)
	}
	return &s, nil
}

// Counts returns the raw ledger figures for a session. Held counts every
// ACTIVE hold, expired or not, until the sweep moves it to EXPIRED.
func (r *SessionRepo) Counts(ctx context.Context, id int64) (domain.SeatCounts, error) {
	const op = "postgres.SessionRepo.Counts"

	c := domain.SeatCounts{SessionID: id}
	if err := r.handle().QueryRow(ctx,
		`SELECT s.max_enrollments,
		        (SELECT COUNT(*) FROM enrollments e WHERE e.session_id = s.id),
		        (SELECT COALESCE(SUM(h.seat_count), 0) FROM checkout_holds h
		          WHERE h.session_id = s.id AND h.status = 'ACTIVE'),
		        (SELECT COUNT(*) FROM waitlist_entries w WHERE w.session_id = s.id)
		   FROM event_sessions s
		  WHERE s.id = $1`,
		id,
	).Scan(&c.Max, &c.Enrolled, &c.Held, &c.Waitlisted); err != nil {
		return domain.SeatCounts{}, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return c, nil
}
