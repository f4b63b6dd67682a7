package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
)

type EnrollmentRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *EnrollmentRepo) With(db DB) *EnrollmentRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EnrollmentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const enrollmentColumns = `id, session_id, hold_uuid, first_name, last_name, email, employee_ref,
	special_requests, enrolled_at`

func scanEnrollment(row pgx.Row) (*domain.Enrollment, error) {
	var e domain.Enrollment
	if err := row.Scan(
		&e.ID, &e.SessionID, &e.HoldUUID, &e.FirstName, &e.LastName, &e.Email, &e.EmployeeRef,
		&e.SpecialRequests, &e.EnrolledAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepo) Create(ctx context.Context, e *domain.Enrollment) error {
	const op = "postgres.EnrollmentRepo.Create"

	if err := r.handle().QueryRow(ctx,
		`INSERT INTO enrollments
		   (session_id, hold_uuid, first_name, last_name, email, employee_ref, special_requests, enrolled_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		e.SessionID, e.HoldUUID, e.FirstName, e.LastName, e.Email, e.EmployeeRef,
		e.SpecialRequests, e.EnrolledAt,
	).Scan(&e.ID); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *EnrollmentRepo) Get(ctx context.Context, id int64) (*domain.Enrollment, error) {
	const op = "postgres.EnrollmentRepo.Get"

	e, err := scanEnrollment(r.handle().QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return e, nil
}

func (r *EnrollmentRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.EnrollmentRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *EnrollmentRepo) DeleteByHold(ctx context.Context, holdUUID uuid.UUID) (int, error) {
	const op = "postgres.EnrollmentRepo.DeleteByHold"

	tag, err := r.handle().Exec(ctx, `DELETE FROM enrollments WHERE hold_uuid = $1`, holdUUID)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return int(tag.RowsAffected()), nil
}

func (r *EnrollmentRepo) ListBySession(ctx context.Context, sessionID int64) ([]domain.Enrollment, error) {
	const op = "postgres.EnrollmentRepo.ListBySession"

	rows, err := r.handle().Query(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE session_id = $1 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *EnrollmentRepo) EmailExists(ctx context.Context, sessionID int64, email string) (bool, error) {
	const op = "postgres.EnrollmentRepo.EmailExists"

	var exists bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM enrollments WHERE session_id = $1 AND lower(email) = lower(trim($2))
		 )`,
		sessionID, email,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return exists, nil
}
