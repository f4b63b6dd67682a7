// Package ledger computes seat availability for event sessions and owns the
// session row lock that serializes every seat-changing operation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
	"github.com/kirinyoku/seatflow/internal/uow"
)

type Service struct {
	uow    *uow.UoW
	logger *slog.Logger
}

func New(u *uow.UoW, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{uow: u, logger: logger}
}

// Reserve locks the session row for the rest of tx and returns the session
// with counts read under that lock. Callers that change enrollments, holds
// or the waitlist of a session must call it before any other read.
//
// Returns:
//   - domain.ErrSessionNotFound if the session does not exist.
//   - domain.ErrInvariantViolation if availability is negative.
func (s *Service) Reserve(
	ctx context.Context,
	tx repository.Tx,
	sessionID int64,
) (*domain.EventSession, domain.SeatCounts, error) {
	const op = "service.ledger.Reserve"

	session, err := tx.Sessions().GetForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.SeatCounts{}, fmt.Errorf("%s:%w", op, domain.ErrSessionNotFound)
		}
		return nil, domain.SeatCounts{}, fmt.Errorf("%s:%w", op, err)
	}

	counts, err := s.counts(ctx, tx, sessionID)
	if err != nil {
		return nil, domain.SeatCounts{}, fmt.Errorf("%s:%w", op, err)
	}

	return session, counts, nil
}

// Snapshot returns the current counts of a session without taking the lock.
func (s *Service) Snapshot(ctx context.Context, sessionID int64) (domain.SeatCounts, error) {
	const op = "service.ledger.Snapshot"

	var counts domain.SeatCounts

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		c, err := s.counts(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		counts = c
		return nil
	})
	if err != nil {
		return domain.SeatCounts{}, fmt.Errorf("%s:%w", op, err)
	}

	return counts, nil
}

// AvailableSeats is max enrollments minus enrollments minus seats held by
// ACTIVE holds.
func (s *Service) AvailableSeats(ctx context.Context, sessionID int64) (int, error) {
	counts, err := s.Snapshot(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	return counts.Available, nil
}

// CheckWaitlist verifies that the session's waitlist positions are exactly
// 1..n inside tx.
func (s *Service) CheckWaitlist(ctx context.Context, tx repository.Tx, sessionID int64) error {
	const op = "service.ledger.CheckWaitlist"

	stats, err := tx.Waitlist().Stats(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if !stats.Dense() {
		s.logger.Error("waitlist positions not dense",
			slog.Int64("session_id", sessionID),
			slog.Int("count", stats.Count),
			slog.Int("distinct", stats.Distinct),
			slog.Int("min", stats.Min),
			slog.Int("max", stats.Max),
		)
		return fmt.Errorf("%s:%w", op, &domain.InvariantError{
			SessionID: sessionID,
			Detail:    fmt.Sprintf("waitlist positions not dense: %d entries span %d..%d", stats.Count, stats.Min, stats.Max),
		})
	}

	return nil
}

func (s *Service) counts(ctx context.Context, tx repository.Tx, sessionID int64) (domain.SeatCounts, error) {
	c, err := tx.Sessions().Counts(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.SeatCounts{}, domain.ErrSessionNotFound
		}
		return domain.SeatCounts{}, err
	}

	c.SessionID = sessionID
	c.Available = c.Max - c.Enrolled - c.Held

	if c.Available < 0 {
		s.logger.Error("negative seat availability",
			slog.Int64("session_id", sessionID),
			slog.Int("max", c.Max),
			slog.Int("enrolled", c.Enrolled),
			slog.Int("held", c.Held),
		)
		return c, &domain.InvariantError{
			SessionID: sessionID,
			Detail:    fmt.Sprintf("available %d < 0 (max %d, enrolled %d, held %d)", c.Available, c.Max, c.Enrolled, c.Held),
		}
	}

	return c, nil
}

// EnsureNewAttendee rejects an email that is already enrolled in or
// waitlisted for the session.
func EnsureNewAttendee(ctx context.Context, tx repository.Tx, sessionID int64, email string) error {
	enrolled, err := tx.Enrollments().EmailExists(ctx, sessionID, email)
	if err != nil {
		return err
	}
	if enrolled {
		return fmt.Errorf("%s: %w", email, domain.ErrAttendeeAlreadyEnrolled)
	}

	waitlisted, err := tx.Waitlist().EmailExists(ctx, sessionID, email)
	if err != nil {
		return err
	}
	if waitlisted {
		return fmt.Errorf("%s: %w", email, domain.ErrAttendeeAlreadyWaitlisted)
	}

	return nil
}
