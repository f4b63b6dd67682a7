// Package waitlist keeps each session's FIFO queue of attendees waiting for a
// seat. Positions of a session are always 1..n; every mutation renumbers in
// bulk and verifies that before it commits.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/kirinyoku/seatflow/internal/clock"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/events"
	"github.com/kirinyoku/seatflow/internal/repository"
	"github.com/kirinyoku/seatflow/internal/service/ledger"
	"github.com/kirinyoku/seatflow/internal/uow"
)

type Service struct {
	uow       *uow.UoW
	ledger    *ledger.Service
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

func New(
	u *uow.UoW,
	l *ledger.Service,
	publisher events.Publisher,
	clk clock.Clock,
	logger *slog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		uow:       u,
		ledger:    l,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// AddToWaitlist appends an attendee to the tail of the session's queue.
// A seat being free does not move the entry; promotion is a separate step.
//
// Returns:
//   - domain.ErrSessionNotFound if the session does not exist.
//   - domain.ErrAttendeeAlreadyEnrolled / domain.ErrAttendeeAlreadyWaitlisted
//     if the email is already in the session.
func (s *Service) AddToWaitlist(
	ctx context.Context,
	sessionID int64,
	attendee domain.Attendee,
) (*domain.WaitlistEntry, error) {
	const op = "service.waitlist.AddToWaitlist"

	var entry *domain.WaitlistEntry

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		session, _, err := s.ledger.Reserve(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		if err := ledger.EnsureNewAttendee(ctx, tx, sessionID, attendee.Email); err != nil {
			return err
		}

		entry = &domain.WaitlistEntry{
			SessionID:       sessionID,
			FirstName:       attendee.FirstName,
			LastName:        attendee.LastName,
			Email:           attendee.Email,
			SpecialRequests: attendee.SpecialRequests,
			SeatPriceCents:  session.SeatPriceCents,
			WaitlistedAt:    s.clock.Now(),
		}
		if err := tx.Waitlist().Append(ctx, entry); err != nil {
			return err
		}

		if err := s.ledger.CheckWaitlist(ctx, tx, sessionID); err != nil {
			return err
		}

		after(s.emit(events.WaitlistChanged, sessionID, entry.ID))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return entry, nil
}

// RemoveFromWaitlist deletes an entry and closes the gap behind it.
func (s *Service) RemoveFromWaitlist(ctx context.Context, entryID int64) error {
	const op = "service.waitlist.RemoveFromWaitlist"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		entry, err := s.lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}

		if err := s.unlink(ctx, tx, entry); err != nil {
			return err
		}

		if err := s.ledger.CheckWaitlist(ctx, tx, entry.SessionID); err != nil {
			return err
		}

		after(s.emit(events.WaitlistChanged, entry.SessionID, entry.ID))

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// MoveEnrollmentToWaitlist turns an enrollment back into a waitlist entry at
// the tail of the queue. After commit the freed seat is offered to the
// entries ahead of the moved one; the moved entry itself is never promoted
// straight back.
func (s *Service) MoveEnrollmentToWaitlist(ctx context.Context, enrollmentID int64) (*domain.WaitlistEntry, error) {
	const op = "service.waitlist.MoveEnrollmentToWaitlist"

	var entry *domain.WaitlistEntry

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		enrollment, err := tx.Enrollments().Get(ctx, enrollmentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrEnrollmentNotFound
			}
			return err
		}

		session, _, err := s.ledger.Reserve(ctx, tx, enrollment.SessionID)
		if err != nil {
			return err
		}

		// re-read under the session lock
		enrollment, err = tx.Enrollments().Get(ctx, enrollmentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrEnrollmentNotFound
			}
			return err
		}

		waitlisted, err := tx.Waitlist().EmailExists(ctx, session.ID, enrollment.Email)
		if err != nil {
			return err
		}
		if waitlisted {
			return domain.ErrAttendeeAlreadyWaitlisted
		}

		if err := tx.Enrollments().Delete(ctx, enrollment.ID); err != nil {
			return err
		}

		entry = &domain.WaitlistEntry{
			SessionID:       session.ID,
			FirstName:       enrollment.FirstName,
			LastName:        enrollment.LastName,
			Email:           enrollment.Email,
			EmployeeRef:     enrollment.EmployeeRef,
			SpecialRequests: enrollment.SpecialRequests,
			SeatPriceCents:  session.SeatPriceCents,
			WaitlistedAt:    s.clock.Now(),
		}
		if err := tx.Waitlist().Append(ctx, entry); err != nil {
			return err
		}

		if err := s.ledger.CheckWaitlist(ctx, tx, session.ID); err != nil {
			return err
		}

		after(s.emit(events.EnrollmentChanged, session.ID, entry.ID))
		after(func(ctx context.Context) {
			if _, err := s.promote(ctx, session.ID, entry.ID); err != nil {
				s.logger.Error("promote after enrollment move failed",
					slog.Int64("session_id", session.ID),
					slog.Any("error", err),
				)
			}
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return entry, nil
}

// MoveWaitlistToEnrollment enrolls a specific entry regardless of its
// position. Nothing changes when the session has no free seat.
//
// Returns:
//   - domain.ErrNoSeatAvailable if available seats are 0.
//   - domain.ErrWaitlistEntryNotFound if the entry does not exist.
func (s *Service) MoveWaitlistToEnrollment(ctx context.Context, entryID int64) (*domain.Enrollment, error) {
	const op = "service.waitlist.MoveWaitlistToEnrollment"

	var enrollment *domain.Enrollment

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		entry, err := tx.Waitlist().Get(ctx, entryID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrWaitlistEntryNotFound
			}
			return err
		}

		_, counts, err := s.ledger.Reserve(ctx, tx, entry.SessionID)
		if err != nil {
			return err
		}
		if counts.Available <= 0 {
			return domain.ErrNoSeatAvailable
		}

		enrollment, err = s.enroll(ctx, tx, entryID)
		if err != nil {
			return err
		}

		after(s.emit(events.EnrollmentChanged, entry.SessionID, entry.ID))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return enrollment, nil
}

// UpdateWaitlistPosition moves an entry to newPosition, clamped to [1, n].
// Entries in between shift by one in a single statement.
func (s *Service) UpdateWaitlistPosition(
	ctx context.Context,
	entryID int64,
	newPosition int,
) (*domain.WaitlistEntry, error) {
	const op = "service.waitlist.UpdateWaitlistPosition"

	var entry *domain.WaitlistEntry

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		var err error
		entry, err = s.lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}

		n, err := tx.Waitlist().Count(ctx, entry.SessionID)
		if err != nil {
			return err
		}

		target := min(max(newPosition, 1), n)
		old := entry.Position
		if target == old {
			return nil
		}

		if target < old {
			err = tx.Waitlist().Shift(ctx, entry.SessionID, target, old-1, 1)
		} else {
			err = tx.Waitlist().Shift(ctx, entry.SessionID, old+1, target, -1)
		}
		if err != nil {
			return err
		}

		if err := tx.Waitlist().SetPosition(ctx, entry.ID, target); err != nil {
			return err
		}
		entry.Position = target

		if err := s.ledger.CheckWaitlist(ctx, tx, entry.SessionID); err != nil {
			return err
		}

		after(s.emit(events.WaitlistChanged, entry.SessionID, entry.ID))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return entry, nil
}

// Promote enrolls waitlist entries in position order while seats are free.
// Each promotion commits on its own, so a failure keeps earlier promotions.
// The head is never skipped: every entry needs exactly one seat, so if it
// does not fit nothing behind it fits either.
//
// Returns the number of promoted entries.
func (s *Service) Promote(ctx context.Context, sessionID int64) (int, error) {
	return s.promote(ctx, sessionID, 0)
}

// promote is Promote that stops when the entry stopAt reaches the head.
func (s *Service) promote(ctx context.Context, sessionID, stopAt int64) (int, error) {
	const op = "service.waitlist.Promote"

	promoted := 0

	for {
		var done bool

		err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
			done = false

			_, counts, err := s.ledger.Reserve(ctx, tx, sessionID)
			if err != nil {
				return err
			}
			if counts.Available <= 0 {
				done = true
				return nil
			}

			head, err := tx.Waitlist().Head(ctx, sessionID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					done = true
					return nil
				}
				return err
			}
			if head.ID == stopAt {
				done = true
				return nil
			}

			if _, err := s.enroll(ctx, tx, head.ID); err != nil {
				return err
			}

			after(s.emit(events.WaitlistPromoted, sessionID, head.ID))

			return nil
		})
		if err != nil {
			return promoted, fmt.Errorf("%s:%w", op, err)
		}
		if done {
			break
		}

		promoted++
	}

	if promoted > 0 {
		s.logger.Info("waitlist promoted",
			slog.Int64("session_id", sessionID),
			slog.Int("count", promoted),
		)
	}

	return promoted, nil
}

// List returns the session's queue in position order.
func (s *Service) List(ctx context.Context, sessionID int64) ([]domain.WaitlistEntry, error) {
	const op = "service.waitlist.List"

	var entries []domain.WaitlistEntry

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		if _, err := tx.Sessions().Get(ctx, sessionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrSessionNotFound
			}
			return err
		}

		var err error
		entries, err = tx.Waitlist().List(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return entries, nil
}

// lockEntry finds the entry's session, locks it and re-reads the entry.
func (s *Service) lockEntry(ctx context.Context, tx repository.Tx, entryID int64) (*domain.WaitlistEntry, error) {
	entry, err := tx.Waitlist().Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrWaitlistEntryNotFound
		}
		return nil, err
	}

	if _, _, err := s.ledger.Reserve(ctx, tx, entry.SessionID); err != nil {
		return nil, err
	}

	entry, err = tx.Waitlist().Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrWaitlistEntryNotFound
		}
		return nil, err
	}

	return entry, nil
}

// unlink deletes the entry and pulls every later entry forward by one.
func (s *Service) unlink(ctx context.Context, tx repository.Tx, entry *domain.WaitlistEntry) error {
	if err := tx.Waitlist().Delete(ctx, entry.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrWaitlistEntryNotFound
		}
		return err
	}

	return tx.Waitlist().Shift(ctx, entry.SessionID, entry.Position+1, math.MaxInt32, -1)
}

// enroll converts a waitlist entry into an enrollment. The caller holds the
// session lock and has checked that a seat is free.
func (s *Service) enroll(ctx context.Context, tx repository.Tx, entryID int64) (*domain.Enrollment, error) {
	entry, err := tx.Waitlist().Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrWaitlistEntryNotFound
		}
		return nil, err
	}

	if err := s.unlink(ctx, tx, entry); err != nil {
		return nil, err
	}

	enrollment := &domain.Enrollment{
		SessionID:       entry.SessionID,
		FirstName:       entry.FirstName,
		LastName:        entry.LastName,
		Email:           entry.Email,
		EmployeeRef:     entry.EmployeeRef,
		SpecialRequests: entry.SpecialRequests,
		EnrolledAt:      s.clock.Now(),
	}
	if err := tx.Enrollments().Create(ctx, enrollment); err != nil {
		return nil, err
	}

	if err := s.ledger.CheckWaitlist(ctx, tx, entry.SessionID); err != nil {
		return nil, err
	}

	return enrollment, nil
}

func (s *Service) emit(t events.Type, sessionID, entryID int64) uow.AfterCommit {
	return func(ctx context.Context) {
		events.Emit(ctx, s.publisher, s.logger, events.Event{
			Type:       t,
			SessionID:  sessionID,
			EntryID:    entryID,
			OccurredAt: s.clock.Now(),
		})
	}
}
