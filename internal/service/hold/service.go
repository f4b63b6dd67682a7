// Package hold manages checkout holds: time-boxed claims on seats that keep
// them out of the ledger's availability while a checkout is paid for.
package hold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/seatflow/internal/clock"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/events"
	"github.com/kirinyoku/seatflow/internal/repository"
	"github.com/kirinyoku/seatflow/internal/service/ledger"
	"github.com/kirinyoku/seatflow/internal/uow"
)

// Promoter offers released seats to a session's waitlist.
type Promoter interface {
	Promote(ctx context.Context, sessionID int64) (int, error)
}

// RateLimiter limits hold creation per client key.
type RateLimiter interface {
	Allow(ctx context.Context, id string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

type Config struct {
	TTL            time.Duration
	SweepBatchSize int
}

type Service struct {
	uow       *uow.UoW
	ledger    *ledger.Service
	promoter  Promoter
	limiter   RateLimiter
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger
	cfg       Config
}

func New(
	u *uow.UoW,
	l *ledger.Service,
	promoter Promoter,
	limiter RateLimiter,
	publisher events.Publisher,
	clk clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 500
	}
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
		promoter:  promoter,
		limiter:   limiter,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		cfg:       cfg,
	}
}

type CreateHoldInput struct {
	SessionID int64
	CompanyID int64
	CreatedBy int64
	Attendees []domain.Attendee
	// RateLimitKey identifies the caller for rate limiting; empty disables it.
	RateLimitKey string
}

// CreateHold claims seats for the selected attendees of a checkout.
//
// Returns:
//   - domain.ErrNoAttendees if no attendee is selected or flagged for the waitlist.
//   - domain.ErrDuplicateAttendee if an email appears twice.
//   - domain.ErrAttendeeAlreadyEnrolled / domain.ErrAttendeeAlreadyWaitlisted.
//   - domain.ErrInsufficientSeats (*domain.InsufficientSeatsError) when fewer
//     seats are available than selected.
//   - *RateLimitedError when the caller exceeded its rate.
func (s *Service) CreateHold(ctx context.Context, in CreateHoldInput) (*domain.CheckoutHold, error) {
	const op = "service.hold.CreateHold"

	if err := validateAttendees(in.Attendees); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.allow(ctx, in.RateLimitKey); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var hold *domain.CheckoutHold

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		_, counts, err := s.ledger.Reserve(ctx, tx, in.SessionID)
		if err != nil {
			return err
		}

		for _, a := range in.Attendees {
			if err := ledger.EnsureNewAttendee(ctx, tx, in.SessionID, a.Email); err != nil {
				return err
			}
		}

		requested := domain.CountSelected(in.Attendees)
		if counts.Available < requested {
			return &domain.InsufficientSeatsError{Requested: requested, Available: counts.Available}
		}

		now := s.clock.Now()
		hold = &domain.CheckoutHold{
			UUID:      uuid.New(),
			SessionID: in.SessionID,
			CompanyID: in.CompanyID,
			CreatedBy: in.CreatedBy,
			Attendees: in.Attendees,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.TTL),
			Status:    domain.HoldActive,
		}
		if err := tx.Holds().Create(ctx, hold); err != nil {
			return err
		}

		after(s.emit(events.HoldCreated, hold))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return hold, nil
}

// UpdateAttendees replaces the attendee list of an ACTIVE hold. Only extra
// selected seats are checked against availability; shrinking always works
// and offers the released seats to the waitlist.
func (s *Service) UpdateAttendees(
	ctx context.Context,
	holdUUID uuid.UUID,
	attendees []domain.Attendee,
) (*domain.CheckoutHold, error) {
	const op = "service.hold.UpdateAttendees"

	if err := validateAttendees(attendees); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var (
		hold  *domain.CheckoutHold
		delta int
	)

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		h, counts, err := s.lockHold(ctx, tx, holdUUID)
		if err != nil {
			return err
		}
		if err := s.ensureLive(h); err != nil {
			return err
		}

		previous := make(map[string]struct{}, len(h.Attendees))
		for _, a := range h.Attendees {
			previous[a.NormalizedEmail()] = struct{}{}
		}
		for _, a := range attendees {
			if _, ok := previous[a.NormalizedEmail()]; ok {
				continue
			}
			if err := ledger.EnsureNewAttendee(ctx, tx, h.SessionID, a.Email); err != nil {
				return err
			}
		}

		delta = domain.CountSelected(attendees) - h.SeatCount()
		if delta > 0 && counts.Available < delta {
			return &domain.InsufficientSeatsError{Requested: delta, Available: counts.Available}
		}

		if err := tx.Holds().UpdateAttendees(ctx, h.UUID, attendees); err != nil {
			return err
		}
		h.Attendees = attendees
		hold = h

		after(s.emit(events.HoldUpdated, h))
		if delta < 0 {
			after(s.promote(h.SessionID))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return hold, nil
}

// ResetExpiration restarts the TTL of a live hold.
//
// Returns:
//   - domain.ErrHoldNotFound if the hold does not exist.
//   - domain.ErrHoldNotActive if it is not ACTIVE or its TTL already lapsed.
func (s *Service) ResetExpiration(ctx context.Context, holdUUID uuid.UUID) (time.Time, error) {
	const op = "service.hold.ResetExpiration"

	var expiresAt time.Time

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		h, _, err := s.lockHold(ctx, tx, holdUUID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if !h.IsLive(now) {
			return domain.ErrHoldNotActive
		}

		expiresAt = now.Add(s.cfg.TTL)
		if err := tx.Holds().UpdateExpiry(ctx, h.UUID, expiresAt); err != nil {
			return err
		}
		h.ExpiresAt = expiresAt

		after(s.emit(events.HoldUpdated, h))

		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("%s:%w", op, err)
	}

	return expiresAt, nil
}

// CancelHold releases an ACTIVE hold and offers its seats to the waitlist.
func (s *Service) CancelHold(ctx context.Context, holdUUID uuid.UUID) error {
	const op = "service.hold.CancelHold"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		h, _, err := s.lockHold(ctx, tx, holdUUID)
		if err != nil {
			return err
		}

		ok, err := tx.Holds().Transition(ctx, h.UUID, domain.HoldActive, domain.HoldCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrHoldNotActive
		}
		h.Status = domain.HoldCancelled

		after(s.emit(events.HoldCancelled, h))
		after(s.promote(h.SessionID))

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// ExpireStaleHolds moves ACTIVE holds whose TTL has passed to EXPIRED. Each
// hold is expired in its own transaction; a hold that was consumed,
// cancelled or extended in the meantime is left alone, so running the sweep
// twice is harmless. Sessions that got seats back are promoted once.
//
// Returns the number of expired holds and every per-hold error joined.
func (s *Service) ExpireStaleHolds(ctx context.Context) (int, error) {
	const op = "service.hold.ExpireStaleHolds"

	var stale []domain.CheckoutHold

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		var err error
		stale, err = tx.Holds().ListStale(ctx, s.clock.Now(), s.cfg.SweepBatchSize)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	var (
		expired  int
		errs     []error
		sessions []int64
		seen     = map[int64]struct{}{}
	)

	for _, candidate := range stale {
		ok, err := s.expire(ctx, candidate.UUID)
		if err != nil {
			errs = append(errs, fmt.Errorf("hold %s: %w", candidate.UUID, err))
			continue
		}
		if !ok {
			continue
		}

		expired++
		if _, dup := seen[candidate.SessionID]; !dup {
			seen[candidate.SessionID] = struct{}{}
			sessions = append(sessions, candidate.SessionID)
		}
	}

	for _, sessionID := range sessions {
		s.promote(sessionID)(ctx)
	}

	if expired > 0 || len(errs) > 0 {
		s.logger.Info("expired stale holds",
			slog.Int("expired", expired),
			slog.Int("failed", len(errs)),
			slog.Int("sessions", len(sessions)),
		)
	}

	if len(errs) > 0 {
		return expired, fmt.Errorf("%s:%w", op, errors.Join(errs...))
	}

	return expired, nil
}

// GetHold returns a hold in any status.
func (s *Service) GetHold(ctx context.Context, holdUUID uuid.UUID) (*domain.CheckoutHold, error) {
	const op = "service.hold.GetHold"

	var hold *domain.CheckoutHold

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		h, err := tx.Holds().Get(ctx, holdUUID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrHoldNotFound
			}
			return err
		}
		hold = h
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return hold, nil
}

// expire re-checks one stale hold under its session lock and expires it.
func (s *Service) expire(ctx context.Context, holdUUID uuid.UUID) (bool, error) {
	var expired bool

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		expired = false

		h, _, err := s.lockHold(ctx, tx, holdUUID)
		if err != nil {
			return err
		}
		if h.Status != domain.HoldActive || h.ExpiresAt.After(s.clock.Now()) {
			return nil
		}

		ok, err := tx.Holds().Transition(ctx, h.UUID, domain.HoldActive, domain.HoldExpired)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		h.Status = domain.HoldExpired
		expired = true

		after(s.emit(events.HoldExpired, h))

		return nil
	})

	return expired, err
}

// lockHold reads the hold, locks its session and re-reads the hold under
// the lock.
func (s *Service) lockHold(
	ctx context.Context,
	tx repository.Tx,
	holdUUID uuid.UUID,
) (*domain.CheckoutHold, domain.SeatCounts, error) {
	h, err := tx.Holds().Get(ctx, holdUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.SeatCounts{}, domain.ErrHoldNotFound
		}
		return nil, domain.SeatCounts{}, err
	}

	_, counts, err := s.ledger.Reserve(ctx, tx, h.SessionID)
	if err != nil {
		return nil, domain.SeatCounts{}, err
	}

	h, err = tx.Holds().GetForUpdate(ctx, holdUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.SeatCounts{}, domain.ErrHoldNotFound
		}
		return nil, domain.SeatCounts{}, err
	}

	return h, counts, nil
}

func (s *Service) ensureLive(h *domain.CheckoutHold) error {
	if h.Status == domain.HoldExpired {
		return domain.ErrHoldExpired
	}
	if h.Status != domain.HoldActive {
		return domain.ErrHoldNotActive
	}
	if !h.ExpiresAt.After(s.clock.Now()) {
		return domain.ErrHoldExpired
	}
	return nil
}

func (s *Service) allow(ctx context.Context, key string) error {
	if s.limiter == nil || key == "" {
		return nil
	}

	ok, _, retry, err := s.limiter.Allow(ctx, key)
	if err != nil {
		// fail open
		s.logger.Warn("rate limiter unavailable", slog.Any("error", err))
		return nil
	}
	if !ok {
		return &RateLimitedError{RetryAfter: retry}
	}

	return nil
}

func (s *Service) promote(sessionID int64) uow.AfterCommit {
	return func(ctx context.Context) {
		if s.promoter == nil {
			return
		}
		if _, err := s.promoter.Promote(ctx, sessionID); err != nil {
			s.logger.Error("waitlist promotion failed",
				slog.Int64("session_id", sessionID),
				slog.Any("error", err),
			)
		}
	}
}

func (s *Service) emit(t events.Type, h *domain.CheckoutHold) uow.AfterCommit {
	return func(ctx context.Context) {
		events.Emit(ctx, s.publisher, s.logger, events.Event{
			Type:       t,
			SessionID:  h.SessionID,
			HoldUUID:   h.UUID.String(),
			OccurredAt: s.clock.Now(),
		})
	}
}

func validateAttendees(attendees []domain.Attendee) error {
	seen := make(map[string]struct{}, len(attendees))
	counted := 0

	for _, a := range attendees {
		if a.IsSelected || a.IsWaitlist {
			counted++
		}
		email := a.NormalizedEmail()
		if _, dup := seen[email]; dup {
			return fmt.Errorf("%s: %w", email, domain.ErrDuplicateAttendee)
		}
		seen[email] = struct{}{}
	}

	if counted == 0 {
		return domain.ErrNoAttendees
	}

	return nil
}
