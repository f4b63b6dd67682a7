// Package query serves read-only views of sessions, waitlists and billing
// records. Availability and waitlist views go through the Redis cache and
// are invalidated by the events the write services publish.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
	redisrepo "github.com/kirinyoku/seatflow/internal/repository/redis"
	"github.com/kirinyoku/seatflow/internal/service/ledger"
	"github.com/kirinyoku/seatflow/internal/uow"
)

type Config struct {
	AvailabilityTTL time.Duration
	WaitlistTTL     time.Duration
}

type Service struct {
	uow    *uow.UoW
	ledger *ledger.Service
	cache  *redisrepo.Cache
	cfg    Config
}

func New(u *uow.UoW, l *ledger.Service, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	if cfg.WaitlistTTL <= 0 {
		cfg.WaitlistTTL = 30 * time.Second
	}

	return &Service{
		uow:    u,
		ledger: l,
		cache:  cache,
		cfg:    cfg,
	}
}

// Availability returns the seat counts of a session, utilizing a caching
// layer in front of the ledger.
//
// Parameters:
//   - ctx: request-scoped context.
//   - sessionID: ID of the session.
//
// Returns:
//   - domain.SeatCounts: the counts at the time they were loaded.
//   - error: domain.ErrSessionNotFound if the session does not exist.
func (s *Service) Availability(ctx context.Context, sessionID int64) (domain.SeatCounts, error) {
	const op = "service.query.Availability"

	counts, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeySessionAvailability(sessionID),
		s.cfg.AvailabilityTTL,
		s.snapshot(sessionID),
	)
	if err != nil {
		return domain.SeatCounts{}, fmt.Errorf("%s:%w", op, err)
	}

	return counts, nil
}

// Waitlist returns the session's queue in position order, cached.
func (s *Service) Waitlist(ctx context.Context, sessionID int64) ([]domain.WaitlistEntry, error) {
	const op = "service.query.Waitlist"

	entries, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeySessionWaitlist(sessionID),
		s.cfg.WaitlistTTL,
		func(ctx context.Context) ([]domain.WaitlistEntry, error) {
			var out []domain.WaitlistEntry
			err := s.read(ctx, func(ctx context.Context, tx repository.Tx) error {
				if err := sessionExists(ctx, tx, sessionID); err != nil {
					return err
				}
				var err error
				out, err = tx.Waitlist().List(ctx, sessionID)
				return err
			})
			return out, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return entries, nil
}

func (s *Service) GetSession(ctx context.Context, sessionID int64) (*domain.EventSession, error) {
	const op = "service.query.GetSession"

	var session *domain.EventSession

	err := s.read(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		session, err = tx.Sessions().Get(ctx, sessionID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrSessionNotFound
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return session, nil
}

// ListEnrollments returns every enrollment of a session.
func (s *Service) ListEnrollments(ctx context.Context, sessionID int64) ([]domain.Enrollment, error) {
	const op = "service.query.ListEnrollments"

	var out []domain.Enrollment

	err := s.read(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := sessionExists(ctx, tx, sessionID); err != nil {
			return err
		}
		var err error
		out, err = tx.Enrollments().ListBySession(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// InvoiceView is an invoice together with its credit memo, if any.
type InvoiceView struct {
	Invoice    *domain.Invoice    `json:"invoice"`
	CreditMemo *domain.CreditMemo `json:"credit_memo,omitempty"`
}

// GetInvoice retrieves an invoice and the memo that credited it.
//
// Returns:
//   - error: domain.ErrInvoiceNotFound if the invoice does not exist.
func (s *Service) GetInvoice(ctx context.Context, invoiceID int64) (*InvoiceView, error) {
	const op = "service.query.GetInvoice"

	view := &InvoiceView{}

	err := s.read(ctx, func(ctx context.Context, tx repository.Tx) error {
		inv, err := tx.Invoices().Get(ctx, invoiceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrInvoiceNotFound
			}
			return err
		}
		view.Invoice = inv

		memo, err := tx.Invoices().CreditMemoByInvoice(ctx, invoiceID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return err
		default:
			view.CreditMemo = memo
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return view, nil
}

// ListPayments returns every payment attempt made for a hold, oldest first.
func (s *Service) ListPayments(ctx context.Context, holdUUID uuid.UUID) ([]domain.Payment, error) {
	const op = "service.query.ListPayments"

	var out []domain.Payment

	err := s.read(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Holds().Get(ctx, holdUUID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrHoldNotFound
			}
			return err
		}
		var err error
		out, err = tx.Payments().ListByHold(ctx, holdUUID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) snapshot(sessionID int64) func(ctx context.Context) (domain.SeatCounts, error) {
	return func(ctx context.Context) (domain.SeatCounts, error) {
		return s.ledger.Snapshot(ctx, sessionID)
	}
}

func (s *Service) read(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		return fn(ctx, tx)
	})
}

func sessionExists(ctx context.Context, tx repository.Tx, sessionID int64) error {
	if _, err := tx.Sessions().Get(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrSessionNotFound
		}
		return err
	}
	return nil
}
