package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirinyoku/seatflow/internal/clock"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/events"
	"github.com/kirinyoku/seatflow/internal/repository"
	"github.com/kirinyoku/seatflow/internal/service/pricing"
	"github.com/kirinyoku/seatflow/internal/uow"
)

type Service struct {
	uow       *uow.UoW
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

func New(u *uow.UoW, publisher events.Publisher, clk clock.Clock, logger *slog.Logger) *Service {
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
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// CreateSession creates an event session and returns it with its ID set.
//
// Parameters:
//   - ctx: request-scoped context.
//   - session: the session to store; ID is ignored.
//
// Returns:
//   - *domain.EventSession: the created session.
//   - error: domain.ErrInvalidSession if the name is blank or the capacity
//     or price is negative.
func (s *Service) CreateSession(ctx context.Context, session domain.EventSession) (*domain.EventSession, error) {
	const op = "service.admin.CreateSession"

	session.Name = strings.TrimSpace(session.Name)
	if session.Name == "" || session.MaxEnrollments < 0 || session.SeatPriceCents < 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInvalidSession)
	}
	if session.Timezone == "" {
		session.Timezone = "UTC"
	}
	session.ID = 0

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.Sessions().Create(ctx, &session); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		sessionID := session.ID
		after(func(ctx context.Context) {
			events.Emit(ctx, s.publisher, s.logger, events.Event{
				Type:       events.SessionChanged,
				SessionID:  sessionID,
				OccurredAt: s.clock.Now(),
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// CreateDiscount stores a discount code. Codes are case-insensitive and
// stored upper-cased.
//
// Returns:
//   - error: domain.ErrInvalidDiscountValue if the type or value is invalid.
//   - error: domain.ErrDiscountExists if the code is taken.
func (s *Service) CreateDiscount(ctx context.Context, d domain.Discount) (*domain.Discount, error) {
	const op = "service.admin.CreateDiscount"

	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	if d.Code == "" {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInvalidDiscountCode)
	}
	if _, err := pricing.Amount(d.Type, d.Value, d.Value); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if d.StartDate != nil && d.EndDate != nil && d.EndDate.Before(*d.StartDate) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInvalidDiscountValue)
	}
	d.ID = 0

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		if err := tx.Discounts().Create(ctx, &d); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, domain.ErrDiscountExists)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &d, nil
}
