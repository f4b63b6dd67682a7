// Package pricing turns a checkout's attendees into an amount and invoice
// line items. All money is integer cents; percentages are basis points.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/seatflow/internal/clock"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
	"github.com/kirinyoku/seatflow/internal/uow"
)

const maxBasisPoints = 10_000

type QuoteInput struct {
	Session      *domain.EventSession
	Attendees    []domain.Attendee
	DiscountCode string
	Admin        *domain.AdminDiscount
	Now          time.Time
	// LockCode takes a row lock on the discount so its usage count cannot
	// change before the transaction commits.
	LockCode bool
}

type Quote struct {
	SeatCount          int                      `json:"seat_count"`
	UnitPriceCents     int64                    `json:"unit_price_cents"`
	BaseCents          int64                    `json:"base_cents"`
	CodeDiscountCents  int64                    `json:"code_discount_cents"`
	AdminDiscountCents int64                    `json:"admin_discount_cents"`
	FinalCents         int64                    `json:"final_cents"`
	DiscountCode       string                   `json:"discount_code,omitempty"`
	LineItems          []domain.InvoiceLineItem `json:"line_items"`
}

type Service struct {
	uow   *uow.UoW
	clock clock.Clock
}

func New(u *uow.UoW, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}

	return &Service{uow: u, clock: clk}
}

// Quote validates the discount code inside tx and prices the attendees.
// An invalid code fails the whole quote; nothing is applied.
func (s *Service) Quote(ctx context.Context, tx repository.Tx, in QuoteInput) (*Quote, error) {
	const op = "service.pricing.Quote"

	now := in.Now
	if now.IsZero() {
		now = s.clock.Now()
	}

	base := in.Session.SeatPriceCents * int64(domain.CountSelected(in.Attendees))

	var discount *domain.Discount
	if code := strings.TrimSpace(in.DiscountCode); code != "" {
		d, err := validateCode(ctx, tx, code, in.Session.ID, base, now, in.LockCode)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		discount = d
	}

	q, err := Calculate(in.Session, in.Attendees, discount, in.Admin)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return q, nil
}

// Preview prices attendees for a session without holding anything.
func (s *Service) Preview(
	ctx context.Context,
	sessionID int64,
	attendees []domain.Attendee,
	code string,
	admin *domain.AdminDiscount,
) (*Quote, error) {
	const op = "service.pricing.Preview"

	var q *Quote

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		session, err := tx.Sessions().Get(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrSessionNotFound
			}
			return err
		}

		q, err = s.Quote(ctx, tx, QuoteInput{
			Session:      session,
			Attendees:    attendees,
			DiscountCode: code,
			Admin:        admin,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return q, nil
}

// Calculate prices the selected attendees. Both discounts are computed from
// the base amount; when together they exceed it the admin row is cut so the
// line items always add up to FinalCents.
func Calculate(
	session *domain.EventSession,
	attendees []domain.Attendee,
	discount *domain.Discount,
	admin *domain.AdminDiscount,
) (*Quote, error) {
	q := &Quote{UnitPriceCents: session.SeatPriceCents}

	for _, a := range attendees {
		if !a.IsSelected {
			continue
		}
		q.SeatCount++
		q.LineItems = append(q.LineItems, domain.InvoiceLineItem{
			Description:    strings.TrimSpace(fmt.Sprintf("Seat for %s %s", a.FirstName, a.LastName)),
			Quantity:       1,
			UnitPriceCents: session.SeatPriceCents,
			LineTotalCents: session.SeatPriceCents,
		})
	}
	q.BaseCents = session.SeatPriceCents * int64(q.SeatCount)

	if discount != nil {
		amount, err := Amount(discount.Type, discount.Value, q.BaseCents)
		if err != nil {
			return nil, err
		}
		code := discount.Code
		q.DiscountCode = code
		q.CodeDiscountCents = amount
		if amount > 0 {
			q.LineItems = append(q.LineItems, domain.InvoiceLineItem{
				Description:    "Discount code " + code,
				Quantity:       1,
				UnitPriceCents: -amount,
				LineTotalCents: -amount,
				DiscountCode:   &code,
			})
		}
	}

	if admin != nil && admin.Value != 0 {
		if strings.TrimSpace(admin.Reason) == "" {
			return nil, domain.ErrAdminReasonRequired
		}
		amount, err := Amount(admin.Type, admin.Value, q.BaseCents)
		if err != nil {
			return nil, err
		}
		amount = min(amount, q.BaseCents-q.CodeDiscountCents)
		q.AdminDiscountCents = amount
		if amount > 0 {
			q.LineItems = append(q.LineItems, domain.InvoiceLineItem{
				Description:    "Admin discount: " + strings.TrimSpace(admin.Reason),
				Quantity:       1,
				UnitPriceCents: -amount,
				LineTotalCents: -amount,
			})
		}
	}

	q.FinalCents = q.BaseCents - q.CodeDiscountCents - q.AdminDiscountCents

	return q, nil
}

// Amount is the reduction a discount gives on base. Percentages round half
// up to the cent; fixed amounts never exceed base.
func Amount(t domain.DiscountType, value, base int64) (int64, error) {
	if value < 0 {
		return 0, domain.ErrInvalidDiscountValue
	}

	switch t {
	case domain.DiscountPercentage:
		if value > maxBasisPoints {
			return 0, domain.ErrInvalidDiscountValue
		}
		return (base*value + maxBasisPoints/2) / maxBasisPoints, nil
	case domain.DiscountFixedAmount:
		return min(value, base), nil
	default:
		return 0, fmt.Errorf("discount type %q: %w", t, domain.ErrInvalidDiscountValue)
	}
}

func validateCode(
	ctx context.Context,
	tx repository.Tx,
	code string,
	sessionID int64,
	base int64,
	now time.Time,
	lock bool,
) (*domain.Discount, error) {
	var (
		d   *domain.Discount
		err error
	)
	if lock {
		d, err = tx.Discounts().GetByCodeForUpdate(ctx, code)
	} else {
		d, err = tx.Discounts().GetByCode(ctx, code)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", code, domain.ErrInvalidDiscountCode)
		}
		return nil, err
	}

	switch {
	case !d.IsActive:
		return nil, domain.ErrDiscountInactive
	case d.StartDate != nil && now.Before(*d.StartDate):
		return nil, domain.ErrDiscountNotYetActive
	case d.EndDate != nil && now.After(*d.EndDate):
		return nil, domain.ErrDiscountExpired
	case !d.AppliesTo(sessionID):
		return nil, domain.ErrDiscountNotValidForSession
	}

	if d.MaximumUses != nil {
		used, err := tx.Discounts().CountRedemptions(ctx, d.Code)
		if err != nil {
			return nil, err
		}
		if used >= *d.MaximumUses {
			return nil, domain.ErrDiscountMaxUsage
		}
	}

	if d.MinimumPurchaseCents != nil && base < *d.MinimumPurchaseCents {
		return nil, domain.ErrMinimumPurchaseNotMet
	}

	return d, nil
}
