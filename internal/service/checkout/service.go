// Package checkout turns a paid hold into enrollments and an invoice, and
// reverses that with a credit memo on refund.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/seatflow/internal/clock"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/events"
	"github.com/kirinyoku/seatflow/internal/payment"
	"github.com/kirinyoku/seatflow/internal/repository"
	"github.com/kirinyoku/seatflow/internal/service/ledger"
	"github.com/kirinyoku/seatflow/internal/service/pricing"
	"github.com/kirinyoku/seatflow/internal/uow"
)

// Error codes stored on payments that were charged but could not be
// turned into an enrollment.
const (
	CodeGatewayError               = "GATEWAY_ERROR"
	CodeHoldExpiredAfterCharge     = "HOLD_EXPIRED_AFTER_CHARGE"
	CodeHoldNotActiveAfterCharge   = "HOLD_NOT_ACTIVE_AFTER_CHARGE"
	CodeDiscountInvalidAfterCharge = "DISCOUNT_INVALID_AFTER_CHARGE"
	CodeAmountMismatchAfterCharge  = "AMOUNT_MISMATCH_AFTER_CHARGE"
	CodeFinalizeFailedAfterCharge  = "FINALIZE_FAILED_AFTER_CHARGE"
	CodeInvoiceNumberTaken         = "INVOICE_NUMBER_TAKEN_AFTER_CHARGE"
)

const confirmationAttempts = 5

// Promoter offers released seats to a session's waitlist.
type Promoter interface {
	Promote(ctx context.Context, sessionID int64) (int, error)
}

type Config struct {
	PaymentTimeout time.Duration
	Currency       string
}

type Service struct {
	uow             *uow.UoW
	ledger          *ledger.Service
	pricing         *pricing.Service
	gateway         payment.Gateway
	promoter        Promoter
	publisher       events.Publisher
	clock           clock.Clock
	logger          *slog.Logger
	cfg             Config
	newConfirmation func() string
}

func New(
	u *uow.UoW,
	l *ledger.Service,
	p *pricing.Service,
	gateway payment.Gateway,
	promoter Promoter,
	publisher events.Publisher,
	clk clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 30 * time.Second
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
		uow:             u,
		ledger:          l,
		pricing:         p,
		gateway:         gateway,
		promoter:        promoter,
		publisher:       publisher,
		clock:           clk,
		logger:          logger,
		cfg:             cfg,
		newConfirmation: newConfirmationNumber,
	}
}

type PaymentInput struct {
	HoldUUID uuid.UUID
	// CompanyID, when set, must own the hold.
	CompanyID     int64
	ActingUserID  int64
	CardToken     string
	Descriptor    string
	DiscountCode  string
	AdminDiscount *domain.AdminDiscount
}

type PaymentResult struct {
	Success            bool                   `json:"success"`
	ErrorCode          string                 `json:"error_code,omitempty"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
	ConfirmationNumber string                 `json:"confirmation_number,omitempty"`
	Invoice            *domain.Invoice        `json:"invoice,omitempty"`
	Payment            *domain.Payment        `json:"payment,omitempty"`
	Enrollments        []domain.Enrollment    `json:"enrollments,omitempty"`
	Waitlisted         []domain.WaitlistEntry `json:"waitlisted,omitempty"`
}

// lateFailure is a charge that succeeded for a hold that can no longer be
// finalized. The payment is kept for reconciliation.
type lateFailure struct {
	code string
	err  error
}

func (e *lateFailure) Error() string { return e.code + ": " + e.err.Error() }
func (e *lateFailure) Unwrap() error { return e.err }

// FailureCode returns the code of a charge that succeeded but could not be
// finalized, or "" if err is not such a failure.
func FailureCode(err error) string {
	var late *lateFailure
	if errors.As(err, &late) {
		return late.code
	}
	return ""
}

// ProcessPayment charges the hold's price once and, on success, finalizes
// the checkout in a single transaction: enrollments for selected attendees,
// waitlist entries for waitlist attendees, the hold CONSUMED, an invoice and
// the payment record.
//
// A declined card is not an error: the attempt is recorded, the hold stays
// ACTIVE and the result carries the gateway's code and message.
//
// Returns:
//   - domain.ErrHoldNotFound, domain.ErrHoldNotActive or domain.ErrHoldExpired
//     before any charge.
//   - a discount error if the code is not redeemable; nothing is charged.
//   - domain.ErrHoldExpired if the hold lapsed while the card was charged.
//
// Once the card is charged every failure carries a code for FailureCode and
// the charge is recorded as a failed payment for reconciliation.
func (s *Service) ProcessPayment(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	const op = "service.checkout.ProcessPayment"

	var (
		hold     *domain.CheckoutHold
		quote    *pricing.Quote
		attempts int
	)

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		h, err := tx.Holds().Get(ctx, in.HoldUUID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrHoldNotFound
			}
			return err
		}
		if in.CompanyID != 0 && h.CompanyID != in.CompanyID {
			return domain.ErrHoldNotFound
		}
		if err := s.payable(h); err != nil {
			return err
		}

		session, err := tx.Sessions().Get(ctx, h.SessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrSessionNotFound
			}
			return err
		}

		q, err := s.pricing.Quote(ctx, tx, pricing.QuoteInput{
			Session:      session,
			Attendees:    h.Attendees,
			DiscountCode: in.DiscountCode,
			Admin:        in.AdminDiscount,
			Now:          s.clock.Now(),
		})
		if err != nil {
			return err
		}

		previous, err := tx.Payments().ListByHold(ctx, h.UUID)
		if err != nil {
			return err
		}

		hold, quote, attempts = h, q, len(previous)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	charge := payment.ChargeResult{Success: true}
	if quote.FinalCents > 0 {
		charge, err = s.charge(ctx, payment.ChargeRequest{
			AmountCents:    quote.FinalCents,
			Currency:       s.cfg.Currency,
			CardToken:      in.CardToken,
			Descriptor:     in.Descriptor,
			IdempotencyKey: fmt.Sprintf("%s-%d", hold.UUID, attempts+1),
		})
		if err != nil {
			s.logger.Warn("payment gateway error",
				slog.String("hold_uuid", hold.UUID.String()),
				slog.Any("error", err),
			)
			charge = payment.ChargeResult{ErrorCode: CodeGatewayError, ErrorMessage: err.Error()}
		}
	}

	if !charge.Success {
		p, err := s.recordFailure(ctx, hold, in.ActingUserID, quote.FinalCents, charge)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		events.Emit(ctx, s.publisher, s.logger, events.Event{
			Type:       events.PaymentFailed,
			SessionID:  hold.SessionID,
			HoldUUID:   hold.UUID.String(),
			OccurredAt: s.clock.Now(),
		})
		return &PaymentResult{
			Success:      false,
			ErrorCode:    charge.ErrorCode,
			ErrorMessage: charge.ErrorMessage,
			Payment:      p,
		}, nil
	}

	res, err := s.finalize(ctx, in, hold.UUID, quote.FinalCents, charge)
	if err != nil {
		var late *lateFailure
		if !errors.As(err, &late) {
			late = &lateFailure{code: CodeFinalizeFailedAfterCharge, err: err}
		}

		charge.Success = false
		charge.ErrorCode = late.code
		charge.ErrorMessage = late.err.Error()
		// the charge must be recorded even if the caller has gone away
		if _, rerr := s.recordFailure(context.WithoutCancel(ctx), hold, in.ActingUserID, quote.FinalCents, charge); rerr != nil {
			s.logger.Error("record charged payment failed",
				slog.String("hold_uuid", hold.UUID.String()),
				slog.String("transaction_id", charge.TransactionID),
				slog.Any("error", rerr),
			)
		}
		s.logger.Warn("charged hold could not be finalized",
			slog.String("hold_uuid", hold.UUID.String()),
			slog.String("code", late.code),
			slog.String("transaction_id", charge.TransactionID),
			slog.Any("error", late.err),
		)
		return nil, fmt.Errorf("%s:%w", op, late)
	}

	return res, nil
}

func (s *Service) finalize(
	ctx context.Context,
	in PaymentInput,
	holdUUID uuid.UUID,
	charged int64,
	charge payment.ChargeResult,
) (*PaymentResult, error) {
	var res *PaymentResult

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		res = &PaymentResult{Success: true}

		h, err := tx.Holds().Get(ctx, holdUUID)
		if err != nil {
			return err
		}

		session, _, err := s.ledger.Reserve(ctx, tx, h.SessionID)
		if err != nil {
			return err
		}

		h, err = tx.Holds().GetForUpdate(ctx, holdUUID)
		if err != nil {
			return err
		}
		if err := s.payable(h); err != nil {
			code := CodeHoldNotActiveAfterCharge
			if errors.Is(err, domain.ErrHoldExpired) {
				code = CodeHoldExpiredAfterCharge
			}
			return &lateFailure{code: code, err: err}
		}

		now := s.clock.Now()

		q, err := s.pricing.Quote(ctx, tx, pricing.QuoteInput{
			Session:      session,
			Attendees:    h.Attendees,
			DiscountCode: in.DiscountCode,
			Admin:        in.AdminDiscount,
			Now:          now,
			LockCode:     true,
		})
		if err != nil {
			return &lateFailure{code: CodeDiscountInvalidAfterCharge, err: err}
		}
		if q.FinalCents != charged {
			return &lateFailure{
				code: CodeAmountMismatchAfterCharge,
				err:  fmt.Errorf("charged %d, quoted %d: %w", charged, q.FinalCents, domain.ErrConcurrentModification),
			}
		}

		for _, a := range h.Attendees {
			switch {
			case a.IsSelected:
				e := domain.Enrollment{
					SessionID:       h.SessionID,
					HoldUUID:        &h.UUID,
					FirstName:       a.FirstName,
					LastName:        a.LastName,
					Email:           a.Email,
					SpecialRequests: a.SpecialRequests,
					EnrolledAt:      now,
				}
				if err := tx.Enrollments().Create(ctx, &e); err != nil {
					return err
				}
				res.Enrollments = append(res.Enrollments, e)
			case a.IsWaitlist:
				w := domain.WaitlistEntry{
					SessionID:       h.SessionID,
					FirstName:       a.FirstName,
					LastName:        a.LastName,
					Email:           a.Email,
					SpecialRequests: a.SpecialRequests,
					SeatPriceCents:  session.SeatPriceCents,
					WaitlistedAt:    now,
				}
				if err := tx.Waitlist().Append(ctx, &w); err != nil {
					return err
				}
				res.Waitlisted = append(res.Waitlisted, w)
			}
		}

		confirmation, err := s.confirmation(ctx, tx)
		if err != nil {
			return err
		}

		ok, err := tx.Holds().Finalize(ctx, h.UUID, confirmation, q.FinalCents, now)
		if err != nil {
			return err
		}
		if !ok {
			return &lateFailure{code: CodeHoldNotActiveAfterCharge, err: domain.ErrHoldNotActive}
		}
		res.ConfirmationNumber = confirmation

		inv := &domain.Invoice{
			InvoiceNumber: invoiceNumber(h),
			CompanyID:     h.CompanyID,
			SessionID:     h.SessionID,
			HoldUUID:      h.UUID,
			InvoiceDate:   now,
			Status:        domain.InvoicePosted,
			TotalCents:    q.FinalCents,
			LineItems:     q.LineItems,
		}
		switch _, err := tx.Invoices().GetByHold(ctx, h.UUID); {
		case err == nil:
			return &lateFailure{code: CodeHoldNotActiveAfterCharge, err: domain.ErrHoldNotActive}
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		if err := tx.Invoices().Create(ctx, inv); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return &lateFailure{code: CodeInvoiceNumberTaken, err: err}
			}
			return err
		}
		res.Invoice = inv

		p := &domain.Payment{
			HoldUUID:      h.UUID,
			InvoiceID:     &inv.ID,
			TransactionID: charge.TransactionID,
			AmountCents:   charged,
			CardType:      charge.CardType,
			CardLast4:     charge.CardLast4,
			CreatedBy:     in.ActingUserID,
			CreatedAt:     now,
		}
		if err := tx.Payments().Create(ctx, p); err != nil {
			return err
		}
		res.Payment = p

		if err := s.ledger.CheckWaitlist(ctx, tx, h.SessionID); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			events.Emit(ctx, s.publisher, s.logger, events.Event{
				Type:       events.CheckoutCompleted,
				SessionID:  h.SessionID,
				HoldUUID:   h.UUID.String(),
				InvoiceID:  inv.ID,
				OccurredAt: s.clock.Now(),
			})
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

type RefundInput struct {
	InvoiceID    int64
	Reason       string
	ActingUserID int64
}

// RefundInvoice voids an invoice with a credit memo that mirrors its line
// items and releases the seats enrolled through its hold. Released seats
// are offered to the waitlist after commit.
//
// Returns:
//   - domain.ErrInvoiceNotFound if the invoice does not exist.
//   - domain.ErrInvoiceAlreadyCredited if it was refunded before.
func (s *Service) RefundInvoice(ctx context.Context, in RefundInput) (*domain.CreditMemo, error) {
	const op = "service.checkout.RefundInvoice"

	var memo *domain.CreditMemo

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		inv, err := tx.Invoices().Get(ctx, in.InvoiceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrInvoiceNotFound
			}
			return err
		}

		if _, _, err := s.ledger.Reserve(ctx, tx, inv.SessionID); err != nil {
			return err
		}

		inv, err = tx.Invoices().GetForUpdate(ctx, in.InvoiceID)
		if err != nil {
			return err
		}
		if inv.Status == domain.InvoiceVoid {
			return domain.ErrInvoiceAlreadyCredited
		}
		if _, err := tx.Invoices().CreditMemoByInvoice(ctx, inv.ID); err == nil {
			return domain.ErrInvoiceAlreadyCredited
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		now := s.clock.Now()
		memo = &domain.CreditMemo{
			InvoiceID:  inv.ID,
			MemoDate:   now,
			Status:     domain.InvoicePosted,
			Reason:     strings.TrimSpace(in.Reason),
			CreatedBy:  in.ActingUserID,
			TotalCents: inv.TotalCents,
			LineItems:  inv.LineItems,
		}
		if err := tx.Invoices().CreateCreditMemo(ctx, memo); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.ErrInvoiceAlreadyCredited
			}
			return err
		}

		if err := tx.Invoices().SetStatus(ctx, inv.ID, domain.InvoiceVoid); err != nil {
			return err
		}

		released, err := tx.Enrollments().DeleteByHold(ctx, inv.HoldUUID)
		if err != nil {
			return err
		}

		sessionID := inv.SessionID
		after(func(ctx context.Context) {
			events.Emit(ctx, s.publisher, s.logger, events.Event{
				Type:       events.InvoiceRefunded,
				SessionID:  sessionID,
				HoldUUID:   inv.HoldUUID.String(),
				InvoiceID:  inv.ID,
				OccurredAt: s.clock.Now(),
			})
		})
		if released > 0 && s.promoter != nil {
			after(func(ctx context.Context) {
				if _, err := s.promoter.Promote(ctx, sessionID); err != nil {
					s.logger.Error("waitlist promotion failed",
						slog.Int64("session_id", sessionID),
						slog.Any("error", err),
					)
				}
			})
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return memo, nil
}

// payable reports why a hold cannot be paid for, if it cannot.
func (s *Service) payable(h *domain.CheckoutHold) error {
	switch h.Status {
	case domain.HoldActive:
		if !h.ExpiresAt.After(s.clock.Now()) {
			return domain.ErrHoldExpired
		}
		return nil
	case domain.HoldExpired:
		return domain.ErrHoldExpired
	default:
		return domain.ErrHoldNotActive
	}
}

func (s *Service) charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	return s.gateway.Charge(ctx, req)
}

func (s *Service) recordFailure(
	ctx context.Context,
	h *domain.CheckoutHold,
	actingUserID int64,
	amount int64,
	charge payment.ChargeResult,
) (*domain.Payment, error) {
	code, message := charge.ErrorCode, charge.ErrorMessage
	if code == "" {
		code = "DECLINED"
	}

	p := &domain.Payment{
		HoldUUID:      h.UUID,
		TransactionID: charge.TransactionID,
		AmountCents:   amount,
		CardType:      charge.CardType,
		CardLast4:     charge.CardLast4,
		ErrorCode:     &code,
		ErrorMessage:  &message,
		CreatedBy:     actingUserID,
		CreatedAt:     s.clock.Now(),
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		return tx.Payments().Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) confirmation(ctx context.Context, tx repository.Tx) (string, error) {
	for range confirmationAttempts {
		cn := s.newConfirmation()
		taken, err := tx.Holds().ConfirmationExists(ctx, cn)
		if err != nil {
			return "", err
		}
		if !taken {
			return cn, nil
		}
	}

	return "", fmt.Errorf("no free confirmation number after %d attempts: %w", confirmationAttempts, repository.ErrConflict)
}
