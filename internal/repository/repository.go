package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatflow/internal/domain"
)

// Store opens transactions. Every repository obtained from a Tx runs inside
// that transaction; RunTx commits when fn returns nil and rolls back otherwise.
type Store interface {
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Sessions() SessionRepository
	Holds() HoldRepository
	Enrollments() EnrollmentRepository
	Waitlist() WaitlistRepository
	Discounts() DiscountRepository
	Invoices() InvoiceRepository
	Payments() PaymentRepository
}

type SessionRepository interface {
	Create(ctx context.Context, s *domain.EventSession) error
	Get(ctx context.Context, id int64) (*domain.EventSession, error)
	// GetForUpdate locks the session row until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.EventSession, error)
	// Counts fills Max, Enrolled, Held and Waitlisted. Held sums the seat
	// count of every ACTIVE hold regardless of its expiry.
	Counts(ctx context.Context, id int64) (domain.SeatCounts, error)
}

type HoldRepository interface {
	Create(ctx context.Context, h *domain.CheckoutHold) error
	Get(ctx context.Context, id uuid.UUID) (*domain.CheckoutHold, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.CheckoutHold, error)
	UpdateAttendees(ctx context.Context, id uuid.UUID, attendees []domain.Attendee) error
	UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	// Transition moves the hold from one status to another and reports
	// whether a row changed.
	Transition(ctx context.Context, id uuid.UUID, from, to domain.HoldStatus) (bool, error)
	// Finalize marks an ACTIVE hold CONSUMED.
	Finalize(ctx context.Context, id uuid.UUID, confirmation string, amountCents int64, at time.Time) (bool, error)
	ListStale(ctx context.Context, now time.Time, limit int) ([]domain.CheckoutHold, error)
	ConfirmationExists(ctx context.Context, confirmation string) (bool, error)
}

type EnrollmentRepository interface {
	Create(ctx context.Context, e *domain.Enrollment) error
	Get(ctx context.Context, id int64) (*domain.Enrollment, error)
	Delete(ctx context.Context, id int64) error
	DeleteByHold(ctx context.Context, holdUUID uuid.UUID) (int, error)
	ListBySession(ctx context.Context, sessionID int64) ([]domain.Enrollment, error)
	EmailExists(ctx context.Context, sessionID int64, email string) (bool, error)
}

type WaitlistRepository interface {
	// Append stores the entry at the tail of the session's queue and sets
	// its ID and Position.
	Append(ctx context.Context, e *domain.WaitlistEntry) error
	Get(ctx context.Context, id int64) (*domain.WaitlistEntry, error)
	Head(ctx context.Context, sessionID int64) (*domain.WaitlistEntry, error)
	Delete(ctx context.Context, id int64) error
	// Shift adds delta to every position in [from, to] of the session.
	Shift(ctx context.Context, sessionID int64, from, to, delta int) error
	SetPosition(ctx context.Context, id int64, position int) error
	Count(ctx context.Context, sessionID int64) (int, error)
	List(ctx context.Context, sessionID int64) ([]domain.WaitlistEntry, error)
	Stats(ctx context.Context, sessionID int64) (PositionStats, error)
	EmailExists(ctx context.Context, sessionID int64, email string) (bool, error)
}

// PositionStats summarizes a session's waitlist positions.
type PositionStats struct {
	Count    int
	Distinct int
	Min      int
	Max      int
}

// Dense reports whether the positions are exactly 1..Count.
func (s PositionStats) Dense() bool {
	if s.Count == 0 {
		return true
	}
	return s.Distinct == s.Count && s.Min == 1 && s.Max == s.Count
}

type DiscountRepository interface {
	Create(ctx context.Context, d *domain.Discount) error
	GetByCode(ctx context.Context, code string) (*domain.Discount, error)
	GetByCodeForUpdate(ctx context.Context, code string) (*domain.Discount, error)
	// CountRedemptions counts posted invoices that applied the code.
	CountRedemptions(ctx context.Context, code string) (int, error)
}

type InvoiceRepository interface {
	// Create stores the invoice and its line items. A second invoice for
	// the same hold returns ErrConflict.
	Create(ctx context.Context, inv *domain.Invoice) error
	Get(ctx context.Context, id int64) (*domain.Invoice, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Invoice, error)
	GetByHold(ctx context.Context, holdUUID uuid.UUID) (*domain.Invoice, error)
	SetStatus(ctx context.Context, id int64, status domain.InvoiceStatus) error
	CreateCreditMemo(ctx context.Context, memo *domain.CreditMemo) error
	CreditMemoByInvoice(ctx context.Context, invoiceID int64) (*domain.CreditMemo, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	ListByHold(ctx context.Context, holdUUID uuid.UUID) ([]domain.Payment, error)
}
