package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound        = errors.New("event session not found")
	ErrInsufficientSeats      = errors.New("insufficient seats")
	ErrHoldNotFound           = errors.New("hold not found")
	ErrHoldNotActive          = errors.New("hold is not active")
	ErrHoldExpired            = errors.New("hold is expired")
	ErrNoSeatAvailable        = errors.New("no seat available")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInvariantViolation     = errors.New("invariant violation")

	ErrNoAttendees               = errors.New("no attendees selected")
	ErrDuplicateAttendee         = errors.New("duplicate attendee email")
	ErrAttendeeAlreadyEnrolled   = errors.New("attendee already enrolled")
	ErrAttendeeAlreadyWaitlisted = errors.New("attendee already waitlisted")

	ErrEnrollmentNotFound    = errors.New("enrollment not found")
	ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")

	ErrInvalidDiscountCode        = errors.New("invalid discount code")
	ErrDiscountInactive           = errors.New("discount code is inactive")
	ErrDiscountNotYetActive       = errors.New("discount code is not yet active")
	ErrDiscountExpired            = errors.New("discount code has expired")
	ErrDiscountNotValidForSession = errors.New("discount code is not valid for this session")
	ErrDiscountMaxUsage           = errors.New("discount code has reached its maximum usage")
	ErrMinimumPurchaseNotMet      = errors.New("minimum purchase amount not met")
	ErrAdminReasonRequired        = errors.New("admin discount requires a reason")
	ErrInvalidDiscountValue       = errors.New("invalid discount value")

	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrInvoiceAlreadyCredited = errors.New("invoice already credited")
	ErrDiscountExists         = errors.New("discount code already exists")
	ErrInvalidSession         = errors.New("invalid session")
)

// InvariantError describes a broken ledger invariant. It matches
// ErrInvariantViolation with errors.Is.
type InvariantError struct {
	SessionID int64
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation on session %d: %s", e.SessionID, e.Detail)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}

// InsufficientSeatsError carries the shortfall. It matches ErrInsufficientSeats.
type InsufficientSeatsError struct {
	Requested int
	Available int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("insufficient seats: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientSeatsError) Is(target error) bool {
	return target == ErrInsufficientSeats
}
