package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type HoldStatus string

const (
	HoldActive    HoldStatus = "ACTIVE"
	HoldConsumed  HoldStatus = "CONSUMED"
	HoldExpired   HoldStatus = "EXPIRED"
	HoldCancelled HoldStatus = "CANCELLED"
)

// EventSession is a scheduled occurrence with a fixed seat capacity.
type EventSession struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	MaxEnrollments int       `json:"max_enrollments"`
	SeatPriceCents int64     `json:"seat_price_cents"`
	StartDate      time.Time `json:"start_date"`
	Timezone       string    `json:"timezone"`
}

type Attendee struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	SpecialRequests string `json:"special_requests,omitempty"`
	IsSelected      bool   `json:"is_selected"`
	IsWaitlist      bool   `json:"is_waitlist"`
}

// NormalizedEmail is the form used for duplicate checks.
func (a Attendee) NormalizedEmail() string {
	return NormalizeEmail(a.Email)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckoutHold is a time-boxed claim on seats for one checkout.
type CheckoutHold struct {
	UUID               uuid.UUID  `json:"uuid"`
	SessionID          int64      `json:"session_id"`
	CompanyID          int64      `json:"company_id"`
	CreatedBy          int64      `json:"created_by"`
	Attendees          []Attendee `json:"attendees"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpiresAt          time.Time  `json:"expires_at"`
	Status             HoldStatus `json:"status"`
	ConfirmationNumber string     `json:"confirmation_number,omitempty"`
	AmountCents        int64      `json:"amount_cents"`
	FinalizedAt        *time.Time `json:"finalized_at,omitempty"`
}

// SeatCount is the number of attendees that occupy a seat.
func (h *CheckoutHold) SeatCount() int {
	return CountSelected(h.Attendees)
}

// IsLive reports whether the hold still blocks seats and may be paid for.
func (h *CheckoutHold) IsLive(now time.Time) bool {
	return h.Status == HoldActive && now.Before(h.ExpiresAt)
}

func CountSelected(attendees []Attendee) int {
	n := 0
	for _, a := range attendees {
		if a.IsSelected {
			n++
		}
	}
	return n
}

type Enrollment struct {
	ID              int64      `json:"id"`
	SessionID       int64      `json:"session_id"`
	HoldUUID        *uuid.UUID `json:"hold_uuid,omitempty"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	EmployeeRef     *string    `json:"employee_ref,omitempty"`
	SpecialRequests string     `json:"special_requests,omitempty"`
	EnrolledAt      time.Time  `json:"enrolled_at"`
}

type WaitlistEntry struct {
	ID              int64     `json:"id"`
	SessionID       int64     `json:"session_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	EmployeeRef     *string   `json:"employee_ref,omitempty"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	Position        int       `json:"position"`
	SeatPriceCents  int64     `json:"seat_price_cents"`
	WaitlistedAt    time.Time `json:"waitlisted_at"`
}

// SeatCounts is a point-in-time view of a session's seat ledger.
type SeatCounts struct {
	SessionID  int64 `json:"session_id"`
	Max        int   `json:"max"`
	Enrolled   int   `json:"enrolled"`
	Held       int   `json:"held"`
	Waitlisted int   `json:"waitlisted"`
	Available  int   `json:"available"`
}
