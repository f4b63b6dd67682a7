package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
)

func run(t *testing.T, store repository.Store, fn func(ctx context.Context, tx repository.Tx) error) {
	t.Helper()
	if err := store.RunTx(context.Background(), fn); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func InsertSession(t *testing.T, store repository.Store, maxEnrollments int, seatPriceCents int64) int64 {
	t.Helper()
	s := &domain.EventSession{
		Name:           "Intro to Go",
		MaxEnrollments: maxEnrollments,
		SeatPriceCents: seatPriceCents,
		StartDate:      time.Date(2030, 1, 15, 9, 0, 0, 0, time.UTC),
		Timezone:       "UTC",
	}
	run(t, store, func(ctx context.Context, tx repository.Tx) error {
		return tx.Sessions().Create(ctx, s)
	})
	return s.ID
}

func InsertEnrollment(t *testing.T, store repository.Store, sessionID int64, email string) int64 {
	t.Helper()
	e := &domain.Enrollment{
		SessionID:  sessionID,
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      email,
		EnrolledAt: time.Date(2029, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	run(t, store, func(ctx context.Context, tx repository.Tx) error {
		return tx.Enrollments().Create(ctx, e)
	})
	return e.ID
}

func InsertWaitlistEntry(t *testing.T, store repository.Store, sessionID int64, email string) *domain.WaitlistEntry {
	t.Helper()
	e := &domain.WaitlistEntry{
		SessionID:    sessionID,
		FirstName:    "Grace",
		LastName:     "Hopper",
		Email:        email,
		WaitlistedAt: time.Date(2029, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	run(t, store, func(ctx context.Context, tx repository.Tx) error {
		return tx.Waitlist().Append(ctx, e)
	})
	return e
}

func InsertDiscount(t *testing.T, store repository.Store, d domain.Discount) *domain.Discount {
	t.Helper()
	run(t, store, func(ctx context.Context, tx repository.Tx) error {
		return tx.Discounts().Create(ctx, &d)
	})
	return &d
}

// Attendee builds a selected attendee with an email derived from name.
func Attendee(name string) domain.Attendee {
	first, last, _ := strings.Cut(name, " ")
	return domain.Attendee{
		FirstName:  first,
		LastName:   last,
		Email:      fmt.Sprintf("%s@example.com", strings.ToLower(strings.ReplaceAll(name, " ", "."))),
		IsSelected: true,
	}
}

// WaitlistAttendee builds an attendee flagged for the waitlist only.
func WaitlistAttendee(name string) domain.Attendee {
	a := Attendee(name)
	a.IsSelected = false
	a.IsWaitlist = true
	return a
}

func Counts(t *testing.T, store repository.Store, sessionID int64) domain.SeatCounts {
	t.Helper()
	var c domain.SeatCounts
	run(t, store, func(ctx context.Context, tx repository.Tx) error {
		var err error
		c, err = tx.Sessions().Counts(ctx, sessionID)
		return err
	})
	c.Available = c.Max - c.Enrolled - c.Held
	return c
}

func Waitlist(t *testing.T, store repository.Store, sessionID int64) []domain.WaitlistEntry {
	t.Helper()
	var out []domain.WaitlistEntry
	run(t, store, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Waitlist().List(ctx, sessionID)
		return err
	})
	return out
}

func Enrollments(t *testing.T, store repository.Store, sessionID int64) []domain.Enrollment {
	t.Helper()
	var out []domain.Enrollment
	run(t, store, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Enrollments().ListBySession(ctx, sessionID)
		return err
	})
	return out
}
