package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
	"github.com/kirinyoku/seatflow/internal/repository/memory"
	"github.com/kirinyoku/seatflow/internal/testutil"
	"github.com/kirinyoku/seatflow/internal/uow"
)

func newService(store repository.Store) *Service {
	return New(uow.New(store, uow.Config{}, nil), nil)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store)

	sessionID := testutil.InsertSession(t, store, 10, 5000)
	testutil.InsertEnrollment(t, store, sessionID, "a@example.com")
	testutil.InsertWaitlistEntry(t, store, sessionID, "w@example.com")

	now := time.Now()
	holds := []domain.CheckoutHold{
		{UUID: uuid.New(), SessionID: sessionID, Status: domain.HoldActive, ExpiresAt: now.Add(time.Hour),
			Attendees: []domain.Attendee{testutil.Attendee("B B"), testutil.Attendee("C C")}},
		// lapsed but not yet swept still blocks its seat
		{UUID: uuid.New(), SessionID: sessionID, Status: domain.HoldActive, ExpiresAt: now.Add(-time.Hour),
			Attendees: []domain.Attendee{testutil.Attendee("D D")}},
		{UUID: uuid.New(), SessionID: sessionID, Status: domain.HoldCancelled, ExpiresAt: now.Add(time.Hour),
			Attendees: []domain.Attendee{testutil.Attendee("E E")}},
		{UUID: uuid.New(), SessionID: sessionID, Status: domain.HoldActive, ExpiresAt: now.Add(time.Hour),
			Attendees: []domain.Attendee{testutil.WaitlistAttendee("F F")}},
	}
	require.NoError(t, store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		for i := range holds {
			if err := tx.Holds().Create(ctx, &holds[i]); err != nil {
				return err
			}
		}
		return nil
	}))

	counts, err := svc.Snapshot(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, domain.SeatCounts{
		SessionID:  sessionID,
		Max:        10,
		Enrolled:   1,
		Held:       3,
		Waitlisted: 1,
		Available:  6,
	}, counts)

	available, err := svc.AvailableSeats(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 6, available)
}

func TestSnapshot_UnknownSession(t *testing.T) {
	svc := newService(memory.New())

	_, err := svc.Snapshot(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestReserve_NegativeAvailability(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store)

	sessionID := testutil.InsertSession(t, store, 1, 5000)
	testutil.InsertEnrollment(t, store, sessionID, "a@example.com")
	testutil.InsertEnrollment(t, store, sessionID, "b@example.com")

	err := store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, _, err := svc.Reserve(ctx, tx, sessionID)
		return err
	})

	require.ErrorIs(t, err, domain.ErrInvariantViolation)
	var inv *domain.InvariantError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, sessionID, inv.SessionID)
}

func TestReserve_ReturnsSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store)

	sessionID := testutil.InsertSession(t, store, 3, 2500)

	err := store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		session, counts, err := svc.Reserve(ctx, tx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, int64(2500), session.SeatPriceCents)
		assert.Equal(t, 3, counts.Available)
		return nil
	})
	require.NoError(t, err)
}

func TestCheckWaitlist(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store)

	sessionID := testutil.InsertSession(t, store, 1, 5000)
	testutil.InsertWaitlistEntry(t, store, sessionID, "a@example.com")
	second := testutil.InsertWaitlistEntry(t, store, sessionID, "b@example.com")

	require.NoError(t, store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return svc.CheckWaitlist(ctx, tx, sessionID)
	}))

	err := store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Waitlist().SetPosition(ctx, second.ID, 5); err != nil {
			return err
		}
		return svc.CheckWaitlist(ctx, tx, sessionID)
	})
	require.ErrorIs(t, err, domain.ErrInvariantViolation)

	// the failed transaction left nothing behind
	entries := testutil.Waitlist(t, store, sessionID)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[1].Position)
}
