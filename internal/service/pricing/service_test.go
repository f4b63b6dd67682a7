package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seatflow/internal/clock"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/repository"
	"github.com/kirinyoku/seatflow/internal/repository/memory"
	"github.com/kirinyoku/seatflow/internal/testutil"
	"github.com/kirinyoku/seatflow/internal/uow"
)

func ptr[T any](v T) *T { return &v }

func sumLines(items []domain.InvoiceLineItem) int64 {
	var total int64
	for _, li := range items {
		total += li.LineTotalCents
	}
	return total
}

func TestAmount(t *testing.T) {
	cases := []struct {
		name    string
		typ     domain.DiscountType
		value   int64
		base    int64
		want    int64
		wantErr error
	}{
		{name: "ten percent", typ: domain.DiscountPercentage, value: 1000, base: 10000, want: 1000},
		{name: "rounds half up", typ: domain.DiscountPercentage, value: 1250, base: 1001, want: 125},
		{name: "rounds down below half", typ: domain.DiscountPercentage, value: 1000, base: 1004, want: 100},
		{name: "full", typ: domain.DiscountPercentage, value: 10000, base: 4321, want: 4321},
		{name: "over one hundred percent", typ: domain.DiscountPercentage, value: 10001, base: 100, wantErr: domain.ErrInvalidDiscountValue},
		{name: "fixed", typ: domain.DiscountFixedAmount, value: 500, base: 10000, want: 500},
		{name: "fixed capped at base", typ: domain.DiscountFixedAmount, value: 50000, base: 10000, want: 10000},
		{name: "negative", typ: domain.DiscountFixedAmount, value: -1, base: 100, wantErr: domain.ErrInvalidDiscountValue},
		{name: "unknown type", typ: "bogus", value: 1, base: 100, wantErr: domain.ErrInvalidDiscountValue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Amount(tc.typ, tc.value, tc.base)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCalculate(t *testing.T) {
	session := &domain.EventSession{ID: 1, SeatPriceCents: 5000}
	attendees := []domain.Attendee{
		testutil.Attendee("Ann A"),
		testutil.Attendee("Bob B"),
		testutil.WaitlistAttendee("Cat C"),
	}

	t.Run("code and admin discount", func(t *testing.T) {
		q, err := Calculate(session, attendees,
			&domain.Discount{Code: "10PERCENT", Type: domain.DiscountPercentage, Value: 1000},
			&domain.AdminDiscount{Type: domain.DiscountFixedAmount, Value: 500, Reason: "loyal customer"},
		)

		require.NoError(t, err)
		assert.Equal(t, 2, q.SeatCount)
		assert.Equal(t, int64(10000), q.BaseCents)
		assert.Equal(t, int64(1000), q.CodeDiscountCents)
		assert.Equal(t, int64(500), q.AdminDiscountCents)
		assert.Equal(t, int64(8500), q.FinalCents)
		assert.Equal(t, "10PERCENT", q.DiscountCode)

		require.Len(t, q.LineItems, 4)
		assert.Equal(t, "Seat for Ann A", q.LineItems[0].Description)
		require.NotNil(t, q.LineItems[2].DiscountCode)
		assert.Equal(t, "10PERCENT", *q.LineItems[2].DiscountCode)
		assert.Equal(t, int64(-500), q.LineItems[3].LineTotalCents)
		assert.Equal(t, q.FinalCents, sumLines(q.LineItems))
	})

	t.Run("admin row capped at remainder", func(t *testing.T) {
		q, err := Calculate(session, attendees,
			&domain.Discount{Code: "BIG", Type: domain.DiscountFixedAmount, Value: 9000},
			&domain.AdminDiscount{Type: domain.DiscountPercentage, Value: 5000, Reason: "goodwill"},
		)

		require.NoError(t, err)
		assert.Equal(t, int64(9000), q.CodeDiscountCents)
		assert.Equal(t, int64(1000), q.AdminDiscountCents)
		assert.Zero(t, q.FinalCents)
		assert.Equal(t, q.FinalCents, sumLines(q.LineItems))
	})

	t.Run("admin discount needs a reason", func(t *testing.T) {
		_, err := Calculate(session, attendees, nil,
			&domain.AdminDiscount{Type: domain.DiscountFixedAmount, Value: 500, Reason: "  "},
		)
		require.ErrorIs(t, err, domain.ErrAdminReasonRequired)
	})

	t.Run("no discounts", func(t *testing.T) {
		q, err := Calculate(session, attendees, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), q.FinalCents)
		assert.Len(t, q.LineItems, 2)
	})
}

func TestPreview_CodeValidation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	store := memory.New()
	svc := New(uow.New(store, uow.Config{}, nil), clock.NewManual(now))

	sessionID := testutil.InsertSession(t, store, 10, 5000)
	otherSession := testutil.InsertSession(t, store, 10, 5000)

	testutil.InsertDiscount(t, store, domain.Discount{Code: "10PERCENT", Type: domain.DiscountPercentage, Value: 1000, IsActive: true})
	testutil.InsertDiscount(t, store, domain.Discount{Code: "OFF", Type: domain.DiscountFixedAmount, Value: 100, IsActive: false})
	testutil.InsertDiscount(t, store, domain.Discount{Code: "SOON", Type: domain.DiscountFixedAmount, Value: 100, IsActive: true, StartDate: ptr(now.Add(time.Hour))})
	testutil.InsertDiscount(t, store, domain.Discount{Code: "OLD", Type: domain.DiscountFixedAmount, Value: 100, IsActive: true, EndDate: ptr(now.Add(-time.Hour))})
	testutil.InsertDiscount(t, store, domain.Discount{Code: "ELSEWHERE", Type: domain.DiscountFixedAmount, Value: 100, IsActive: true, SessionIDs: []int64{otherSession}})
	testutil.InsertDiscount(t, store, domain.Discount{Code: "ONCE", Type: domain.DiscountFixedAmount, Value: 100, IsActive: true, MaximumUses: ptr(1)})
	testutil.InsertDiscount(t, store, domain.Discount{Code: "BIGSPENDER", Type: domain.DiscountFixedAmount, Value: 100, IsActive: true, MinimumPurchaseCents: ptr(int64(20000))})

	code := "ONCE"
	require.NoError(t, store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Invoices().Create(ctx, &domain.Invoice{
			InvoiceNumber: "INV-1",
			SessionID:     sessionID,
			HoldUUID:      uuid.New(),
			Status:        domain.InvoicePosted,
			LineItems:     []domain.InvoiceLineItem{{Description: "Discount code ONCE", Quantity: 1, DiscountCode: &code}},
		})
	}))

	attendees := []domain.Attendee{testutil.Attendee("Ann A"), testutil.Attendee("Bob B")}

	cases := []struct {
		code    string
		wantErr error
	}{
		{code: "NOPE", wantErr: domain.ErrInvalidDiscountCode},
		{code: "OFF", wantErr: domain.ErrDiscountInactive},
		{code: "SOON", wantErr: domain.ErrDiscountNotYetActive},
		{code: "OLD", wantErr: domain.ErrDiscountExpired},
		{code: "ELSEWHERE", wantErr: domain.ErrDiscountNotValidForSession},
		{code: "ONCE", wantErr: domain.ErrDiscountMaxUsage},
		{code: "BIGSPENDER", wantErr: domain.ErrMinimumPurchaseNotMet},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			_, err := svc.Preview(ctx, sessionID, attendees, tc.code, nil)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	t.Run("valid code is case insensitive", func(t *testing.T) {
		q, err := svc.Preview(ctx, sessionID, attendees, "10percent", &domain.AdminDiscount{
			Type: domain.DiscountFixedAmount, Value: 500, Reason: "loyal customer",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(8500), q.FinalCents)
		assert.Equal(t, "10PERCENT", q.DiscountCode)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Preview(ctx, 999, attendees, "", nil)
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}
