package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seatflow/internal/clock"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/payment"
	"github.com/kirinyoku/seatflow/internal/repository"
	"github.com/kirinyoku/seatflow/internal/repository/memory"
	"github.com/kirinyoku/seatflow/internal/service/hold"
	"github.com/kirinyoku/seatflow/internal/service/ledger"
	"github.com/kirinyoku/seatflow/internal/service/pricing"
	"github.com/kirinyoku/seatflow/internal/service/waitlist"
	"github.com/kirinyoku/seatflow/internal/testutil"
	"github.com/kirinyoku/seatflow/internal/uow"
)

var start = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

// gatewayFunc lets a test run code while the card is being charged.
type gatewayFunc func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error)

func (f gatewayFunc) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	return f(ctx, req)
}

type fixture struct {
	store    *memory.Store
	clock    *clock.Manual
	fake     *payment.Fake
	holds    *hold.Service
	waitlist *waitlist.Service
	svc      *Service
}

func newFixture(t *testing.T, gateway payment.Gateway) *fixture {
	t.Helper()
	store := memory.New()
	clk := clock.NewManual(start)
	u := uow.New(store, uow.Config{Backoff: time.Millisecond}, nil)
	l := ledger.New(u, nil)
	wl := waitlist.New(u, l, nil, clk, nil)
	fake := payment.NewFake()
	if gateway == nil {
		gateway = fake
	}
	return &fixture{
		store:    store,
		clock:    clk,
		fake:     fake,
		holds:    hold.New(u, l, wl, nil, nil, clk, nil, hold.Config{TTL: 15 * time.Minute}),
		waitlist: wl,
		svc:      New(u, l, pricing.New(u, clk), gateway, wl, nil, clk, nil, Config{PaymentTimeout: time.Second}),
	}
}

func (f *fixture) hold(t *testing.T, sessionID int64, attendees ...domain.Attendee) *domain.CheckoutHold {
	t.Helper()
	h, err := f.holds.CreateHold(context.Background(), hold.CreateHoldInput{
		SessionID: sessionID,
		CompanyID: 11,
		CreatedBy: 5,
		Attendees: attendees,
	})
	require.NoError(t, err)
	return h
}

func (f *fixture) payments(t *testing.T, holdUUID uuid.UUID) []domain.Payment {
	t.Helper()
	var out []domain.Payment
	require.NoError(t, f.store.RunTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Payments().ListByHold(ctx, holdUUID)
		return err
	}))
	return out
}

func (f *fixture) invoiceFor(t *testing.T, holdUUID uuid.UUID) (*domain.Invoice, error) {
	t.Helper()
	var inv *domain.Invoice
	err := f.store.RunTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		inv, err = tx.Invoices().GetByHold(ctx, holdUUID)
		return err
	})
	return inv, err
}

func TestProcessPayment_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sessionID := testutil.InsertSession(t, f.store, 3, 5000)
	testutil.InsertDiscount(t, f.store, domain.Discount{Code: "10PERCENT", Type: domain.DiscountPercentage, Value: 1000, IsActive: true})

	h := f.hold(t, sessionID,
		testutil.Attendee("Ann A"),
		testutil.Attendee("Bob B"),
		testutil.WaitlistAttendee("Cat C"),
	)

	res, err := f.svc.ProcessPayment(ctx, PaymentInput{
		HoldUUID:     h.UUID,
		CompanyID:    11,
		ActingUserID: 5,
		CardToken:    "pm_card_visa",
		DiscountCode: "10PERCENT",
		AdminDiscount: &domain.AdminDiscount{
			Type:   domain.DiscountFixedAmount,
			Value:  500,
			Reason: "returning customer",
		},
	})

	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Regexp(t, `^CN-[0-9A-F]{12}$`, res.ConfirmationNumber)

	charges := f.fake.Charges()
	require.Len(t, charges, 1)
	assert.Equal(t, int64(8500), charges[0].AmountCents)
	assert.Equal(t, h.UUID.String()+"-1", charges[0].IdempotencyKey)

	require.NotNil(t, res.Invoice)
	assert.Equal(t, int64(8500), res.Invoice.TotalCents)
	assert.Equal(t, domain.InvoicePosted, res.Invoice.Status)
	assert.Regexp(t, fmt.Sprintf(`^INV-%d-[0-9A-F]{32}$`, sessionID), res.Invoice.InvoiceNumber)
	assert.Len(t, res.Invoice.LineItems, 4)

	require.NotNil(t, res.Payment)
	require.NotNil(t, res.Payment.InvoiceID)
	assert.Equal(t, res.Invoice.ID, *res.Payment.InvoiceID)
	assert.True(t, res.Payment.Succeeded())
	assert.Equal(t, "fake_txn_1", res.Payment.TransactionID)
	assert.Equal(t, int64(5), res.Payment.CreatedBy)

	assert.Len(t, res.Enrollments, 2)
	require.Len(t, res.Waitlisted, 1)
	assert.Equal(t, "cat.c@example.com", res.Waitlisted[0].Email)
	assert.Equal(t, int64(5000), res.Waitlisted[0].SeatPriceCents)

	got, err := f.holds.GetHold(ctx, h.UUID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldConsumed, got.Status)
	assert.Equal(t, res.ConfirmationNumber, got.ConfirmationNumber)
	assert.Equal(t, int64(8500), got.AmountCents)
	require.NotNil(t, got.FinalizedAt)

	counts := testutil.Counts(t, f.store, sessionID)
	assert.Equal(t, 2, counts.Enrolled)
	assert.Equal(t, 0, counts.Held)
	assert.Equal(t, 1, counts.Waitlisted)
	assert.Equal(t, 1, counts.Available)

	t.Run("paying twice", func(t *testing.T) {
		_, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID})
		require.ErrorIs(t, err, domain.ErrHoldNotActive)
		assert.Len(t, f.fake.Charges(), 1)
	})
}

func TestProcessPayment_Declined(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sessionID := testutil.InsertSession(t, f.store, 2, 5000)
	h := f.hold(t, sessionID, testutil.Attendee("Ann A"))

	f.fake.Decline("card_declined", "Your card was declined.")

	res, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID, ActingUserID: 5})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "card_declined", res.ErrorCode)
	assert.Equal(t, "Your card was declined.", res.ErrorMessage)

	got, err := f.holds.GetHold(ctx, h.UUID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldActive, got.Status)

	payments := f.payments(t, h.UUID)
	require.Len(t, payments, 1)
	assert.False(t, payments[0].Succeeded())
	assert.Equal(t, "card_declined", *payments[0].ErrorCode)
	assert.Nil(t, payments[0].InvoiceID)

	_, err = f.invoiceFor(t, h.UUID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	t.Run("retry uses a fresh idempotency key", func(t *testing.T) {
		res, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID, ActingUserID: 5})
		require.NoError(t, err)
		assert.True(t, res.Success)

		charges := f.fake.Charges()
		require.Len(t, charges, 2)
		assert.Equal(t, h.UUID.String()+"-2", charges[1].IdempotencyKey)
		assert.Len(t, f.payments(t, h.UUID), 2)
	})
}

func TestProcessPayment_GatewayError(t *testing.T) {
	f := newFixture(t, nil)
	sessionID := testutil.InsertSession(t, f.store, 2, 5000)
	h := f.hold(t, sessionID, testutil.Attendee("Ann A"))

	f.fake.Fail(errors.New("connection reset"))

	res, err := f.svc.ProcessPayment(context.Background(), PaymentInput{HoldUUID: h.UUID})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeGatewayError, res.ErrorCode)
	assert.Equal(t, 1, testutil.Counts(t, f.store, sessionID).Held)
}

func TestProcessPayment_HoldExpiredDuringCharge(t *testing.T) {
	ctx := context.Background()

	var f *fixture
	f = newFixture(t, gatewayFunc(func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
		f.clock.Advance(20 * time.Minute)
		return f.fake.Charge(ctx, req)
	}))
	sessionID := testutil.InsertSession(t, f.store, 2, 5000)
	h := f.hold(t, sessionID, testutil.Attendee("Ann A"))

	res, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID, ActingUserID: 5})

	require.ErrorIs(t, err, domain.ErrHoldExpired)
	assert.Equal(t, CodeHoldExpiredAfterCharge, FailureCode(err))
	assert.Nil(t, res)

	payments := f.payments(t, h.UUID)
	require.Len(t, payments, 1)
	assert.Equal(t, CodeHoldExpiredAfterCharge, *payments[0].ErrorCode)
	assert.Equal(t, "fake_txn_1", payments[0].TransactionID)
	assert.Equal(t, int64(5000), payments[0].AmountCents)

	assert.Empty(t, testutil.Enrollments(t, f.store, sessionID))
	_, err = f.invoiceFor(t, h.UUID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProcessPayment_FinalizeFailureKeepsCharge(t *testing.T) {
	ctx := context.Background()

	var f *fixture
	f = newFixture(t, gatewayFunc(func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
		f.store.FailCommits(repository.ErrSerialization, repository.ErrSerialization, repository.ErrSerialization)
		return f.fake.Charge(ctx, req)
	}))
	sessionID := testutil.InsertSession(t, f.store, 2, 5000)
	h := f.hold(t, sessionID, testutil.Attendee("Ann A"))

	res, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID, ActingUserID: 5})

	require.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Equal(t, CodeFinalizeFailedAfterCharge, FailureCode(err))
	assert.Nil(t, res)
	assert.Len(t, f.fake.Charges(), 1)

	payments := f.payments(t, h.UUID)
	require.Len(t, payments, 1)
	assert.Equal(t, CodeFinalizeFailedAfterCharge, *payments[0].ErrorCode)
	assert.Equal(t, "fake_txn_1", payments[0].TransactionID)
	assert.Equal(t, int64(5000), payments[0].AmountCents)
	assert.Nil(t, payments[0].InvoiceID)

	got, err := f.holds.GetHold(ctx, h.UUID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldActive, got.Status)
	assert.Empty(t, testutil.Enrollments(t, f.store, sessionID))
}

func TestProcessPayment_InvoiceNumberTaken(t *testing.T) {
	ctx := context.Background()

	var (
		f *fixture
		h *domain.CheckoutHold
	)
	f = newFixture(t, gatewayFunc(func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
		require.NoError(t, f.store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.Invoices().Create(ctx, &domain.Invoice{
				InvoiceNumber: invoiceNumber(h),
				SessionID:     h.SessionID,
				HoldUUID:      uuid.New(),
				Status:        domain.InvoicePosted,
			})
		}))
		return f.fake.Charge(ctx, req)
	}))
	sessionID := testutil.InsertSession(t, f.store, 2, 5000)
	h = f.hold(t, sessionID, testutil.Attendee("Ann A"))

	_, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID, ActingUserID: 5})

	require.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, CodeInvoiceNumberTaken, FailureCode(err))

	payments := f.payments(t, h.UUID)
	require.Len(t, payments, 1)
	assert.Equal(t, CodeInvoiceNumberTaken, *payments[0].ErrorCode)
}

func TestProcessPayment_ConcurrentPaymentRecordsSecondCharge(t *testing.T) {
	ctx := context.Background()

	var (
		f     *fixture
		h     *domain.CheckoutHold
		calls int
		inner *PaymentResult
	)
	f = newFixture(t, gatewayFunc(func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
		calls++
		if calls == 1 {
			// a second payment for the same hold completes while this card is charged
			var err error
			inner, err = f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID, ActingUserID: 6})
			require.NoError(t, err)
		}
		return f.fake.Charge(ctx, req)
	}))
	sessionID := testutil.InsertSession(t, f.store, 2, 5000)
	h = f.hold(t, sessionID, testutil.Attendee("Ann A"))

	_, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID, ActingUserID: 5})

	require.ErrorIs(t, err, domain.ErrHoldNotActive)
	assert.Equal(t, CodeHoldNotActiveAfterCharge, FailureCode(err))
	require.NotNil(t, inner)
	assert.True(t, inner.Success)
	assert.Len(t, f.fake.Charges(), 2)

	payments := f.payments(t, h.UUID)
	require.Len(t, payments, 2)
	var failed []domain.Payment
	for _, p := range payments {
		if p.ErrorCode != nil {
			failed = append(failed, p)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, CodeHoldNotActiveAfterCharge, *failed[0].ErrorCode)
	assert.Equal(t, "fake_txn_2", failed[0].TransactionID)
	assert.Len(t, testutil.Enrollments(t, f.store, sessionID), 1)
}

func TestProcessPayment_RejectedBeforeCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown hold", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: uuid.New()})
		require.ErrorIs(t, err, domain.ErrHoldNotFound)
	})

	t.Run("other company", func(t *testing.T) {
		f := newFixture(t, nil)
		sessionID := testutil.InsertSession(t, f.store, 2, 5000)
		h := f.hold(t, sessionID, testutil.Attendee("Ann A"))

		_, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID, CompanyID: 99})
		require.ErrorIs(t, err, domain.ErrHoldNotFound)
		assert.Empty(t, f.fake.Charges())
	})

	t.Run("lapsed hold", func(t *testing.T) {
		f := newFixture(t, nil)
		sessionID := testutil.InsertSession(t, f.store, 2, 5000)
		h := f.hold(t, sessionID, testutil.Attendee("Ann A"))
		f.clock.Advance(15 * time.Minute)

		_, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID})
		require.ErrorIs(t, err, domain.ErrHoldExpired)
		assert.Empty(t, f.fake.Charges())
	})

	t.Run("cancelled hold", func(t *testing.T) {
		f := newFixture(t, nil)
		sessionID := testutil.InsertSession(t, f.store, 2, 5000)
		h := f.hold(t, sessionID, testutil.Attendee("Ann A"))
		require.NoError(t, f.holds.CancelHold(ctx, h.UUID))

		_, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID})
		require.ErrorIs(t, err, domain.ErrHoldNotActive)
		assert.Empty(t, f.fake.Charges())
	})

	t.Run("invalid discount code", func(t *testing.T) {
		f := newFixture(t, nil)
		sessionID := testutil.InsertSession(t, f.store, 2, 5000)
		h := f.hold(t, sessionID, testutil.Attendee("Ann A"))

		_, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID, DiscountCode: "NOPE"})
		require.ErrorIs(t, err, domain.ErrInvalidDiscountCode)
		assert.Empty(t, f.fake.Charges())
		assert.Empty(t, f.payments(t, h.UUID))
	})
}

func TestProcessPayment_FreeCheckoutSkipsGateway(t *testing.T) {
	f := newFixture(t, nil)
	sessionID := testutil.InsertSession(t, f.store, 2, 5000)
	h := f.hold(t, sessionID, testutil.Attendee("Ann A"))

	res, err := f.svc.ProcessPayment(context.Background(), PaymentInput{
		HoldUUID: h.UUID,
		AdminDiscount: &domain.AdminDiscount{
			Type:   domain.DiscountPercentage,
			Value:  10000,
			Reason: "speaker",
		},
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, res.Invoice.TotalCents)
	assert.Empty(t, f.fake.Charges())
	assert.Len(t, res.Enrollments, 1)
}

func TestProcessPayment_ConfirmationCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sessionID := testutil.InsertSession(t, f.store, 5, 5000)

	queue := []string{"CN-AAAAAAAAAAAA", "CN-AAAAAAAAAAAA", "CN-BBBBBBBBBBBB"}
	f.svc.newConfirmation = func() string {
		cn := queue[0]
		queue = queue[1:]
		return cn
	}

	first := f.hold(t, sessionID, testutil.Attendee("Ann A"))
	res, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: first.UUID})
	require.NoError(t, err)
	assert.Equal(t, "CN-AAAAAAAAAAAA", res.ConfirmationNumber)

	second := f.hold(t, sessionID, testutil.Attendee("Bob B"))
	res, err = f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: second.UUID})
	require.NoError(t, err)
	assert.Equal(t, "CN-BBBBBBBBBBBB", res.ConfirmationNumber)
}

func TestRefundInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sessionID := testutil.InsertSession(t, f.store, 2, 5000)

	h := f.hold(t, sessionID, testutil.Attendee("Ann A"), testutil.Attendee("Bob B"))
	paid, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: h.UUID})
	require.NoError(t, err)
	require.True(t, paid.Success)

	_, err = f.waitlist.AddToWaitlist(ctx, sessionID, testutil.Attendee("Dan D"))
	require.NoError(t, err)

	memo, err := f.svc.RefundInvoice(ctx, RefundInput{InvoiceID: paid.Invoice.ID, Reason: "event moved", ActingUserID: 5})

	require.NoError(t, err)
	assert.Equal(t, paid.Invoice.ID, memo.InvoiceID)
	assert.Equal(t, paid.Invoice.TotalCents, memo.TotalCents)
	assert.Equal(t, paid.Invoice.LineItems, memo.LineItems)
	assert.Equal(t, domain.InvoicePosted, memo.Status)
	assert.Equal(t, "event moved", memo.Reason)

	inv, err := f.invoiceFor(t, h.UUID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceVoid, inv.Status)

	// both seats were released and the waitlist head took one
	enrolled := testutil.Enrollments(t, f.store, sessionID)
	require.Len(t, enrolled, 1)
	assert.Equal(t, "dan.d@example.com", enrolled[0].Email)
	assert.Empty(t, testutil.Waitlist(t, f.store, sessionID))
	assert.Equal(t, 1, testutil.Counts(t, f.store, sessionID).Available)

	_, err = f.svc.RefundInvoice(ctx, RefundInput{InvoiceID: paid.Invoice.ID})
	require.ErrorIs(t, err, domain.ErrInvoiceAlreadyCredited)

	_, err = f.svc.RefundInvoice(ctx, RefundInput{InvoiceID: 12345})
	require.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestRefundInvoice_FreesDiscountUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sessionID := testutil.InsertSession(t, f.store, 5, 5000)
	maxUses := 1
	testutil.InsertDiscount(t, f.store, domain.Discount{
		Code: "ONCE", Type: domain.DiscountFixedAmount, Value: 1000, IsActive: true, MaximumUses: &maxUses,
	})

	first := f.hold(t, sessionID, testutil.Attendee("Ann A"))
	paid, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: first.UUID, DiscountCode: "ONCE"})
	require.NoError(t, err)
	assert.Equal(t, int64(4000), paid.Invoice.TotalCents)

	second := f.hold(t, sessionID, testutil.Attendee("Bob B"))
	_, err = f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: second.UUID, DiscountCode: "ONCE"})
	require.ErrorIs(t, err, domain.ErrDiscountMaxUsage)

	_, err = f.svc.RefundInvoice(ctx, RefundInput{InvoiceID: paid.Invoice.ID, Reason: "duplicate order"})
	require.NoError(t, err)

	res, err := f.svc.ProcessPayment(ctx, PaymentInput{HoldUUID: second.UUID, DiscountCode: "ONCE"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}
