package httpgin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seatflow/internal/clock"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/payment"
	"github.com/kirinyoku/seatflow/internal/repository/memory"
	redisrepo "github.com/kirinyoku/seatflow/internal/repository/redis"
	"github.com/kirinyoku/seatflow/internal/service"
	"github.com/kirinyoku/seatflow/internal/service/checkout"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *memory.Store
	fake   *payment.Fake
	clock  *clock.Manual
}

func newTestServer(t *testing.T, idem *redisrepo.IdempotencyStore) *testServer {
	t.Helper()
	store := memory.New()
	fake := payment.NewFake()
	clk := clock.NewManual(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svcs := service.NewServices(service.Deps{
		Store:   store,
		Gateway: fake,
		Clock:   clk,
		Logger:  logger,
	}, service.Config{})

	return &testServer{
		router: NewRouter(svcs, idem, logger),
		store:  store,
		fake:   fake,
		clock:  clk,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) createSession(t *testing.T, maxEnrollments int, price int64) int64 {
	t.Helper()
	w := s.do(t, http.MethodPost, "/admin/sessions", CreateSessionRequest{
		Name:           "Go Workshop",
		MaxEnrollments: maxEnrollments,
		SeatPriceCents: price,
		StartDate:      time.Date(2030, 2, 1, 9, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.EventSession](t, w).ID
}

func attendee(first string) AttendeeInput {
	return AttendeeInput{
		FirstName:  first,
		LastName:   "Tester",
		Email:      first + "@example.com",
		IsSelected: true,
	}
}

func holdRequest(names ...string) CreateHoldRequest {
	req := CreateHoldRequest{CompanyID: 1, CreatedBy: 2}
	for _, n := range names {
		req.Attendees = append(req.Attendees, attendee(n))
	}
	return req
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAvailability_ETag(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := s.createSession(t, 3, 1000)
	path := fmt.Sprintf("/sessions/%d/availability", sessionID)

	w := s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	counts := decode[domain.SeatCounts](t, w)
	assert.Equal(t, 3, counts.Available)

	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = s.do(t, http.MethodGet, path, nil, "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = s.do(t, http.MethodGet, "/sessions/999/availability", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/sessions/abc/availability", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateHold(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := s.createSession(t, 2, 5000)
	path := fmt.Sprintf("/sessions/%d/holds", sessionID)

	w := s.do(t, http.MethodPost, path, holdRequest("ann", "bob"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	h := decode[domain.CheckoutHold](t, w)
	assert.Equal(t, domain.HoldActive, h.Status)

	w = s.do(t, http.MethodPost, path, holdRequest("cat"))
	assert.Equal(t, http.StatusConflict, w.Code)

	blank := holdRequest("dan")
	blank.Attendees[0].FirstName = "   "
	w = s.do(t, http.MethodPost, path, blank)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/holds/"+h.UUID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/holds/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/holds/"+h.UUID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/holds/"+h.UUID.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckoutAndRefund(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := s.createSession(t, 2, 5000)

	w := s.do(t, http.MethodPost, "/admin/discounts", CreateDiscountRequest{
		Code: "10percent", Type: domain.DiscountPercentage, Value: 1000, IsActive: true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, fmt.Sprintf("/sessions/%d/holds", sessionID), holdRequest("ann", "bob"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	h := decode[domain.CheckoutHold](t, w)
	paymentsPath := "/holds/" + h.UUID.String() + "/payments"

	w = s.do(t, http.MethodPost, paymentsPath, PaymentRequest{CompanyID: 1, UserID: 2, DiscountCode: "NOPE"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	s.fake.Decline("card_declined", "Your card was declined.")
	w = s.do(t, http.MethodPost, paymentsPath, PaymentRequest{CompanyID: 1, UserID: 2, CardToken: "tok_visa"})
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	declined := decode[checkout.PaymentResult](t, w)
	assert.False(t, declined.Success)
	assert.Equal(t, "card_declined", declined.ErrorCode)

	w = s.do(t, http.MethodPost, paymentsPath, PaymentRequest{
		CompanyID:    1,
		UserID:       2,
		CardToken:    "tok_visa",
		DiscountCode: "10PERCENT",
		AdminDiscount: &AdminDiscountInput{
			Type: domain.DiscountFixedAmount, Value: 500, Reason: "loyal customer",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode[checkout.PaymentResult](t, w)
	assert.True(t, paid.Success)
	require.NotNil(t, paid.Invoice)
	assert.Equal(t, int64(8500), paid.Invoice.TotalCents)

	w = s.do(t, http.MethodGet, paymentsPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Payment](t, w), 2)

	invoicePath := fmt.Sprintf("/invoices/%d", paid.Invoice.ID)
	w = s.do(t, http.MethodGet, invoicePath, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, invoicePath+"/refund", RefundRequest{UserID: 2, Reason: "customer request"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	memo := decode[domain.CreditMemo](t, w)
	assert.Equal(t, int64(8500), memo.TotalCents)

	w = s.do(t, http.MethodPost, invoicePath+"/refund", RefundRequest{UserID: 2, Reason: "again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/sessions/%d/availability", sessionID), nil)
	assert.Equal(t, 2, decode[domain.SeatCounts](t, w).Available)
}

func TestWaitlistRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := s.createSession(t, 1, 1000)
	path := fmt.Sprintf("/sessions/%d/waitlist", sessionID)

	var ids []int64
	for _, n := range []string{"ann", "bob", "cat"} {
		w := s.do(t, http.MethodPost, path, attendee(n))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode[domain.WaitlistEntry](t, w).ID)
	}

	w := s.do(t, http.MethodPost, path, attendee("ann"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/waitlist/%d/position", ids[2]), UpdatePositionRequest{Position: 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[domain.WaitlistEntry](t, w).Position)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/waitlist/%d", ids[0]), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]domain.WaitlistEntry](t, w)
	require.Len(t, entries, 2)
	assert.Equal(t, "cat@example.com", entries[0].Email)
	assert.Equal(t, []int{1, 2}, []int{entries[0].Position, entries[1].Position})

	w = s.do(t, http.MethodPost, fmt.Sprintf("/admin/sessions/%d/promote", sessionID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[PromoteResponse](t, w).Promoted)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/waitlist/%d/enroll", ids[1]), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/sessions/%d/enrollments", sessionID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	enrolled := decode[[]domain.Enrollment](t, w)
	require.Len(t, enrolled, 1)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/enrollments/%d/waitlist", enrolled[0].ID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[domain.WaitlistEntry](t, w).Position)

	// the freed seat went to bob, who was ahead in the queue
	w = s.do(t, http.MethodGet, fmt.Sprintf("/sessions/%d/enrollments", sessionID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	enrolled = decode[[]domain.Enrollment](t, w)
	require.Len(t, enrolled, 1)
	assert.Equal(t, "bob@example.com", enrolled[0].Email)
}

func TestSweep(t *testing.T) {
	s := newTestServer(t, nil)
	sessionID := s.createSession(t, 2, 1000)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/sessions/%d/holds", sessionID), holdRequest("ann"))
	require.Equal(t, http.StatusCreated, w.Code)

	s.clock.Advance(time.Hour)

	w = s.do(t, http.MethodPost, "/admin/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[SweepResponse](t, w).Expired)
}

func TestCreateHold_Idempotency(t *testing.T) {
	t.Run("replays a finished request", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		s := newTestServer(t, redisrepo.NewIdempotencyStore(db, time.Hour, time.Minute))
		sessionID := s.createSession(t, 2, 1000)
		key := redisrepo.KeyIdemHold(sessionID, "k1")

		mock.ExpectGet(key).SetVal(`RES:{"uuid":"00000000-0000-0000-0000-000000000001"}`)

		w := s.do(t, http.MethodPost, fmt.Sprintf("/sessions/%d/holds", sessionID), holdRequest("ann"), "Idempotency-Key", "k1")

		require.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"uuid":"00000000-0000-0000-0000-000000000001"}`, w.Body.String())
		assert.Equal(t, "k1", w.Header().Get("Idempotency-Key"))
		assert.NoError(t, mock.ExpectationsWereMet())

		w = s.do(t, http.MethodGet, fmt.Sprintf("/sessions/%d/availability", sessionID), nil)
		assert.Equal(t, 2, decode[domain.SeatCounts](t, w).Available)
	})

	t.Run("in flight", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		s := newTestServer(t, redisrepo.NewIdempotencyStore(db, time.Hour, time.Minute))
		sessionID := s.createSession(t, 2, 1000)
		key := redisrepo.KeyIdemHold(sessionID, "k2")

		mock.ExpectGet(key).SetVal("LOCK")
		mock.ExpectSetNX(key, "LOCK", time.Minute).SetVal(false)
		mock.ExpectGet(key).SetVal("LOCK")

		w := s.do(t, http.MethodPost, fmt.Sprintf("/sessions/%d/holds", sessionID), holdRequest("ann"), "Idempotency-Key", "k2")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed request releases the key", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		s := newTestServer(t, redisrepo.NewIdempotencyStore(db, time.Hour, time.Minute))
		sessionID := s.createSession(t, 1, 1000)
		key := redisrepo.KeyIdemHold(sessionID, "k3")

		mock.ExpectGet(key).RedisNil()
		mock.ExpectSetNX(key, "LOCK", time.Minute).SetVal(true)
		mock.ExpectDel(key).SetVal(1)

		w := s.do(t, http.MethodPost, fmt.Sprintf("/sessions/%d/holds", sessionID), holdRequest("ann", "bob"), "Idempotency-Key", "k3")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
