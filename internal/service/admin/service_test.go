package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seatflow/internal/clock"
	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/events"
	"github.com/kirinyoku/seatflow/internal/repository"
	"github.com/kirinyoku/seatflow/internal/repository/memory"
	"github.com/kirinyoku/seatflow/internal/uow"
)

func TestCreateSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	var published []events.Event
	pub := events.PublisherFunc(func(_ context.Context, ev events.Event) error {
		published = append(published, ev)
		return nil
	})
	svc := New(uow.New(store, uow.Config{}, nil), pub, clock.NewManual(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)), nil)

	s, err := svc.CreateSession(ctx, domain.EventSession{Name: " Go Workshop ", MaxEnrollments: 20, SeatPriceCents: 5000})
	require.NoError(t, err)
	assert.NotZero(t, s.ID)
	assert.Equal(t, "Go Workshop", s.Name)
	assert.Equal(t, "UTC", s.Timezone)

	require.Len(t, published, 1)
	assert.Equal(t, events.SessionChanged, published[0].Type)
	assert.Equal(t, s.ID, published[0].SessionID)

	require.NoError(t, store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		got, err := tx.Sessions().Get(ctx, s.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, 20, got.MaxEnrollments)
		return nil
	}))

	invalid := []domain.EventSession{
		{Name: "  ", MaxEnrollments: 1},
		{Name: "x", MaxEnrollments: -1},
		{Name: "x", MaxEnrollments: 1, SeatPriceCents: -1},
	}
	for _, in := range invalid {
		_, err := svc.CreateSession(ctx, in)
		require.ErrorIs(t, err, domain.ErrInvalidSession)
	}
}

func TestCreateDiscount(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(uow.New(store, uow.Config{}, nil), nil, nil, nil)

	d, err := svc.CreateDiscount(ctx, domain.Discount{Code: " spring10 ", Type: domain.DiscountPercentage, Value: 1000, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "SPRING10", d.Code)

	_, err = svc.CreateDiscount(ctx, domain.Discount{Code: "Spring10", Type: domain.DiscountFixedAmount, Value: 100})
	require.ErrorIs(t, err, domain.ErrDiscountExists)

	start := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	cases := []struct {
		name    string
		in      domain.Discount
		wantErr error
	}{
		{name: "blank code", in: domain.Discount{Code: " ", Type: domain.DiscountFixedAmount, Value: 1}, wantErr: domain.ErrInvalidDiscountCode},
		{name: "percentage over 100", in: domain.Discount{Code: "A", Type: domain.DiscountPercentage, Value: 10001}, wantErr: domain.ErrInvalidDiscountValue},
		{name: "negative fixed", in: domain.Discount{Code: "B", Type: domain.DiscountFixedAmount, Value: -5}, wantErr: domain.ErrInvalidDiscountValue},
		{name: "unknown type", in: domain.Discount{Code: "C", Type: "bogus", Value: 5}, wantErr: domain.ErrInvalidDiscountValue},
		{name: "window ends before start", in: domain.Discount{Code: "D", Type: domain.DiscountFixedAmount, Value: 5, StartDate: &start, EndDate: &end}, wantErr: domain.ErrInvalidDiscountValue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateDiscount(ctx, tc.in)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
