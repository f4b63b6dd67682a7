package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/seatflow/internal/domain"
	"github.com/kirinyoku/seatflow/internal/events"
)

func TestIdempotencyStore_Begin(t *testing.T) {
	ctx := context.Background()
	key := KeyIdemHold(7, "abc")

	t.Run("acquires a fresh key", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		s := NewIdempotencyStore(db, time.Hour, time.Minute)

		mock.ExpectGet(key).RedisNil()
		mock.ExpectSetNX(key, "LOCK", time.Minute).SetVal(true)

		state, payload, err := s.Begin(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, IdemAcquired, state)
		assert.Empty(t, payload)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replays a stored result", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		s := NewIdempotencyStore(db, time.Hour, time.Minute)

		mock.ExpectGet(key).SetVal(`RES:{"hold_id":"x"}`)

		state, payload, err := s.Begin(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, IdemReplay, state)
		assert.JSONEq(t, `{"hold_id":"x"}`, payload)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a request in flight", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		s := NewIdempotencyStore(db, time.Hour, time.Minute)

		mock.ExpectGet(key).RedisNil()
		mock.ExpectSetNX(key, "LOCK", time.Minute).SetVal(false)
		mock.ExpectGet(key).SetVal("LOCK")

		state, _, err := s.Begin(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, IdemInFlight, state)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces redis errors", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		s := NewIdempotencyStore(db, time.Hour, time.Minute)

		mock.ExpectGet(key).SetErr(errors.New("conn refused"))

		_, _, err := s.Begin(ctx, key)

		require.Error(t, err)
	})
}

func TestIdempotencyStore_CompleteAndRelease(t *testing.T) {
	ctx := context.Background()
	key := KeyIdemPayment("h1", "k1")

	db, mock := redismock.NewClientMock()
	s := NewIdempotencyStore(db, time.Hour, time.Minute)

	mock.ExpectSet(key, `RES:{"ok":true}`, time.Hour).SetVal("OK")
	mock.ExpectDel(key).SetVal(1)

	require.NoError(t, s.Complete(ctx, key, `{"ok":true}`))
	require.NoError(t, s.Release(ctx, key))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrSetJSON(t *testing.T) {
	ctx := context.Background()
	key := KeySessionAvailability(3)
	want := domain.SeatCounts{SessionID: 3, Max: 10, Enrolled: 4, Available: 6}

	t.Run("hit skips the loader", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := New(db)

		b, _ := json.Marshal(want)
		mock.ExpectGet(key).SetVal(string(b))

		got, err := GetOrSetJSON(ctx, c, key, time.Second, func(context.Context) (domain.SeatCounts, error) {
			t.Fatal("loader must not run on a hit")
			return domain.SeatCounts{}, nil
		})

		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss loads and stores", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		c := New(db)

		b, _ := json.Marshal(want)
		mock.ExpectGet(key).RedisNil()
		mock.ExpectSet(key, b, 5*time.Second).SetVal("OK")

		calls := 0
		got, err := GetOrSetJSON(ctx, c, key, 5*time.Second, func(context.Context) (domain.SeatCounts, error) {
			calls++
			return want, nil
		})

		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil cache calls the loader", func(t *testing.T) {
		got, err := GetOrSetJSON(ctx, (*Cache)(nil), key, time.Second, func(context.Context) (domain.SeatCounts, error) {
			return want, nil
		})

		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestInvalidator(t *testing.T) {
	db, mock := redismock.NewClientMock()
	inv := NewInvalidator(New(db))

	mock.ExpectDel(KeySessionAvailability(9), KeySessionWaitlist(9)).SetVal(2)

	err := inv.Publish(context.Background(), events.Event{Type: events.HoldCreated, SessionID: 9})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionsPubSub_Publish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewSessionsPubSub(db)

	ev := events.Event{Type: events.HoldExpired, SessionID: 5, OccurredAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	b, _ := json.Marshal(ev)
	mock.ExpectPublish(ChannelSessionsChanged(), b).SetVal(1)

	require.NoError(t, p.Publish(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}
