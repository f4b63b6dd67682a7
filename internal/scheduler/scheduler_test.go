package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweeperFunc func(ctx context.Context) (int, error)

func (f sweeperFunc) ExpireStaleHolds(ctx context.Context) (int, error) { return f(ctx) }

func TestRunOnce(t *testing.T) {
	s, err := New(sweeperFunc(func(ctx context.Context) (int, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return 3, nil
	}), nil, Config{Interval: time.Second})
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	boom := errors.New("boom")
	s.sweeper = sweeperFunc(func(context.Context) (int, error) { return 1, boom })

	n, err = s.RunOnce(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}

func TestStart_RunsSweepPeriodically(t *testing.T) {
	var runs atomic.Int32
	s, err := New(sweeperFunc(func(context.Context) (int, error) {
		runs.Add(1)
		return 0, nil
	}), nil, Config{Interval: 20 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Shutdown() })

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
